package group

import (
	"context"
	"log"
	"net"

	"github.com/emilio/ngn/identity"
	"github.com/emilio/ngn/protocol"
	"github.com/emilio/ngn/store"
	"github.com/emilio/ngn/wire"
)

// runDataListener accepts data connections on ln until ctx is cancelled.
// Each accepted connection's source IP is resolved to a known member of
// groupID; connections from unbound IPs are rejected. Accepted connections
// are serviced by their own goroutine reading signed peer messages in a
// loop.
func runDataListener(ctx context.Context, ln net.Listener, peers *store.PeerStore, groups *store.GroupStore, groupID store.GroupId, listener protocol.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		pid, pub, ok := resolvePeerByAddress(peers, groups, groupID, remoteIP(conn))
		if !ok {
			log.Printf("W: [group] data connection from unbound address %s, closing", conn.RemoteAddr())
			conn.Close()
			continue
		}
		go serveDataConn(conn, pid, groupID, pub, listener)
	}
}

func resolvePeerByAddress(peers *store.PeerStore, groups *store.GroupStore, groupID store.GroupId, addr net.IP) (store.PeerId, [32]byte, bool) {
	groups.RLock()
	defer groups.RUnlock()

	grp, ok := groups.Get(groupID)
	if !ok {
		return store.PeerId{}, [32]byte{}, false
	}

	for pid, info := range grp.Peers {
		if info.Address.Equal(addr) {
			peers.RLock()
			rec, ok := peers.Get(pid)
			peers.RUnlock()
			if !ok || rec.Identity.Logical == nil {
				return store.PeerId{}, [32]byte{}, false
			}
			return pid, rec.Identity.Logical.PublicKey, true
		}
	}
	return store.PeerId{}, [32]byte{}, false
}

// serveDataConn reads signed peer messages from conn in a loop, verifying
// each against pub; a verification or decode failure closes the stream.
func serveDataConn(conn net.Conn, pid store.PeerId, groupID store.GroupId, pub [32]byte, listener protocol.Listener) {
	defer conn.Close()

	for {
		signature, payload, err := wire.ReadDataFrame(conn)
		if err != nil {
			return
		}

		if err := identity.Verify(pub, signature, payload); err != nil {
			log.Printf("W: [group] signature verification failed from %s: %v, closing connection", conn.RemoteAddr(), err)
			return
		}

		if listener != nil {
			listener.PeerMessaged(pid, groupID, payload)
		}
	}
}
