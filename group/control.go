package group

import (
	"context"
	"errors"
	"log"
	"net"
	"strconv"

	"github.com/emilio/ngn/protocol"
	"github.com/emilio/ngn/store"
	"github.com/emilio/ngn/wire"
)

// controlContext bundles everything serveControlConn needs beyond the
// connection itself: the stores, which group this listener belongs to, the
// fan-out listener, and — GO side only — the template Associate to echo
// back once a client successfully associates.
type controlContext struct {
	peers        *store.PeerStore
	groups       *store.GroupStore
	groupID      store.GroupId
	listener     protocol.Listener
	isGO         bool
	ownAssociate wire.Associate
}

// runControlListener accepts control connections on ln until ctx is
// cancelled, applying each decoded Associate frame per spec §4.5. Each
// connection is serviced by its own short-lived goroutine.
func runControlListener(ctx context.Context, ln net.Listener, cc controlContext) error {
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
		go serveControlConn(ctx, conn, cc)
	}
}

// serveControlConn reads Associate frames from conn in a loop until EOF or
// a read error, per §4.5's failure handling: a frame decode error closes
// the connection; every other rejection (unknown peer, identity mismatch,
// duplicate association) is logged and the connection is kept open. On the
// GO side, a successful association is echoed back to the client's
// reported control port with the GO's own Associate.
func serveControlConn(ctx context.Context, conn net.Conn, cc controlContext) {
	defer conn.Close()

	peerIP := remoteIP(conn)

	for {
		payload, err := wire.ReadControlFrame(conn)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("W: [group] control read failed from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		assoc, err := wire.DecodeControlMessage(payload)
		if err != nil {
			log.Printf("W: [group] decode error from %s: %v, closing connection", conn.RemoteAddr(), err)
			return
		}

		peerID, err := applyAssociateLocked(cc.peers, cc.groups, cc.groupID, assoc, peerIP, cc.listener)
		if err != nil {
			log.Printf("W: [group] rejecting associate from %s: %v", conn.RemoteAddr(), err)
			continue
		}

		if cc.isGO {
			echoAssociateBack(ctx, cc, peerID, peerIP, assoc.Ports.Control)
		}
	}
}

func applyAssociateLocked(peers *store.PeerStore, groups *store.GroupStore, groupID store.GroupId, assoc wire.Associate, peerIP net.IP, listener protocol.Listener) (store.PeerId, error) {
	peers.Lock()
	defer peers.Unlock()
	groups.Lock()
	defer groups.Unlock()

	return protocol.ApplyAssociate(peers, groups, groupID, assoc, peerIP, listener)
}

// echoAssociateBack sends the GO's own Associate to the client's reported
// control port, completing the symmetric round-trip of §4.5 step 3. The
// key-exchange public key sent is the one bound to this specific peer
// record, so the client's Finish call derives the same shared secret.
func echoAssociateBack(ctx context.Context, cc controlContext, peerID store.PeerId, clientIP net.IP, clientControlPort uint16) {
	cc.peers.RLock()
	rec, ok := cc.peers.Get(peerID)
	cc.peers.RUnlock()
	if !ok || rec.KeyExchange == nil {
		return
	}

	assoc := cc.ownAssociate
	assoc.KeyExchangePublicKey = rec.KeyExchange.PublicKey()

	addr := net.JoinHostPort(clientIP.String(), strconv.Itoa(int(clientControlPort)))
	go func() {
		if err := SendControlMessage(ctx, addr, assoc); err != nil {
			log.Printf("W: [group] echoing associate back to %s failed: %v", addr, err)
		}
	}()
}

func remoteIP(conn net.Conn) net.IP {
	addr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return nil
	}
	return addr.IP
}
