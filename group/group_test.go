package group

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/emilio/ngn/identity"
	"github.com/emilio/ngn/keyexchange"
	"github.com/emilio/ngn/netutil"
	"github.com/emilio/ngn/protocol"
	"github.com/emilio/ngn/store"
	"github.com/emilio/ngn/wire"
	"github.com/stretchr/testify/require"
)

func testMAC(t *testing.T, b byte) netutil.MAC {
	t.Helper()
	m, err := netutil.ParseMAC([]byte{b, 1, 2, 3, 4, 5})
	require.NoError(t, err)
	return m
}

type recordingListener struct {
	protocol.NoopListener
	joined   chan store.PeerId
	messaged chan []byte
}

func newRecordingListener() *recordingListener {
	return &recordingListener{joined: make(chan store.PeerId, 4), messaged: make(chan []byte, 4)}
}

func (l *recordingListener) PeerJoinedGroup(peer store.PeerId, _ store.GroupId) { l.joined <- peer }
func (l *recordingListener) PeerMessaged(_ store.PeerId, _ store.GroupId, msg []byte) {
	l.messaged <- msg
}

func recv[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		var zero T
		return zero
	}
}

// TestStartAssociatesAndMessages drives two real group tasks over loopback
// TCP end to end: the GO accepts the client's bootstrap Associate, echoes
// its own back, and a signed data message then flows from client to GO.
// This is the group-package-level rendering of spec §8 scenario 1.
func TestStartAssociatesAndMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aliceMAC := testMAC(t, 1)
	bobMAC := testMAC(t, 2)

	aliceOwn, err := identity.NewOwnIdentity("alice")
	require.NoError(t, err)
	bobOwn, err := identity.NewOwnIdentity("bob")
	require.NoError(t, err)

	aliceSideKE, err := keyexchange.New()
	require.NoError(t, err)
	bobSideKE, err := keyexchange.New()
	require.NoError(t, err)

	// Each side's store only needs to know about the other peer (discovery
	// is assumed to have already happened, as it would via the session
	// engine's DeviceFound handling). Each KeyExchange is the owning side's
	// own ephemeral key for this peer relationship, not the peer's key.
	alicePeers := store.NewPeerStore()
	bobAtAlice := alicePeers.Insert(store.PeerRecord{
		Identity:    store.PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "bob", DevAddr: bobMAC}},
		KeyExchange: aliceSideKE,
	})

	bobPeers := store.NewPeerStore()
	aliceAtBob := bobPeers.Insert(store.PeerRecord{
		Identity:    store.PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "alice", DevAddr: aliceMAC}},
		KeyExchange: bobSideKE,
	})

	aliceGroups := store.NewGroupStore()
	aliceGID := aliceGroups.Insert("", store.GroupRecord{IsGO: true, Peers: map[store.PeerId]store.PeerGroupInfo{}})

	bobGroups := store.NewGroupStore()
	bobGID := bobGroups.Insert("", store.GroupRecord{IsGO: false, Peers: map[store.PeerId]store.PeerGroupInfo{}})

	aliceListener := newRecordingListener()
	bobListener := newRecordingListener()

	aliceAssociate := wire.Associate{
		PhysicalID: wire.PeerOwnIdentifier{Tag: wire.PeerOwnIdentifierDevAddr, DevAddr: aliceMAC.Bytes, DevLen: aliceMAC.Len},
		LogicalID:  wire.LogicalPeerIdentity(aliceOwn.ToLogical()),
	}
	bobAssociate := wire.Associate{
		PhysicalID: wire.PeerOwnIdentifier{Tag: wire.PeerOwnIdentifierDevAddr, DevAddr: bobMAC.Bytes, DevLen: bobMAC.Len},
		LogicalID:  wire.LogicalPeerIdentity(bobOwn.ToLogical()),
	}

	aliceTask, aliceControlPort, _, err := Start(ctx, StartParams{
		IsGO:         true,
		ListenIP:     net.IPv6loopback,
		OwnAssociate: aliceAssociate,
	}, alicePeers, aliceGroups, aliceGID, aliceListener)
	require.NoError(t, err)
	defer aliceTask.Stop()

	bobTask, _, _, err := Start(ctx, StartParams{
		IsGO:         false,
		ListenIP:     net.IPv6loopback,
		GoAddr:       fmt.Sprintf("[::1]:%d", aliceControlPort),
		GoPeerID:     aliceAtBob,
		OwnAssociate: bobAssociate,
	}, bobPeers, bobGroups, bobGID, bobListener)
	require.NoError(t, err)
	defer bobTask.Stop()

	require.Equal(t, bobAtAlice, recv(t, aliceListener.joined))
	require.Equal(t, aliceAtBob, recv(t, bobListener.joined))

	bobGroups.RLock()
	grec, ok := bobGroups.Get(bobGID)
	bobGroups.RUnlock()
	require.True(t, ok)
	info, ok := grec.Peers[aliceAtBob]
	require.True(t, ok)

	payload := []byte("hi")
	signature := identity.Sign(bobOwn.Keys, payload)
	addr := netutil.PeerToSocketAddr(info.Address, grec.ScopeID, info.Ports.Data)
	require.NoError(t, SendPeerMessage(ctx, addr.String(), signature, payload))

	require.Equal(t, payload, recv(t, aliceListener.messaged))
}
