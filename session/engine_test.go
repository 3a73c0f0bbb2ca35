package session_test

import (
	"testing"
	"time"

	"github.com/emilio/ngn/adapter/fake"
	"github.com/emilio/ngn/identity"
	"github.com/emilio/ngn/netutil"
	"github.com/emilio/ngn/protocol"
	"github.com/emilio/ngn/session"
	"github.com/emilio/ngn/store"
	"github.com/stretchr/testify/require"
)

func testMAC(t *testing.T, b byte) netutil.MAC {
	t.Helper()
	m, err := netutil.ParseMAC([]byte{b, 1, 2, 3, 4, 5})
	require.NoError(t, err)
	return m
}

// recordingListener buffers every callback on a channel per event kind, so
// tests can block for the specific event they care about instead of
// polling.
type recordingListener struct {
	protocol.NoopListener
	discovered chan store.PeerId
	lost       chan store.PeerId
	joined     chan store.GroupId
	left       chan store.GroupId
	peerJoined chan store.PeerId
	peerLeft   chan store.PeerId
	messaged   chan []byte
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		discovered: make(chan store.PeerId, 8),
		lost:       make(chan store.PeerId, 8),
		joined:     make(chan store.GroupId, 8),
		left:       make(chan store.GroupId, 8),
		peerJoined: make(chan store.PeerId, 8),
		peerLeft:   make(chan store.PeerId, 8),
		messaged:   make(chan []byte, 8),
	}
}

func (l *recordingListener) PeerDiscovered(id store.PeerId)     { l.discovered <- id }
func (l *recordingListener) PeerLost(id store.PeerId)           { l.lost <- id }
func (l *recordingListener) JoinedGroup(id store.GroupId)       { l.joined <- id }
func (l *recordingListener) LeftGroup(id store.GroupId)         { l.left <- id }
func (l *recordingListener) PeerJoinedGroup(p store.PeerId, _ store.GroupId) { l.peerJoined <- p }
func (l *recordingListener) PeerLeftGroup(p store.PeerId, _ store.GroupId)   { l.peerLeft <- p }
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

func newTestSession(t *testing.T, radio *fake.Radio, nickname, deviceName string, listener protocol.Listener) *session.Session {
	t.Helper()
	id, err := identity.NewOwnIdentity(nickname)
	require.NoError(t, err)

	s, err := session.New(session.Config{
		DeviceName: deviceName,
		Identity:   id,
		GOIntent:   14,
	}, radio, listener)
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop() })
	return s
}

// TestRoundTripDiscoveryAndGreet exercises spec §8 scenario 1: two sessions
// discover each other, associate over a simulated group, and exchange a
// signed data message.
func TestRoundTripDiscoveryAndGreet(t *testing.T) {
	medium := fake.NewVirtualRadio()
	aliceMAC := testMAC(t, 1)
	bobMAC := testMAC(t, 2)

	aliceRadio := medium.NewRadio("alice", aliceMAC)
	bobRadio := medium.NewRadio("bob", bobMAC)

	aliceListener := newRecordingListener()
	bobListener := newRecordingListener()

	aliceSession := newTestSession(t, aliceRadio, "alice", "alice-device", aliceListener)
	bobSession := newTestSession(t, bobRadio, "bob", "bob-device", bobListener)

	// Discovery is mutual: both sides see each other before association,
	// even though only bob initiates the connect.
	require.NoError(t, aliceSession.DiscoverPeers())
	require.NoError(t, bobSession.DiscoverPeers())

	bobID := recv(t, aliceListener.discovered)
	aliceID := recv(t, bobListener.discovered)

	require.NoError(t, bobSession.ConnectToPeer(aliceID))

	// The radio's negotiation is simulated directly: each side gets its own
	// GroupStarted, on loopback instead of a real link-local address so the
	// test doesn't depend on a real Wi-Fi Direct interface being present.
	aliceRadio.StartGroup(true, "lo", aliceMAC, "::1")
	bobRadio.StartGroup(false, "lo", aliceMAC, "::1")

	recv(t, aliceListener.joined)
	recv(t, bobListener.joined)

	require.Equal(t, bobID, recv(t, aliceListener.peerJoined))
	require.Equal(t, aliceID, recv(t, bobListener.peerJoined))

	require.NoError(t, bobSession.MessagePeer(aliceID, []byte("hi")))

	msg := recv(t, aliceListener.messaged)
	require.Equal(t, "hi", string(msg))
}

// TestDeviceLostRemovesPeer covers the single-peer DeviceLost path: PeerLost
// fires for the lost peer and its handle no longer resolves. The peer never
// joins a group here, so no PeerLeftGroup is involved.
func TestDeviceLostRemovesPeer(t *testing.T) {
	medium := fake.NewVirtualRadio()
	aliceMAC := testMAC(t, 1)
	bobMAC := testMAC(t, 2)

	aliceRadio := medium.NewRadio("alice", aliceMAC)
	_ = medium.NewRadio("bob", bobMAC)

	listener := newRecordingListener()
	aliceSession := newTestSession(t, aliceRadio, "alice", "alice-device", listener)

	require.NoError(t, aliceSession.DiscoverPeers())
	bobID := recv(t, listener.discovered)

	aliceRadio.LoseDevice("bob", bobMAC)

	lost := recv(t, listener.lost)
	require.Equal(t, bobID, lost)

	_, ok := aliceSession.PeerIdentity(bobID)
	require.False(t, ok)
}

// TestAllPeersAndOwnIdentity covers the read-only snapshot operations.
func TestAllPeersAndOwnIdentity(t *testing.T) {
	medium := fake.NewVirtualRadio()
	aliceMAC := testMAC(t, 1)
	bobMAC := testMAC(t, 2)

	aliceRadio := medium.NewRadio("alice", aliceMAC)
	_ = medium.NewRadio("bob", bobMAC)

	listener := newRecordingListener()
	aliceSession := newTestSession(t, aliceRadio, "alice", "alice-device", listener)

	require.Equal(t, "alice", aliceSession.OwnIdentity().Nickname)
	require.Empty(t, aliceSession.AllPeers())

	require.NoError(t, aliceSession.DiscoverPeers())
	bobID := recv(t, listener.discovered)

	require.Equal(t, []store.PeerId{bobID}, aliceSession.AllPeers())

	snap, ok := aliceSession.PeerIdentity(bobID)
	require.True(t, ok)
	require.Equal(t, "bob", snap.Physical.Name)
	require.Nil(t, snap.Logical)
}

func TestConfigValidation(t *testing.T) {
	medium := fake.NewVirtualRadio()
	radio := medium.NewRadio("alice", testMAC(t, 1))

	id, err := identity.NewOwnIdentity("alice")
	require.NoError(t, err)

	_, err = session.New(session.Config{Identity: id, GOIntent: 3}, radio, nil)
	require.ErrorIs(t, err, session.ErrState)

	_, err = session.New(session.Config{DeviceName: "d", Identity: id, GOIntent: 99}, radio, nil)
	require.ErrorIs(t, err, session.ErrState)

	_, err = session.New(session.Config{DeviceName: "d", GOIntent: 3}, radio, nil)
	require.ErrorIs(t, err, session.ErrState)
}
