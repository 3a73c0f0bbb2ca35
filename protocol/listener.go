package protocol

import "github.com/emilio/ngn/store"

// Listener receives the engine's fanned-out notifications. It mirrors the
// original implementation's listener trait, which gives every method a
// no-op default — embed NoopListener and override only the methods a
// caller cares about.
type Listener interface {
	PeerDiscovered(id store.PeerId)
	PeerLost(id store.PeerId)
	PeerDiscoveryStopped()
	JoinedGroup(id store.GroupId)
	LeftGroup(id store.GroupId)
	PeerJoinedGroup(peer store.PeerId, group store.GroupId)
	PeerLeftGroup(peer store.PeerId, group store.GroupId)
	PeerMessaged(peer store.PeerId, group store.GroupId, msg []byte)
}

// NoopListener implements Listener with every method a no-op. Embed it in a
// caller's listener type to only override the callbacks of interest.
type NoopListener struct{}

func (NoopListener) PeerDiscovered(store.PeerId)                      {}
func (NoopListener) PeerLost(store.PeerId)                            {}
func (NoopListener) PeerDiscoveryStopped()                            {}
func (NoopListener) JoinedGroup(store.GroupId)                        {}
func (NoopListener) LeftGroup(store.GroupId)                          {}
func (NoopListener) PeerJoinedGroup(store.PeerId, store.GroupId)      {}
func (NoopListener) PeerLeftGroup(store.PeerId, store.GroupId)        {}
func (NoopListener) PeerMessaged(store.PeerId, store.GroupId, []byte) {}
