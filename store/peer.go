package store

import (
	"sync"

	"github.com/emilio/ngn/identity"
	"github.com/emilio/ngn/keyexchange"
	"github.com/emilio/ngn/netutil"
)

// PeerId is an opaque handle into a PeerStore. It is never reused for a
// different peer: a slot freed by Remove and reissued by Insert carries a
// bumped generation, so a stale PeerId compares as "not found" rather than
// aliasing the new occupant.
type PeerId struct{ h rawHandle }

// PeerIdentity pairs the self-reported physical identity with the logical
// identity bound at Associate time, if any.
type PeerIdentity struct {
	Physical identity.PhysicalPeerIdentity
	Logical  *identity.LogicalPeerIdentity
}

// PeerRecord is everything the session knows about one discovered peer.
type PeerRecord struct {
	Identity    PeerIdentity
	Groups      []GroupId
	KeyExchange *keyexchange.KeyExchange
	BackendData any
}

// InGroup reports whether the peer is already recorded as a member of gid.
func (r *PeerRecord) InGroup(gid GroupId) bool {
	for _, g := range r.Groups {
		if g == gid {
			return true
		}
	}
	return false
}

// PeerStore is the generational-handle map of discovered peers, indexed
// additionally by device MAC for O(1) lookup during radio "update devices"
// bursts.
//
// Per spec §5, the store is guarded by a reader-writer lock but the lock
// itself is not taken by the individual accessor methods below: callers
// that need to read-then-write atomically (e.g. applying an Associate)
// bracket the whole sequence with Lock/Unlock or RLock/RUnlock themselves,
// and must never suspend (block on I/O or a channel) while holding it.
type PeerStore struct {
	mu      sync.RWMutex
	table   table[PeerRecord]
	macToID map[netutil.MAC]PeerId
}

// NewPeerStore returns an empty peer store.
func NewPeerStore() *PeerStore {
	return &PeerStore{macToID: make(map[netutil.MAC]PeerId)}
}

func (s *PeerStore) Lock()    { s.mu.Lock() }
func (s *PeerStore) Unlock()  { s.mu.Unlock() }
func (s *PeerStore) RLock()   { s.mu.RLock() }
func (s *PeerStore) RUnlock() { s.mu.RUnlock() }

// Insert records a new peer, indexing it by its physical device address.
func (s *PeerStore) Insert(r PeerRecord) PeerId {
	id := PeerId{h: s.table.insert(r)}
	s.macToID[r.Identity.Physical.DevAddr] = id
	return id
}

// Get returns the peer record for id, if still valid.
func (s *PeerStore) Get(id PeerId) (PeerRecord, bool) {
	return s.table.get(id.h)
}

// GetMut returns a mutable pointer to the peer record for id, if still valid.
func (s *PeerStore) GetMut(id PeerId) (*PeerRecord, bool) {
	return s.table.getMut(id.h)
}

// Remove deletes the peer record for id, returning it if it was present.
func (s *PeerStore) Remove(id PeerId) (PeerRecord, bool) {
	r, ok := s.table.remove(id.h)
	if ok {
		delete(s.macToID, r.Identity.Physical.DevAddr)
	}
	return r, ok
}

// Clear drops every peer record and index entry.
func (s *PeerStore) Clear() {
	s.table.clear()
	s.macToID = make(map[netutil.MAC]PeerId)
}

// Len reports the number of live peer records.
func (s *PeerStore) Len() int { return s.table.len() }

// IDByMAC resolves a peer's handle from its device MAC, the lookup the radio
// driver's "update devices" bursts need.
func (s *PeerStore) IDByMAC(mac netutil.MAC) (PeerId, bool) {
	id, ok := s.macToID[mac]
	return id, ok
}

// Each calls fn for every live peer record, in unspecified order.
func (s *PeerStore) Each(fn func(PeerId, *PeerRecord)) {
	s.table.each(func(h rawHandle, v *PeerRecord) { fn(PeerId{h: h}, v) })
}

// invariant (debug-only helper, not part of the public contract): the MAC
// index and the backing table must always agree on cardinality.
func (s *PeerStore) invariant() bool {
	return len(s.macToID) == s.table.len()
}
