package store

import (
	"testing"

	"github.com/emilio/ngn/identity"
	"github.com/emilio/ngn/netutil"
	"github.com/stretchr/testify/require"
)

func mac(b byte) netutil.MAC {
	m, err := netutil.ParseMAC([]byte{b, 1, 2, 3, 4, 5})
	if err != nil {
		panic(err)
	}
	return m
}

func TestPeerStoreInsertGetRemove(t *testing.T) {
	s := NewPeerStore()
	id := s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "a", DevAddr: mac(1)}}})

	got, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, "a", got.Identity.Physical.Name)

	removed, ok := s.Remove(id)
	require.True(t, ok)
	require.Equal(t, "a", removed.Identity.Physical.Name)

	_, ok = s.Get(id)
	require.False(t, ok)
}

func TestPeerStoreHandleDoesNotAliasAfterReuse(t *testing.T) {
	s := NewPeerStore()
	first := s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "first", DevAddr: mac(1)}}})
	_, ok := s.Remove(first)
	require.True(t, ok)

	second := s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "second", DevAddr: mac(2)}}})
	require.Equal(t, first.h.index, second.h.index, "slot should be reused")
	require.NotEqual(t, first.h.generation, second.h.generation, "generation must bump on reuse")

	_, ok = s.Get(first)
	require.False(t, ok, "stale handle must not alias the new occupant")

	got, ok := s.Get(second)
	require.True(t, ok)
	require.Equal(t, "second", got.Identity.Physical.Name)
}

func TestPeerStoreIDByMAC(t *testing.T) {
	s := NewPeerStore()
	m := mac(7)
	id := s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "p", DevAddr: m}}})

	got, ok := s.IDByMAC(m)
	require.True(t, ok)
	require.Equal(t, id, got)

	s.Remove(id)
	_, ok = s.IDByMAC(m)
	require.False(t, ok)
}

func TestPeerStoreInvariant(t *testing.T) {
	s := NewPeerStore()
	s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "a", DevAddr: mac(1)}}})
	id2 := s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "b", DevAddr: mac(2)}}})
	require.True(t, s.invariant())

	s.Remove(id2)
	require.True(t, s.invariant())
}

func TestPeerStoreGetMutMutatesInPlace(t *testing.T) {
	s := NewPeerStore()
	id := s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "a", DevAddr: mac(1)}}})

	rec, ok := s.GetMut(id)
	require.True(t, ok)
	rec.Groups = append(rec.Groups, GroupId{})

	got, _ := s.Get(id)
	require.Len(t, got.Groups, 1)
}

func TestPeerStoreClear(t *testing.T) {
	s := NewPeerStore()
	s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "a", DevAddr: mac(1)}}})
	s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "b", DevAddr: mac(2)}}})

	s.Clear()
	require.Equal(t, 0, s.Len())
	require.True(t, s.invariant())
}

func TestPeerStoreEach(t *testing.T) {
	s := NewPeerStore()
	s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "a", DevAddr: mac(1)}}})
	s.Insert(PeerRecord{Identity: PeerIdentity{Physical: identity.PhysicalPeerIdentity{Name: "b", DevAddr: mac(2)}}})

	seen := map[string]bool{}
	s.Each(func(_ PeerId, r *PeerRecord) { seen[r.Identity.Physical.Name] = true })
	require.Equal(t, map[string]bool{"a": true, "b": true}, seen)
}

func TestGroupStoreInsertGetRemoveByPath(t *testing.T) {
	s := NewGroupStore()
	id := s.Insert("/p2p/group0", GroupRecord{IfaceName: "p2p0", Peers: map[PeerId]PeerGroupInfo{}})

	got, ok := s.IDByPath("/p2p/group0")
	require.True(t, ok)
	require.Equal(t, id, got)

	rec, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, "p2p0", rec.IfaceName)

	s.Remove(id)
	_, ok = s.IDByPath("/p2p/group0")
	require.False(t, ok)
}

func TestGroupStoreInsertWithoutPath(t *testing.T) {
	s := NewGroupStore()
	id := s.Insert("", GroupRecord{IfaceName: "p2p0"})

	_, ok := s.Get(id)
	require.True(t, ok)
}

type stoppedTask struct{ stopped bool }

func (t *stoppedTask) Stop() { t.stopped = true }

func TestGroupStoreRemoveStopsTask(t *testing.T) {
	s := NewGroupStore()
	task := &stoppedTask{}
	id := s.Insert("", GroupRecord{Task: task})

	s.Remove(id)
	require.True(t, task.stopped)
}

func TestGroupStoreClearStopsAllTasks(t *testing.T) {
	s := NewGroupStore()
	a, b := &stoppedTask{}, &stoppedTask{}
	s.Insert("", GroupRecord{Task: a})
	s.Insert("", GroupRecord{Task: b})

	s.Clear()
	require.True(t, a.stopped)
	require.True(t, b.stopped)
	require.Equal(t, 0, s.Len())
}

func TestGroupRecordHasPeer(t *testing.T) {
	pid := PeerId{h: rawHandle{index: 1}}
	r := GroupRecord{Peers: map[PeerId]PeerGroupInfo{pid: {}}}
	require.True(t, r.HasPeer(pid))
	require.False(t, r.HasPeer(PeerId{h: rawHandle{index: 2}}))
}
