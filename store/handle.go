// Package store implements the generational-handle peer and group maps the
// session owns: PeerId/GroupId remain valid only for the record they were
// issued for, so a freed slot reused by a later insert never aliases a
// stale handle still held by a caller.
package store

// rawHandle is the allocation index plus generation counter shared by the
// PeerId and GroupId handle types.
type rawHandle struct {
	index      uint32
	generation uint32
}

// slot holds one record's generation and, while occupied, its value.
type slot[V any] struct {
	generation uint32
	occupied   bool
	value      V
}

// table is the generic generational-handle map underlying both the peer and
// group stores. A freelist of vacated indices is reused on the next insert,
// bumping that slot's generation so handles issued before the removal
// compare unequal to the new occupant's handle.
type table[V any] struct {
	slots    []slot[V]
	freelist []uint32
}

func (t *table[V]) insert(v V) rawHandle {
	if n := len(t.freelist); n > 0 {
		idx := t.freelist[n-1]
		t.freelist = t.freelist[:n-1]
		s := &t.slots[idx]
		s.occupied = true
		s.value = v
		return rawHandle{index: idx, generation: s.generation}
	}

	idx := uint32(len(t.slots))
	t.slots = append(t.slots, slot[V]{generation: 0, occupied: true, value: v})
	return rawHandle{index: idx, generation: 0}
}

func (t *table[V]) get(h rawHandle) (V, bool) {
	var zero V
	if int(h.index) >= len(t.slots) {
		return zero, false
	}
	s := &t.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return zero, false
	}
	return s.value, true
}

func (t *table[V]) getMut(h rawHandle) (*V, bool) {
	if int(h.index) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return nil, false
	}
	return &s.value, true
}

func (t *table[V]) remove(h rawHandle) (V, bool) {
	var zero V
	if int(h.index) >= len(t.slots) {
		return zero, false
	}
	s := &t.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return zero, false
	}
	removed := s.value
	s.occupied = false
	s.value = zero
	s.generation++
	t.freelist = append(t.freelist, h.index)
	return removed, true
}

func (t *table[V]) clear() {
	var zero V
	t.freelist = t.freelist[:0]
	for i := range t.slots {
		s := &t.slots[i]
		if s.occupied {
			s.occupied = false
			s.value = zero
			s.generation++
		}
		t.freelist = append(t.freelist, uint32(i))
	}
}

func (t *table[V]) len() int {
	n := 0
	for _, s := range t.slots {
		if s.occupied {
			n++
		}
	}
	return n
}

// each calls fn for every occupied slot, in index order. Order is otherwise
// unspecified by the contract; index order is simply what the backing slice
// gives us for free.
func (t *table[V]) each(fn func(rawHandle, *V)) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.occupied {
			fn(rawHandle{index: uint32(i), generation: s.generation}, &s.value)
		}
	}
}
