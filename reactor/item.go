// File: reactor/item.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stable arena indices for reactor items, replacing the original
// implementation's raw-pointer-into-heterogeneous-map pattern per the
// design notes (§9): items are referenced externally only by an
// (generation, index) EventID, resolved through a slab. This eliminates
// dangling-pointer hazards when the fd table rehashes and the "fantom fd"
// cleanup paths the original needed.

package reactor

// EventID identifies one reactor item. Index is a slot in the reactor's
// slab; Generation guards against stale handles referencing a reused slot.
type EventID struct {
	Index      uint32
	Generation uint32
}

// Callback is invoked once per dispatched event for an item. kinds carries
// exactly one bit in normal dispatch (READ, WRITE, CLOSE or TIMER); it is
// never a union, so handlers can switch on a single value.
type Callback func(id EventID, fd int, kind Kind)

// item is the Event item of spec §3: one monitored resource.
type item struct {
	id          EventID
	fd          int
	timerReadFD int // -1 unless this item is a timer
	timerWrFD   int
	timerStop   chan struct{}
	delayMS     int
	series      bool
	enabled     Kind
	cb          Callback
}

type slab struct {
	items []*item
	gens  []uint32
	free  []uint32
}

func newSlab() *slab {
	return &slab{}
}

func (s *slab) alloc(it *item) EventID {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.items))
		s.items = append(s.items, nil)
		s.gens = append(s.gens, 0)
	}
	s.items[idx] = it
	id := EventID{Index: idx, Generation: s.gens[idx]}
	it.id = id
	return id
}

func (s *slab) get(id EventID) (*item, bool) {
	if int(id.Index) >= len(s.items) {
		return nil, false
	}
	if s.gens[id.Index] != id.Generation {
		return nil, false
	}
	it := s.items[id.Index]
	return it, it != nil
}

func (s *slab) free_(id EventID) {
	if int(id.Index) >= len(s.items) {
		return
	}
	if s.gens[id.Index] != id.Generation {
		return
	}
	s.items[id.Index] = nil
	s.gens[id.Index]++
	s.free = append(s.free, id.Index)
}

func (s *slab) len() int {
	return len(s.items) - len(s.free)
}

func (s *slab) all() []*item {
	out := make([]*item, 0, s.len())
	for _, it := range s.items {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}
