// Package storage adapts the teacher's dense/shared component-storage
// strategies into read-only debug views over a World's double-buffered
// component stores. Neither type owns data: spec §4.2 fixes the present/
// future buffer as the only storage mechanism, so these snapshot it on
// demand for tooling (inspectors, profilers) rather than holding it.
package storage

import ecs "github.com/ivancb/aurumecs"

// DenseEntry pairs a live entity with its component value at snapshot time.
type DenseEntry struct {
	Entity EntityID
	Value  any
}

// EntityID mirrors ecs.EntityID's shape so callers of this package don't
// need to import the core package just to read a snapshot entry; it is
// always constructed from a real ecs.EntityID.
type EntityID = ecs.EntityID

// DenseSnapshot is a point-in-time, index-ordered copy of every live
// entity's first occurrence of one component type's present buffer.
// Grounded on the teacher's denseStore (slot-array occupancy scan),
// re-pointed at World's raw accessors instead of owning the slots.
type DenseSnapshot struct {
	entries []DenseEntry
	byGUID  map[uint64]int
}

// NewDenseSnapshot walks w's entity table in slot order, via a read-only
// iterator required on id, and captures the 0th present-buffer record for
// every matching entity.
func NewDenseSnapshot(w *ecs.World, id ecs.ComponentID) *DenseSnapshot {
	snap := &DenseSnapshot{byGUID: make(map[uint64]int)}
	it, err := ecs.NewReadOnlyIterator(w, []ecs.ComponentID{id}, nil)
	if err != nil {
		return snap
	}
	for it.Advance() {
		h, err := it.EntityRef()
		if err != nil {
			continue
		}
		value, ok := w.GetRawComponent(id, h, 0)
		if !ok {
			continue
		}
		snap.byGUID[h.GUID] = len(snap.entries)
		snap.entries = append(snap.entries, DenseEntry{Entity: h, Value: value})
	}
	return snap
}

// Len reports how many entities were captured.
func (s *DenseSnapshot) Len() int { return len(s.entries) }

// Has reports whether id's entity was captured in this snapshot.
func (s *DenseSnapshot) Has(id ecs.EntityID) bool {
	_, ok := s.byGUID[id.GUID]
	return ok
}

// Get returns the captured value for id, if any.
func (s *DenseSnapshot) Get(id ecs.EntityID) (any, bool) {
	i, ok := s.byGUID[id.GUID]
	if !ok {
		return nil, false
	}
	return s.entries[i].Value, true
}

// Iterate visits every captured (entity, value) pair in table order, until
// fn returns false.
func (s *DenseSnapshot) Iterate(fn func(ecs.EntityID, any) bool) {
	for _, e := range s.entries {
		if !fn(e.Entity, e.Value) {
			return
		}
	}
}
