package ecs

import (
	"fmt"
	"reflect"
)

// TypeSet names the three disjoint component-type sets an iterator is
// parameterized by: Required (read-only present, entity must have it),
// Authority (read present / write future, entity must have it), and
// Optional (nullable, both present and future accessible).
type TypeSet struct {
	Required  []ComponentID
	Authority []ComponentID
	Optional  []ComponentID
}

func (ts TypeSet) validate(numTypes int) error {
	seen := map[ComponentID]bool{}
	for _, id := range ts.Required {
		if int(id) < 0 || int(id) >= numTypes {
			return fmt.Errorf("%w: required id %d", ErrInvalidTypeSet, id)
		}
		seen[id] = true
	}
	for _, id := range ts.Optional {
		if int(id) < 0 || int(id) >= numTypes {
			return fmt.Errorf("%w: optional id %d", ErrInvalidTypeSet, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: %d present in both required and optional", ErrInvalidTypeSet, id)
		}
	}
	for _, id := range ts.Authority {
		if int(id) < 0 || int(id) >= numTypes {
			return fmt.Errorf("%w: authority id %d", ErrInvalidTypeSet, id)
		}
	}
	return nil
}

// ComponentIDOf resolves T's stable id within w, failing with
// ErrComponentNotRegistered if T was never registered.
func ComponentIDOf[T any](w *World) (ComponentID, error) {
	return componentIDFor[T](w)
}

// Iterator is a cursor over live entities satisfying a TypeSet, walking the
// entity table in slot order and tracking each relevant component buffer's
// current run via the ≤5-step probe / binary-search hybrid of §4.6.
type Iterator struct {
	world        *World
	ts           TypeSet
	presentOf    map[ComponentID]struct{} // required ∪ optional
	futureOf     map[ComponentID]struct{} // authority ∪ optional
	authorityOf  map[ComponentID]struct{}
	authorityGen int

	index      int
	positioned bool
	ownerIndex uint32

	presentHint map[ComponentID]int
	futureHint  map[ComponentID]int
	presentRun  map[ComponentID][2]int
	futureRun   map[ComponentID][2]int
}

// NewIterator constructs a cursor over ts. An authoritative iterator (one
// with a non-empty Authority set) may only be constructed while the world
// is ticking and requires one key per authority type, or a single key
// broadcast to all of them.
func NewIterator(w *World, ts TypeSet, keys ...any) (*Iterator, error) {
	if err := ts.validate(w.components.count()); err != nil {
		return nil, err
	}
	authorityGen := -1
	if len(ts.Authority) > 0 {
		if !w.Ticking() {
			return nil, ErrInvalidProcessState
		}
		resolved := make([]any, len(ts.Authority))
		switch {
		case len(keys) == 1:
			for i := range resolved {
				resolved[i] = keys[0]
			}
		case len(keys) == len(ts.Authority):
			copy(resolved, keys)
		default:
			return nil, fmt.Errorf("%w: expected 1 or %d authority keys, got %d", ErrInvalidTypeSet, len(ts.Authority), len(keys))
		}
		if err := w.authority.Acquire(ts.Authority, resolved); err != nil {
			return nil, err
		}
		authorityGen = w.authority.Generation()
	}

	it := &Iterator{
		world:        w,
		ts:           ts,
		presentOf:    map[ComponentID]struct{}{},
		futureOf:     map[ComponentID]struct{}{},
		authorityOf:  map[ComponentID]struct{}{},
		authorityGen: authorityGen,
		index:        -1,
		presentHint:  map[ComponentID]int{},
		futureHint:   map[ComponentID]int{},
		presentRun:   map[ComponentID][2]int{},
		futureRun:    map[ComponentID][2]int{},
	}
	for _, id := range ts.Required {
		it.presentOf[id] = struct{}{}
		it.presentHint[id] = -1
	}
	for _, id := range ts.Optional {
		it.presentOf[id] = struct{}{}
		it.futureOf[id] = struct{}{}
		it.presentHint[id] = -1
		it.futureHint[id] = -1
	}
	for _, id := range ts.Authority {
		it.futureOf[id] = struct{}{}
		it.authorityOf[id] = struct{}{}
		it.futureHint[id] = -1
	}
	return it, nil
}

// NewReadOnlyIterator constructs an iterator with an empty Authority set,
// which requires no authority acquisition and is constructible at any time,
// including outside of a tick.
func NewReadOnlyIterator(w *World, required, optional []ComponentID) (*Iterator, error) {
	return NewIterator(w, TypeSet{Required: required, Optional: optional})
}

func (it *Iterator) satisfies(presentCount []uint8) bool {
	for _, id := range it.ts.Required {
		if int(id) >= len(presentCount) || presentCount[id] == 0 {
			return false
		}
	}
	for _, id := range it.ts.Authority {
		if int(id) >= len(presentCount) || presentCount[id] == 0 {
			return false
		}
	}
	return true
}

// Advance moves to the next matching entity, returning false when iteration
// is exhausted.
func (it *Iterator) Advance() bool {
	n := it.world.entities.Len()
	for it.index++; it.index < n; it.index++ {
		guid, presentCount, ok := it.world.entities.SlotAt(it.index)
		if !ok || guid == 0 {
			continue
		}
		if !it.satisfies(presentCount) {
			continue
		}
		it.ownerIndex = uint32(it.index)
		it.updateBufferIndices()
		it.positioned = true
		return true
	}
	it.positioned = false
	return false
}

// AdvanceN advances n times, short-circuiting on exhaustion.
func (it *Iterator) AdvanceN(n int) bool {
	for i := 0; i < n; i++ {
		if !it.Advance() {
			return false
		}
	}
	return true
}

func (it *Iterator) updateBufferIndices() {
	for id := range it.presentOf {
		store := it.world.stores[id]
		hint := it.presentHint[id]
		start, length := store.FindPresentRun(it.ownerIndex, hint)
		it.presentHint[id] = start
		it.presentRun[id] = [2]int{start, length}
	}
	for id := range it.futureOf {
		store := it.world.stores[id]
		hint := it.futureHint[id]
		start, length := store.FindFutureRun(it.ownerIndex, hint)
		it.futureHint[id] = start
		it.futureRun[id] = [2]int{start, length}
	}
}

// EntityRef returns the handle for the currently positioned entity.
func (it *Iterator) EntityRef() (EntityID, error) {
	if !it.positioned {
		return EntityID{}, ErrInvalidIteratorState
	}
	return it.world.entities.GetByIndex(it.ownerIndex)
}

// SeekTo is unimplemented: the original's ComponentIterator::SeekTo has no
// effective body (§9). Kept as an explicit error rather than a silent no-op.
func (it *Iterator) SeekTo(EntityID) error {
	return ErrNotImplemented
}

// Count returns present_count for T at the current entity.
func Count[T any](it *Iterator) (int, error) {
	id, err := componentIDFor[T](it.world)
	if err != nil {
		return 0, err
	}
	if !it.positioned {
		return 0, ErrInvalidIteratorState
	}
	return int(it.world.entities.PresentCountAt(it.ownerIndex, id)), nil
}

// CountEdit returns internal_count for T at the current entity.
func CountEdit[T any](it *Iterator) (int, error) {
	id, err := componentIDFor[T](it.world)
	if err != nil {
		return 0, err
	}
	if !it.positioned {
		return 0, ErrInvalidIteratorState
	}
	return int(it.world.entities.InternalCountAt(it.ownerIndex, id)), nil
}

func storeFor[T any](w *World, id ComponentID) (*Store[T], error) {
	cs := w.stores[id]
	s, ok := cs.(*Store[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s is not backed by %s", ErrComponentNotRegistered, id, reflect.TypeOf((*T)(nil)).Elem())
	}
	return s, nil
}

// Get reads the nth present-buffer record of type T (T ∈ Required).
func Get[T any](it *Iterator, nth int) (*T, error) {
	if !it.positioned {
		return nil, ErrInvalidIteratorState
	}
	id, err := componentIDFor[T](it.world)
	if err != nil {
		return nil, err
	}
	run, ok := it.presentRun[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in required/optional set", ErrInvalidTypeSet, id)
	}
	if nth < 0 || nth >= run[1] {
		return nil, ErrOutOfRange
	}
	s, err := storeFor[T](it.world, id)
	if err != nil {
		return nil, err
	}
	return &s.present[run[0]+nth].value, nil
}

// Edit writes to the nth future-buffer record of type T (T ∈ Authority). If T
// is an authority type and the iterator's authority claim has been
// invalidated by a since-passed group boundary (AuthorityTable.Clear having
// run since this iterator was constructed), it returns ErrMissingAuthority
// instead of writing through a stale claim.
func Edit[T any](it *Iterator, nth int) (*T, error) {
	if !it.positioned {
		return nil, ErrInvalidIteratorState
	}
	id, err := componentIDFor[T](it.world)
	if err != nil {
		return nil, err
	}
	if _, isAuthority := it.authorityOf[id]; isAuthority && it.world.authority.Generation() != it.authorityGen {
		return nil, ErrMissingAuthority
	}
	run, ok := it.futureRun[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in authority/optional set", ErrInvalidTypeSet, id)
	}
	if nth < 0 || nth >= run[1] {
		return nil, ErrOutOfRange
	}
	s, err := storeFor[T](it.world, id)
	if err != nil {
		return nil, err
	}
	return &s.future[run[0]+nth].value, nil
}

// GetOptional reads the nth present-buffer record of type T (T ∈ Optional),
// returning ok=false rather than an error when the record is absent.
func GetOptional[T any](it *Iterator, nth int) (*T, bool, error) {
	if !it.positioned {
		return nil, false, ErrInvalidIteratorState
	}
	id, err := componentIDFor[T](it.world)
	if err != nil {
		return nil, false, err
	}
	run, ok := it.presentRun[id]
	if !ok || nth < 0 || nth >= run[1] {
		return nil, false, nil
	}
	s, err := storeFor[T](it.world, id)
	if err != nil {
		return nil, false, err
	}
	return &s.present[run[0]+nth].value, true, nil
}

// EditOptional mirrors GetOptional against the future buffer.
func EditOptional[T any](it *Iterator, nth int) (*T, bool, error) {
	if !it.positioned {
		return nil, false, ErrInvalidIteratorState
	}
	id, err := componentIDFor[T](it.world)
	if err != nil {
		return nil, false, err
	}
	run, ok := it.futureRun[id]
	if !ok || nth < 0 || nth >= run[1] {
		return nil, false, nil
	}
	s, err := storeFor[T](it.world, id)
	if err != nil {
		return nil, false, err
	}
	return &s.future[run[0]+nth].value, true, nil
}
