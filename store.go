package ecs

import "sort"

// record is one component occurrence, tagged with the entity-table index
// that owns it. Buffers are sorted ascending by ownerIndex; records sharing
// an ownerIndex are contiguous, matching §3's component-buffer invariant.
type record[T any] struct {
	ownerIndex uint32
	value      T
}

// pendingAction is the tagged-union payload described in §4.3/§9: either an
// add of some registered component type (payload holds a boxed T) or a
// removal tag (payload is nil, destructive distinguishes the two removal
// flavors used by §4.8 and §4.9).
type pendingAction struct {
	componentID ComponentID
	targetIndex int
	runLength   int
	ownerIndex  uint32
	ownerGUID   uint64
	payload     any // nil => removal; non-nil => boxed add value
	destructive bool
}

func (a pendingAction) isAdd() bool { return a.payload != nil }

// componentStore is the type-erased interface every Store[T] satisfies, so
// World can hold a single ordered []componentStore slice indexed by
// ComponentID the way the original indexes its variadic component tuple by
// a compile-time type id. Type safety at call sites is recovered by the
// generic free functions in iterator.go, which type-assert back to
// *Store[T] after resolving T's ComponentID from the registry.
type componentStore interface {
	ID() ComponentID
	PresentLen() int
	FutureLen() int
	AddCountDelta(delta int)
	Rebuild(actions []pendingAction) (addOps, deleteOps uint64)
	Swap()
	DestroyPresentRun(ownerIndex uint32, runLength int)
	DestroyAllPresent()
	FindPresentRun(ownerIndex uint32, hint int) (start, length int)
	FindFutureRun(ownerIndex uint32, hint int) (start, length int)
	GetPresentRaw(ownerIndex uint32, nth int) (any, bool)
	GetFutureRaw(ownerIndex uint32, nth int) (any, bool)
	InsertImmediateRaw(ownerIndex uint32, value any) bool
	RemoveAllPresentImmediate(ownerIndex uint32) (start, count int)
	QueueAddRaw(ownerIndex uint32, ownerGUID uint64, value any, q *PendingQueue) bool
}

// Store is the present/future double buffer for one component type.
type Store[T any] struct {
	id         ComponentID
	present    []record[T]
	future     []record[T]
	countDelta int
}

func newStore[T any](id ComponentID) *Store[T] {
	return &Store[T]{id: id}
}

// ID returns the component type's stable id.
func (s *Store[T]) ID() ComponentID { return s.id }

// PresentLen returns the present buffer's length.
func (s *Store[T]) PresentLen() int { return len(s.present) }

// FutureLen returns the future buffer's length.
func (s *Store[T]) FutureLen() int { return len(s.future) }

// AddCountDelta accumulates the pre-sizing delta used by Rebuild, per §4.3's
// "each queued action also updates a per-type count_delta[i]".
func (s *Store[T]) AddCountDelta(delta int) { s.countDelta += delta }

// runBounds returns [start, end) of records owned by ownerIndex within buf.
func runBounds[T any](buf []record[T], ownerIndex uint32) (int, int) {
	start := sort.Search(len(buf), func(i int) bool { return buf[i].ownerIndex >= ownerIndex })
	end := start
	for end < len(buf) && buf[end].ownerIndex == ownerIndex {
		end++
	}
	return start, end
}

// insertionTarget returns the index immediately following ownerIndex's run,
// i.e. the position a new record for ownerIndex must be inserted at to
// preserve ascending order — used by immediate (outside-tick) adds and by
// queue-time target_index computation for deferred adds.
func insertionTarget[T any](buf []record[T], ownerIndex uint32) int {
	_, end := runBounds(buf, ownerIndex)
	return end
}

// GetPresent returns the nth present-buffer record owned by ownerIndex, or
// false if absent — the "unsafe", authority-bypassing accessor from §4.2.
func (s *Store[T]) GetPresent(ownerIndex uint32, nth int) (*T, bool) {
	start, end := runBounds(s.present, ownerIndex)
	idx := start + nth
	if idx < start || idx >= end {
		return nil, false
	}
	return &s.present[idx].value, true
}

// GetFuture mirrors GetPresent against the future buffer.
func (s *Store[T]) GetFuture(ownerIndex uint32, nth int) (*T, bool) {
	start, end := runBounds(s.future, ownerIndex)
	idx := start + nth
	if idx < start || idx >= end {
		return nil, false
	}
	return &s.future[idx].value, true
}

// CountPresent reports ownerIndex's run length in the present buffer.
func (s *Store[T]) CountPresent(ownerIndex uint32) int {
	start, end := runBounds(s.present, ownerIndex)
	return end - start
}

// CountFuture reports ownerIndex's run length in the future buffer.
func (s *Store[T]) CountFuture(ownerIndex uint32) int {
	start, end := runBounds(s.future, ownerIndex)
	return end - start
}

// insertImmediate performs the outside-tick add path: binary-search
// insertion into present preserving sort order.
func (s *Store[T]) insertImmediate(ownerIndex uint32, value T) {
	at := insertionTarget(s.present, ownerIndex)
	s.present = append(s.present, record[T]{})
	copy(s.present[at+1:], s.present[at:])
	s.present[at] = record[T]{ownerIndex: ownerIndex, value: value}
}

// removeImmediateNth removes the nth present-buffer record owned by
// ownerIndex outside of a tick, invoking Destroy if the value implements
// Destroyer. Returns false if absent.
func (s *Store[T]) removeImmediateNth(ownerIndex uint32, nth int) bool {
	start, end := runBounds(s.present, ownerIndex)
	idx := start + nth
	if idx < start || idx >= end {
		return false
	}
	if d, ok := any(&s.present[idx].value).(Destroyer); ok {
		d.Destroy()
	}
	s.present = append(s.present[:idx], s.present[idx+1:]...)
	return true
}

// RemoveAllPresentImmediate destroys and splices out ownerIndex's entire
// present-buffer run outside of a tick, the bulk counterpart to
// removeImmediateNth used when an entity is removed immediately. Returns
// the run's former start and length so the caller can fix up already-queued
// pending actions the same way insertImmediate's caller does.
func (s *Store[T]) RemoveAllPresentImmediate(ownerIndex uint32) (int, int) {
	start, end := runBounds(s.present, ownerIndex)
	count := end - start
	if count == 0 {
		return start, 0
	}
	for i := start; i < end; i++ {
		if d, ok := any(&s.present[i].value).(Destroyer); ok {
			d.Destroy()
		}
	}
	s.present = append(s.present[:start], s.present[end:]...)
	return start, count
}

// Rebuild implements §4.4's buffer-rebuild algorithm restricted to the
// actions targeting this store's component type. actions must already be
// sorted by (target_index, owner.index, owner.guid) ascending — World sorts
// the full pending list once and hands every store the same slice, filtered
// implicitly by ID() inside the loop below (a stable subsequence of a
// sorted slice stays sorted). Returns the add/delete op counts this call
// performed, which World.applyComponentUpdates accumulates into
// WorldMetrics.Components for the "op counts per pass" half of §4.4.
func (s *Store[T]) Rebuild(actions []pendingAction) (addOps, deleteOps uint64) {
	future := make([]record[T], 0, len(s.present)+s.countDelta)
	srcCursor := 0
	for _, a := range actions {
		if a.componentID != s.id {
			continue
		}
		if a.isAdd() {
			future = append(future, s.present[srcCursor:a.targetIndex]...)
			v, _ := a.payload.(T)
			future = append(future, record[T]{ownerIndex: a.ownerIndex, value: v})
			srcCursor = a.targetIndex
			addOps++
			continue
		}
		// removal
		if a.destructive {
			for i := a.targetIndex; i < a.targetIndex+a.runLength; i++ {
				if d, ok := any(&s.present[i].value).(Destroyer); ok {
					d.Destroy()
				}
			}
		}
		future = append(future, s.present[srcCursor:a.targetIndex]...)
		srcCursor = a.targetIndex + a.runLength
		deleteOps += uint64(a.runLength)
	}
	future = append(future, s.present[srcCursor:]...)
	s.future = future
	s.countDelta = 0
	return addOps, deleteOps
}

// Swap makes future the new present, clearing future for reuse.
func (s *Store[T]) Swap() {
	s.present, s.future = s.future, s.present[:0]
}

// DestroyPresentRun invokes Destroy on up to runLength present records
// starting at ownerIndex's run, without removing them from the buffer. The
// World's own removal paths do not call it: immediate entity removal uses
// RemoveAllPresentImmediate and world teardown uses DestroyAllPresent.
func (s *Store[T]) DestroyPresentRun(ownerIndex uint32, runLength int) {
	start, _ := runBounds(s.present, ownerIndex)
	for i := start; i < start+runLength && i < len(s.present); i++ {
		if d, ok := any(&s.present[i].value).(Destroyer); ok {
			d.Destroy()
		}
	}
}

// DestroyAllPresent invokes Destroy on every present-buffer record — called
// once per type at world teardown.
func (s *Store[T]) DestroyAllPresent() {
	for i := range s.present {
		if d, ok := any(&s.present[i].value).(Destroyer); ok {
			d.Destroy()
		}
	}
}

// GetPresentRaw is the type-erased counterpart of GetPresent, backing the
// raw (type-id keyed) accessor family from §6.
func (s *Store[T]) GetPresentRaw(ownerIndex uint32, nth int) (any, bool) {
	v, ok := s.GetPresent(ownerIndex, nth)
	if !ok {
		return nil, false
	}
	return *v, true
}

// GetFutureRaw is the type-erased counterpart of GetFuture.
func (s *Store[T]) GetFutureRaw(ownerIndex uint32, nth int) (any, bool) {
	v, ok := s.GetFuture(ownerIndex, nth)
	if !ok {
		return nil, false
	}
	return *v, true
}

// InsertImmediateRaw type-asserts value to T and performs an immediate
// insert, reporting false if value is not of the store's component type.
func (s *Store[T]) InsertImmediateRaw(ownerIndex uint32, value any) bool {
	v, ok := value.(T)
	if !ok {
		return false
	}
	s.insertImmediate(ownerIndex, v)
	return true
}

// QueueAddRaw enqueues an add of value (type-asserted to T) against q, the
// type-erased counterpart of the add-path AddComponent uses, needed because
// migration.go adds records across two worlds' component registries without
// knowing either side's concrete T.
func (s *Store[T]) QueueAddRaw(ownerIndex uint32, ownerGUID uint64, value any, q *PendingQueue) bool {
	v, ok := value.(T)
	if !ok {
		return false
	}
	targetIndex := insertionTarget(s.future, ownerIndex)
	q.Enqueue(pendingAction{
		componentID: s.id,
		targetIndex: targetIndex,
		ownerIndex:  ownerIndex,
		ownerGUID:   ownerGUID,
		payload:     v,
	})
	s.AddCountDelta(1)
	return true
}

// FindPresentRun locates ownerIndex's run in the present buffer, using hint
// (the previous entity's run start, or -1) as a forward-probe starting
// point per §4.6's index-tracking optimization.
func (s *Store[T]) FindPresentRun(ownerIndex uint32, hint int) (int, int) {
	return findRun(s.present, ownerIndex, hint)
}

// FindFutureRun mirrors FindPresentRun against the future buffer.
func (s *Store[T]) FindFutureRun(ownerIndex uint32, hint int) (int, int) {
	return findRun(s.future, ownerIndex, hint)
}

// probeWindow is the "fixed small window" §4.6 and §9 call a tunable
// constant, not a contract; 5 matches the original's measured value.
const probeWindow = 5

// findRun locates ownerIndex's contiguous run in a sorted-by-ownerIndex
// buffer. If hint is within probeWindow steps of the answer it is found by
// a linear scan; otherwise it falls back to a binary search.
func findRun[T any](buf []record[T], ownerIndex uint32, hint int) (int, int) {
	start := -1
	if hint >= 0 {
		limit := hint + probeWindow
		if limit > len(buf) {
			limit = len(buf)
		}
		for i := hint; i < limit; i++ {
			if buf[i].ownerIndex == ownerIndex {
				start = i
				break
			}
			if buf[i].ownerIndex > ownerIndex {
				break
			}
		}
	}
	if start < 0 {
		start = sort.Search(len(buf), func(i int) bool { return buf[i].ownerIndex >= ownerIndex })
		if start >= len(buf) || buf[start].ownerIndex != ownerIndex {
			return -1, 0
		}
	}
	end := start
	for end < len(buf) && buf[end].ownerIndex == ownerIndex {
		end++
	}
	return start, end - start
}
