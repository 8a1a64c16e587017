package ecs

import (
	"fmt"
	"sort"
	"sync"
)

// MaxIndex is the sentinel slot index meaning "unplaced / pending creation".
const MaxIndex uint32 = ^uint32(0)

// EntityID is a copyable entity handle: (guid, index, user value). It may go
// stale after a migration or removal; callers re-resolve through World.Find
// to self-repair a stale handle via its guid.
type EntityID struct {
	GUID      uint64
	Index     uint32
	UserValue uint64
}

// IsZero reports whether the identifier is the invalid zero value. guid==0
// is reserved to mean "invalid" throughout the entity table.
func (id EntityID) IsZero() bool {
	return id.GUID == 0
}

// Pending reports whether the handle was issued for a queued creation whose
// real slot index has not yet been assigned by an entity-update phase.
func (id EntityID) Pending() bool {
	return id.Index == MaxIndex
}

func (id EntityID) String() string {
	if id.IsZero() {
		return "EntityID(invalid)"
	}
	if id.Pending() {
		return fmt.Sprintf("EntityID(guid=%d,pending)", id.GUID)
	}
	return fmt.Sprintf("EntityID(guid=%d,index=%d)", id.GUID, id.Index)
}

// entitySlot is the dense per-index record backing a live or free entity.
// present_count and internal_count are equal outside of a tick; during a
// tick internal_count tracks applied-but-not-yet-swapped mutations.
type entitySlot struct {
	guid          uint64
	userValue     uint64
	presentCount  []uint8
	internalCount []uint8
}

func (s *entitySlot) free() bool { return s.guid == 0 }

func (s *entitySlot) reset(numTypes int) {
	s.guid = 0
	s.userValue = 0
	if cap(s.presentCount) >= numTypes {
		s.presentCount = s.presentCount[:numTypes]
		s.internalCount = s.internalCount[:numTypes]
		for i := range s.presentCount {
			s.presentCount[i] = 0
			s.internalCount[i] = 0
		}
	} else {
		s.presentCount = make([]uint8, numTypes)
		s.internalCount = make([]uint8, numTypes)
	}
}

type searchEntry struct {
	guid  uint64
	index uint32
}

// pendingEntityAdd is a queued creation. Add always queues it with index
// MaxIndex, and ApplyPendingUpdates allocates a slot for it from the free
// list or by appending; no preassigned index is honoured. Migration does not
// go through this queue (see AllocateForMigration).
type pendingEntityAdd struct {
	guid      uint64
	index     uint32
	userValue uint64
}

// EntityTable owns entity slots, the free list, and the lazily-rebuilt
// sorted-by-guid search index. Grounded on the teacher's generation-based
// EntityRegistry for the locking/recycling shape, and on the original
// aurumecs World's mEntities/mEntitySearchList/mFreeIndices for the exact
// guid-indexed search and free-list semantics the spec requires.
type EntityTable struct {
	mu       sync.Mutex
	slots    []entitySlot
	free     []uint32
	nextGUID uint64
	numTypes int

	search      []searchEntry
	searchDirty bool

	pendingAdds    []pendingEntityAdd
	pendingRemoves []EntityID
}

// NewEntityTable constructs an empty table sized for numTypes component types.
func NewEntityTable(numTypes int) *EntityTable {
	return &EntityTable{
		nextGUID: 1,
		numTypes: numTypes,
	}
}

// Reserve grows the backing slot and search-index storage to hold at least n
// entities without reallocating, mirroring the original's paired reservation
// of mEntities and mEntitySearchList.
func (t *EntityTable) Reserve(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cap(t.slots) < n {
		grown := make([]entitySlot, len(t.slots), n)
		copy(grown, t.slots)
		t.slots = grown
	}
	if cap(t.search) < n {
		grown := make([]searchEntry, len(t.search), n)
		copy(grown, t.search)
		t.search = grown
	}
}

// growNumTypes is called when a new component type is registered after the
// table already holds entities, extending every slot's count vectors.
func (t *EntityTable) growNumTypes(numTypes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if numTypes <= t.numTypes {
		return
	}
	for i := range t.slots {
		if t.slots[i].free() {
			continue
		}
		for len(t.slots[i].presentCount) < numTypes {
			t.slots[i].presentCount = append(t.slots[i].presentCount, 0)
			t.slots[i].internalCount = append(t.slots[i].internalCount, 0)
		}
	}
	t.numTypes = numTypes
}

// Add allocates or enqueues an entity creation. Outside a tick it allocates
// immediately from the free list or by appending. Inside a tick it enqueues
// a pending addition and returns a handle whose Index is MaxIndex until the
// next entity-update phase assigns the real slot.
func (t *EntityTable) Add(ticking bool, userValue uint64) EntityID {
	t.mu.Lock()
	defer t.mu.Unlock()

	guid := t.nextGUID
	t.nextGUID++

	if !ticking {
		index := t.allocateSlotLocked(guid, userValue)
		return EntityID{GUID: guid, Index: index, UserValue: userValue}
	}

	t.pendingAdds = append(t.pendingAdds, pendingEntityAdd{guid: guid, index: MaxIndex, userValue: userValue})
	t.searchDirty = true
	return EntityID{GUID: guid, Index: MaxIndex, UserValue: userValue}
}

func (t *EntityTable) allocateSlotLocked(guid, userValue uint64) uint32 {
	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[index].reset(t.numTypes)
		t.slots[index].guid = guid
		t.slots[index].userValue = userValue
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, entitySlot{
			guid:          guid,
			userValue:     userValue,
			presentCount:  make([]uint8, t.numTypes),
			internalCount: make([]uint8, t.numTypes),
		})
	}
	t.searchDirty = true
	return index
}

// Remove de-duplicates against the pending-removal queue outside a tick too;
// a second removal of an already-queued (guid,index) within the same tick
// is a no-op success, matching §4.1's remove semantics.
func (t *EntityTable) Remove(ticking bool, id EntityID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id.IsZero() {
		return false
	}
	for _, pending := range t.pendingRemoves {
		if pending.GUID == id.GUID {
			return true
		}
	}
	if !id.Pending() {
		if !t.isAliveLocked(id) {
			return false
		}
	} else {
		if !t.isPendingLocked(id.GUID) {
			return false
		}
	}

	if !ticking && !id.Pending() {
		t.freeSlotLocked(id.Index)
		return true
	}

	t.pendingRemoves = append(t.pendingRemoves, id)
	return true
}

func (t *EntityTable) freeSlotLocked(index uint32) {
	t.slots[index].reset(t.numTypes)
	t.free = append(t.free, index)
	t.searchDirty = true
}

func (t *EntityTable) isAliveLocked(id EntityID) bool {
	if int(id.Index) >= len(t.slots) {
		return false
	}
	return t.slots[id.Index].guid == id.GUID
}

func (t *EntityTable) isPendingLocked(guid uint64) bool {
	for _, p := range t.pendingAdds {
		if p.guid == guid {
			return true
		}
	}
	return false
}

// IsValid reports whether the handle currently refers to a live (or still
// pending) entity.
func (t *EntityTable) IsValid(id EntityID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id.IsZero() {
		return false
	}
	if id.Pending() {
		return t.isPendingLocked(id.GUID)
	}
	return t.isAliveLocked(id)
}

// Count returns the number of live (placed) entities.
func (t *EntityTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots) - len(t.free)
}

// CountPending returns the net number of entities queued for creation minus
// those queued for removal, matching the original's CountPendingEntities.
func (t *EntityTable) CountPending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pendingAdds) - len(t.pendingRemoves)
}

// GetByIndex resolves the handle currently occupying slot i.
func (t *EntityTable) GetByIndex(i uint32) (EntityID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(i) >= len(t.slots) || t.slots[i].free() {
		return EntityID{}, ErrOutOfRange
	}
	s := &t.slots[i]
	return EntityID{GUID: s.guid, Index: i, UserValue: s.userValue}, nil
}

// rebuildSearchLocked sorts a fresh copy of every live slot's identity by
// guid. Lazily invoked by Find/FindExt, matching the original's
// FindFirstEntity lazy-rebuild-then-binary-search approach.
func (t *EntityTable) rebuildSearchLocked() {
	if !t.searchDirty {
		return
	}
	t.search = t.search[:0]
	for i := range t.slots {
		if t.slots[i].free() {
			continue
		}
		t.search = append(t.search, searchEntry{guid: t.slots[i].guid, index: uint32(i)})
	}
	sort.Slice(t.search, func(a, b int) bool { return t.search[a].guid < t.search[b].guid })
	t.searchDirty = false
}

// Find resolves a live handle by guid, or reports false.
func (t *EntityTable) Find(guid uint64) (EntityID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if guid == 0 {
		return EntityID{}, false
	}
	t.rebuildSearchLocked()
	i := sort.Search(len(t.search), func(i int) bool { return t.search[i].guid >= guid })
	if i >= len(t.search) || t.search[i].guid != guid {
		return EntityID{}, false
	}
	entry := t.search[i]
	return EntityID{GUID: entry.guid, Index: entry.index, UserValue: t.slots[entry.index].userValue}, true
}

// FindExt additionally searches the pending-additions queue, returning a
// handle with Index==MaxIndex when the guid belongs to a not-yet-placed entity.
func (t *EntityTable) FindExt(guid uint64) (EntityID, bool) {
	if h, ok := t.Find(guid); ok {
		return h, true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.pendingAdds {
		if p.guid == guid {
			return EntityID{GUID: p.guid, Index: MaxIndex, UserValue: p.userValue}, true
		}
	}
	return EntityID{}, false
}

// ApplyPendingUpdates performs the entity-update phase of the tick pipeline
// (§4.8 step 2): removals first (cancelling any removal of a still-pending
// addition outright, and otherwise handing the caller the slot's present
// counts so it can enqueue non-destructive bulk component removals before
// the slot is reset and freed), then additions (allocating a real slot and
// reporting its index so the caller can fix up any components that were
// queued against the provisional handle).
func (t *EntityTable) ApplyPendingUpdates(onRemove func(index uint32, presentCounts []uint8), onAdd func(guid uint64, index uint32)) {
	t.mu.Lock()
	removes := t.pendingRemoves
	adds := t.pendingAdds
	t.pendingRemoves = nil
	t.pendingAdds = nil
	t.mu.Unlock()

	for _, id := range removes {
		if id.Pending() {
			for i, a := range adds {
				if a.guid == id.GUID {
					adds = append(adds[:i], adds[i+1:]...)
					break
				}
			}
			continue
		}

		t.mu.Lock()
		if int(id.Index) >= len(t.slots) || t.slots[id.Index].guid != id.GUID {
			t.mu.Unlock()
			continue
		}
		counts := append([]uint8(nil), t.slots[id.Index].presentCount...)
		t.mu.Unlock()

		if onRemove != nil {
			onRemove(id.Index, counts)
		}

		t.mu.Lock()
		t.freeSlotLocked(id.Index)
		t.mu.Unlock()
	}

	for _, a := range adds {
		t.mu.Lock()
		index := t.allocateSlotLocked(a.guid, a.userValue)
		t.mu.Unlock()
		if onAdd != nil {
			onAdd(a.guid, index)
		}
	}
}

// AllocateForMigration allocates a destination slot carrying guid and
// userValue, reusing a free slot if one is available, for Migrate's step 1.
func (t *EntityTable) AllocateForMigration(guid, userValue uint64) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocateSlotLocked(guid, userValue)
}

// InvalidateForMigration marks the slot at index invalid and returns it to
// the free list, for Migrate's step 2. Unlike Remove, this never touches
// the pending-removal queue — migration drives the source slot's lifecycle
// directly.
func (t *EntityTable) InvalidateForMigration(index uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.freeSlotLocked(index)
}

// slot returns a pointer to the live slot backing id, or nil.
func (t *EntityTable) slot(id EntityID) *entitySlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id.Pending() || int(id.Index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[id.Index]
	if s.guid != id.GUID {
		return nil
	}
	return s
}

// Len returns the size of the dense slot table, live and free alike; the
// iterator walks table order over this range.
func (t *EntityTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// SlotAt returns index i's guid and present-count vector, or ok=false if
// the slot is free.
func (t *EntityTable) SlotAt(i int) (guid uint64, presentCount []uint8, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.slots) || t.slots[i].free() {
		return 0, nil, false
	}
	return t.slots[i].guid, t.slots[i].presentCount, true
}

// PresentCountAt returns present_count[id] for the live slot at index i.
func (t *EntityTable) PresentCountAt(i uint32, id ComponentID) uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(i) >= len(t.slots) || int(id) >= len(t.slots[i].presentCount) {
		return 0
	}
	return t.slots[i].presentCount[id]
}

// InternalCountAt returns internal_count[id] for the live slot at index i.
func (t *EntityTable) InternalCountAt(i uint32, id ComponentID) uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(i) >= len(t.slots) || int(id) >= len(t.slots[i].internalCount) {
		return 0
	}
	return t.slots[i].internalCount[id]
}

// AddInternalCount adjusts internal_count[id] for the slot at index i by
// delta (may be negative), clamped to the uint8 range the original's
// unsigned-char counters impose (§9's implicit 255-occurrence cap).
func (t *EntityTable) AddInternalCount(i uint32, id ComponentID, delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(i) >= len(t.slots) || int(id) >= len(t.slots[i].internalCount) {
		return
	}
	v := int(t.slots[i].internalCount[id]) + delta
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	t.slots[i].internalCount[id] = uint8(v)
}

// SetPresentCount overwrites present_count[id] for the slot at index i,
// used by §4.3's immediate (outside-tick) mutation path and by §4.5's
// end-of-tick present_count = internal_count copy.
func (t *EntityTable) SetPresentCount(i uint32, id ComponentID, v uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(i) >= len(t.slots) || int(id) >= len(t.slots[i].presentCount) {
		return
	}
	t.slots[i].presentCount[id] = v
}

// SetInternalCount overwrites internal_count[id] for the slot at index i.
func (t *EntityTable) SetInternalCount(i uint32, id ComponentID, v uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(i) >= len(t.slots) || int(id) >= len(t.slots[i].internalCount) {
		return
	}
	t.slots[i].internalCount[id] = v
}

// SyncPresentFromInternal copies internal_count into present_count for
// every live slot, the second half of §4.5's end-of-tick finalization.
func (t *EntityTable) SyncPresentFromInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].free() {
			continue
		}
		copy(t.slots[i].presentCount, t.slots[i].internalCount)
	}
}
