package ecs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// World owns its entities, component stores, processes, and dispatcher —
// exactly §3's ownership model. Grounded on the teacher's World (functional
// WorldOption constructor) generalized from the teacher's scheduler/
// work-group model onto this spec's entity table / double-buffered store /
// authority / process-group pipeline.
type World struct {
	mu sync.Mutex

	instanceID uuid.UUID
	logger     Logger
	observer   ProcessGroupObserver
	dispatcher Dispatcher

	components *componentRegistry
	stores     []componentStore
	entities   *EntityTable
	pending    PendingQueue
	authority  *AuthorityTable

	processes     map[int]*processEntry
	nextProcessID int
	groupDisabled map[int]bool

	ticking   bool
	tickIndex uint64
	metrics   WorldMetrics

	userPointer any
}

// WorldOption configures a World at construction, mirroring the teacher's
// functional-option World constructor.
type WorldOption func(*World)

// WithDispatcher supplies the Dispatcher used for process execution. The
// default is a synchronous in-process dispatcher.
func WithDispatcher(d Dispatcher) WorldOption {
	return func(w *World) { w.dispatcher = d }
}

// WithLogger supplies the Logger the tick driver and dispatcher log through.
func WithLogger(l Logger) WorldOption {
	return func(w *World) { w.logger = l }
}

// WithObserver supplies the ProcessGroupObserver notified after every
// process group's happens-before barrier.
func WithObserver(o ProcessGroupObserver) WorldOption {
	return func(w *World) { w.observer = o }
}

// WithReserve reserves entity-table capacity at construction, mirroring
// WorldConfig.Entities.Reserve from LoadConfig.
func WithReserve(n int) WorldOption {
	return func(w *World) { w.entities.Reserve(n) }
}

type noopDispatcher struct{ timeSec float64 }

func (d *noopDispatcher) SetTime(seconds float64) { d.timeSec = seconds }
func (d *noopDispatcher) Schedule(p Process)      { p.Execute(d.timeSec) }
func (d *noopDispatcher) Execute() error          { return nil }

// NewWorld constructs an empty world. Component types are fixed afterward
// via RegisterComponent.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		instanceID:    uuid.New(),
		logger:        NewNoopLogger(),
		observer:      noopObserver{},
		dispatcher:    &noopDispatcher{},
		components:    newComponentRegistry(),
		entities:      NewEntityTable(0),
		authority:     newAuthorityTable(0),
		processes:     make(map[int]*processEntry),
		groupDisabled: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("world_instance_id", w.instanceID.String())
	return w
}

// InstanceID uniquely identifies this World instance. It is attached to
// every line the world logs through its Logger so multi-world hosts can tell
// worlds apart; WorldMetrics and ProcessGroupSummary do not carry it.
func (w *World) InstanceID() string { return w.instanceID.String() }

// Ticking reports whether the world is currently inside Tick.
func (w *World) Ticking() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ticking
}

// --- Entity API (§6) ---

// AddEntity allocates (or, mid-tick, enqueues) a new entity.
func (w *World) AddEntity(userValue uint64) EntityID {
	return w.entities.Add(w.Ticking(), userValue)
}

// RemoveEntity queues (or, outside a tick, performs) removal of h. The
// immediate path also splices h's components out of every present buffer
// right away, since the slot it occupies may be recycled before the next
// tick's entity-update phase would otherwise have gotten to it.
func (w *World) RemoveEntity(h EntityID) bool {
	ticking := w.Ticking()
	if !ticking && !h.Pending() && w.entities.slot(h) != nil {
		for i, store := range w.stores {
			start, count := store.RemoveAllPresentImmediate(h.Index)
			if count > 0 {
				w.pending.fixupAfterRemove(ComponentID(i), start, count)
			}
		}
	}
	return w.entities.Remove(ticking, h)
}

// Reserve grows entity-table capacity.
func (w *World) Reserve(n int) { w.entities.Reserve(n) }

// Count returns the number of live entities.
func (w *World) Count() int { return w.entities.Count() }

// CountPending returns the net pending entity creations minus removals.
func (w *World) CountPending() int { return w.entities.CountPending() }

// Get resolves the handle occupying entity-table slot i.
func (w *World) Get(i uint32) (EntityID, error) { return w.entities.GetByIndex(i) }

// Find resolves a live entity by guid.
func (w *World) Find(guid uint64) (EntityID, bool) { return w.entities.Find(guid) }

// FindExt additionally searches the pending-additions queue.
func (w *World) FindExt(guid uint64) (EntityID, bool) { return w.entities.FindExt(guid) }

// IsValid reports whether h currently refers to a live or pending entity.
func (w *World) IsValid(h EntityID) bool { return w.entities.IsValid(h) }

// --- Raw (type-id keyed) component accessors (§6, §9) ---

// GetRawComponent returns the nth present-buffer record of component id
// belonging to h, boxed as any. nth is capped by the §9 unsigned-char
// occurrence-count invariant (0-255).
func (w *World) GetRawComponent(id ComponentID, h EntityID, nth uint8) (any, bool) {
	if w.entities.slot(h) == nil || int(id) >= len(w.stores) {
		return nil, false
	}
	return w.stores[id].GetPresentRaw(h.Index, int(nth))
}

// GetRawFutureComponent mirrors GetRawComponent against the future buffer.
func (w *World) GetRawFutureComponent(id ComponentID, h EntityID, nth uint8) (any, bool) {
	if w.entities.slot(h) == nil || int(id) >= len(w.stores) {
		return nil, false
	}
	return w.stores[id].GetFutureRaw(h.Index, int(nth))
}

// CountRawComponents returns present_count[id] for h, capped at 255 per §9.
func (w *World) CountRawComponents(id ComponentID, h EntityID) uint8 {
	if h.IsZero() || h.Pending() {
		return 0
	}
	return w.entities.PresentCountAt(h.Index, id)
}

// CountRawFutureComponents returns internal_count[id] for h.
func (w *World) CountRawFutureComponents(id ComponentID, h EntityID) uint8 {
	if h.IsZero() || h.Pending() {
		return 0
	}
	return w.entities.InternalCountAt(h.Index, id)
}

// --- Process registration (§6) ---

// AddProcess registers p in group, returning its process id.
func (w *World) AddProcess(p Process, group int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextProcessID
	w.nextProcessID++
	w.processes[id] = &processEntry{process: p, groupID: group, enabled: true}
	return id
}

// RemoveProcess unregisters the process with the given id.
func (w *World) RemoveProcess(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.processes[id]; !ok {
		return false
	}
	delete(w.processes, id)
	return true
}

// GetProcessByID returns the process registered under id.
func (w *World) GetProcessByID(id int) (Process, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.processes[id]
	if !ok {
		return nil, false
	}
	return entry.process, true
}

// SetProcessEnabled toggles whether the process with id runs during dispatch.
func (w *World) SetProcessEnabled(id int, enabled bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.processes[id]
	if !ok {
		return false
	}
	entry.enabled = enabled
	return true
}

// GetProcessEnabled reports whether the process with id is enabled.
func (w *World) GetProcessEnabled(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.processes[id]
	return ok && entry.enabled
}

// SetProcessGroupEnabled toggles whether an entire group runs during dispatch.
func (w *World) SetProcessGroupEnabled(group int, enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.groupDisabled[group] = !enabled
}

// GetProcessGroupEnabled reports whether group is currently enabled.
func (w *World) GetProcessGroupEnabled(group int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.groupDisabled[group]
}

// --- User pointer & metrics (§6) ---

// UserPointer returns the opaque value previously set via SetUserPointer.
func (w *World) UserPointer() any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.userPointer
}

// SetUserPointer stores an opaque value alongside the world.
func (w *World) SetUserPointer(v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.userPointer = v
}

// Metrics returns a snapshot of the most recently completed tick's metrics.
func (w *World) Metrics() WorldMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// orderedGroupIDs returns the distinct group ids among registered processes,
// ascending, satisfying §4.7/§5's "groups execute in strict ascending
// group-id order".
func (w *World) orderedGroupIDs() []int {
	seen := map[int]bool{}
	var groups []int
	w.mu.Lock()
	for _, entry := range w.processes {
		if !seen[entry.groupID] {
			seen[entry.groupID] = true
			groups = append(groups, entry.groupID)
		}
	}
	w.mu.Unlock()
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && groups[j-1] > groups[j]; j-- {
			groups[j-1], groups[j] = groups[j], groups[j-1]
		}
	}
	return groups
}

// Tick drives the world forward by deltaSeconds, implementing §4.8's
// process(delta): entity update, component update, process dispatch (by
// ascending group id, with a full happens-before barrier between groups),
// and buffer swap & finalization.
func (w *World) Tick(deltaSeconds float64) error {
	w.mu.Lock()
	if w.ticking {
		w.mu.Unlock()
		return ErrInvalidProcessState
	}
	w.ticking = true
	w.metrics.zero()
	w.mu.Unlock()

	tickStart := time.Now()

	entityStart := time.Now()
	w.applyEntityUpdates()
	w.metrics.EntityUpdateTime = time.Since(entityStart)

	componentStart := time.Now()
	w.applyComponentUpdates()
	w.metrics.ComponentUpdateTime = time.Since(componentStart)

	processStart := time.Now()
	w.dispatcher.SetTime(deltaSeconds)
	w.mu.Lock()
	w.tickIndex++
	w.mu.Unlock()
	for _, group := range w.orderedGroupIDs() {
		w.runGroup(group)
	}
	w.metrics.ProcessTime = time.Since(processStart)

	for _, store := range w.stores {
		store.Swap()
	}
	w.entities.SyncPresentFromInternal()
	w.authority.Clear()

	w.mu.Lock()
	w.ticking = false
	w.mu.Unlock()

	w.metrics.TotalTime = time.Since(tickStart)
	return nil
}

// applyEntityUpdates performs §4.8 step 2. A pending removal enqueues a
// *non-destructive* bulk removal of the entity's entire run in every
// component type: the records are relocated out of the live buffers but
// destroy() is not invoked on them.
func (w *World) applyEntityUpdates() {
	w.entities.ApplyPendingUpdates(
		func(index uint32, presentCounts []uint8) {
			for id, count := range presentCounts {
				if count == 0 {
					continue
				}
				w.queueRemoveAllRaw(ComponentID(id), index, int(count), false)
			}
		},
		func(guid uint64, index uint32) {
			w.fixupProvisionalAdds(guid, index)
		},
	)
}

// queueRemoveAllRaw enqueues a removal covering an entity's entire run in
// component type id, per §4.3's remove_all contract. target_index is
// resolved against the present buffer at queue time.
func (w *World) queueRemoveAllRaw(id ComponentID, ownerIndex uint32, runLength int, destructive bool) {
	if int(id) >= len(w.stores) {
		return
	}
	store := w.stores[id]
	start, length := store.FindPresentRun(ownerIndex, -1)
	if start < 0 {
		return
	}
	if length > runLength {
		length = runLength
	}
	w.pending.Enqueue(pendingAction{
		componentID: id,
		targetIndex: start,
		runLength:   length,
		ownerIndex:  ownerIndex,
		destructive: destructive,
	})
	store.AddCountDelta(-length)
}

// fixupProvisionalAdds rewrites any already-queued pending action's
// ownerIndex from MaxIndex (the provisional index an entity had while its
// creation was pending) to its now-assigned real index.
func (w *World) fixupProvisionalAdds(guid uint64, index uint32) {
	for i := range w.pending.actions {
		if w.pending.actions[i].ownerGUID == guid && w.pending.actions[i].ownerIndex == MaxIndex {
			w.pending.actions[i].ownerIndex = index
		}
	}
}

// applyComponentUpdates performs §4.8 step 3 / §4.4 for every registered
// component type, timing each type's rebuild and counting its add/delete
// ops into w.metrics.Components for the "per-type metrics record wall time
// and op counts per pass" half of §4.4.
func (w *World) applyComponentUpdates() {
	w.pending.Sort()
	actions := w.pending.Drain()

	for i, store := range w.stores {
		rebuildStart := time.Now()
		addOps, deleteOps := store.Rebuild(actions)
		w.metrics.Components[i].AddOps += addOps
		w.metrics.Components[i].DeleteOps += deleteOps
		w.metrics.Components[i].UpdateTime += time.Since(rebuildStart)
		applyCountDeltas(w.entities, ComponentID(i), actions)
	}
}

// applyCountDeltas updates every affected entity's internal_count for
// component type id based on the add/remove actions that targeted it,
// matching §4.4 steps 3-4's per-action counter maintenance.
func applyCountDeltas(entities *EntityTable, id ComponentID, actions []pendingAction) {
	for _, a := range actions {
		if a.componentID != id {
			continue
		}
		if a.isAdd() {
			entities.AddInternalCount(a.ownerIndex, id, 1)
		} else {
			entities.AddInternalCount(a.ownerIndex, id, -a.runLength)
		}
	}
}

// runGroup schedules every enabled process of an enabled group, in
// ascending process-id (registration) order, awaits
// dispatcher completion, then clears authority — the full happens-before
// barrier §5 requires between groups.
func (w *World) runGroup(group int) {
	if !w.GetProcessGroupEnabled(group) {
		return
	}
	groupStart := time.Now()

	w.mu.Lock()
	var total, skipped int
	var scheduled []Process
	var ids []int
	for id, entry := range w.processes {
		if entry.groupID == group {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		entry := w.processes[id]
		total++
		if !entry.enabled {
			skipped++
			continue
		}
		scheduled = append(scheduled, entry.process)
	}
	tick := w.tickIndex
	w.mu.Unlock()

	for _, p := range scheduled {
		w.dispatcher.Schedule(p)
	}
	err := w.dispatcher.Execute()

	w.authority.Clear()

	w.observer.ProcessGroupCompleted(ProcessGroupSummary{
		GroupID:           group,
		Tick:              tick,
		Duration:          time.Since(groupStart),
		ProcessesTotal:    total,
		ProcessesExecuted: len(scheduled),
		ProcessesSkipped:  skipped,
		Error:             err,
	})
	if err != nil {
		w.logger.Warn("process group completed with error", "group_id", group, "err", err)
	}
}

// Close tears the world down: destroy() is called on every present-buffer
// record, then processes are released, matching §3's World lifecycle and
// the original's ~World() destruction order (DESIGN.md).
func (w *World) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, store := range w.stores {
		store.DestroyAllPresent()
	}
	w.processes = make(map[int]*processEntry)
}
