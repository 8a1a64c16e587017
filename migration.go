package ecs

// Migrate transfers an entity from src to dst, per §4.9: both worlds must
// be idle (not ticking), h must be valid. The entity's guid and user value
// are carried across unchanged; only its slot index may differ. Every
// component record follows, transitively, through any Migratable hook's
// inherited-entities list — maintained here as a worklist rather than the
// original's repeated full-vector std::mismatch scan, since a worklist is
// the idiomatic Go shape for the same "keep going until nothing new shows
// up" loop. Grounded on original_source/ECS/World.h's
// Migrate/PerformMigration/ComponentMigrator.
func Migrate(dst, src *World, h EntityID) (EntityID, error) {
	if src.Ticking() || dst.Ticking() {
		return EntityID{}, ErrWorldNotIdle
	}
	if !src.entities.IsValid(h) || h.Pending() {
		return EntityID{}, ErrOutOfRange
	}
	if err := requireSameComponentSet(dst, src); err != nil {
		return EntityID{}, err
	}

	performed := map[uint64]EntityID{}
	queue := []EntityID{h}
	queued := map[uint64]bool{h.GUID: true}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, done := performed[next.GUID]; done {
			continue
		}
		srcHandle, ok := src.entities.Find(next.GUID)
		if !ok {
			continue
		}
		destHandle, newlyInherited, err := performMigration(dst, src, srcHandle)
		if err != nil {
			return EntityID{}, err
		}
		performed[next.GUID] = destHandle
		for _, e := range newlyInherited {
			if !queued[e.GUID] {
				queued[e.GUID] = true
				queue = append(queue, e)
			}
		}
	}

	src.applyComponentUpdates()
	for _, store := range src.stores {
		store.Swap()
	}
	src.entities.SyncPresentFromInternal()

	dst.applyComponentUpdates()
	for _, store := range dst.stores {
		store.Swap()
	}
	dst.entities.SyncPresentFromInternal()

	for _, h2 := range performed {
		triggerMigrateComplete(dst, h2)
	}

	return performed[h.GUID], nil
}

// requireSameComponentSet enforces the runtime equivalent of the original's
// compile-time constraint that source and destination worlds instantiate
// the exact same ComponentTypes... tuple: migration walks both worlds'
// stores by positional ComponentID, so the ids must name the same types in
// the same registration order.
func requireSameComponentSet(a, b *World) error {
	a.components.mu.RLock()
	defer a.components.mu.RUnlock()
	b.components.mu.RLock()
	defer b.components.mu.RUnlock()
	if len(a.components.metas) != len(b.components.metas) {
		return ErrComponentNotRegistered
	}
	for i, m := range a.components.metas {
		if b.components.metas[i].typ != m.typ {
			return ErrComponentNotRegistered
		}
	}
	return nil
}

// performMigration implements §4.9 steps 1-3 for a single entity: allocate
// (or reuse) a destination slot carrying the same guid and user value, mark
// the source slot invalid, then walk every component type enqueuing a
// non-destructive source removal and adding each record to the destination.
// Returns any entities a Migratable hook requested be migrated too.
func performMigration(dst, src *World, h EntityID) (EntityID, []EntityID, error) {
	srcSlot := src.entities.slot(h)
	if srcSlot == nil {
		return EntityID{}, nil, ErrOutOfRange
	}
	userValue := srcSlot.userValue

	destIndex := dst.entities.AllocateForMigration(h.GUID, userValue)
	destHandle := EntityID{GUID: h.GUID, Index: destIndex, UserValue: userValue}

	src.entities.InvalidateForMigration(h.Index)

	var inherited []EntityID
	for i, store := range src.stores {
		id := ComponentID(i)
		start, length := store.FindPresentRun(h.Index, -1)
		if length == 0 {
			continue
		}
		src.pending.Enqueue(pendingAction{
			componentID: id,
			targetIndex: start,
			runLength:   length,
			ownerIndex:  h.Index,
			ownerGUID:   h.GUID,
			destructive: false,
		})
		store.AddCountDelta(-length)

		for nth := 0; nth < length; nth++ {
			value, ok := store.GetPresentRaw(h.Index, nth)
			if !ok {
				continue
			}
			if m, ok := value.(Migratable); ok {
				if err := m.OnMigrate(destHandle, &inherited); err != nil {
					return EntityID{}, nil, &MigrationFailureError{ComponentID: id, SourceGUID: h.GUID, Err: err}
				}
			}
			if !dst.stores[id].QueueAddRaw(destIndex, h.GUID, value, &dst.pending) {
				return EntityID{}, nil, &MigrationFailureError{ComponentID: id, SourceGUID: h.GUID, Err: ErrComponentNotRegistered}
			}
		}
	}

	return destHandle, inherited, nil
}

// triggerMigrateComplete invokes OnMigrateComplete on every record belonging
// to h in the destination world, for component types that implement
// Migratable, once the destination's buffers have swapped (§4.9 step 6).
func triggerMigrateComplete(dst *World, h EntityID) {
	for _, store := range dst.stores {
		_, length := store.FindPresentRun(h.Index, -1)
		for nth := 0; nth < length; nth++ {
			value, ok := store.GetPresentRaw(h.Index, nth)
			if !ok {
				continue
			}
			if m, ok := value.(Migratable); ok {
				m.OnMigrateComplete(h)
			}
		}
	}
}
