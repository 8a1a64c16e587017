package ecs

import "sort"

// PendingQueue holds the tagged-union mutation actions queued against a
// World's component stores between "component update" phases. Grounded on
// the original's per-world pending-action vector (AddComponentImpl /
// QueueRemoveComponent) rather than the teacher's CommandBuffer, which
// models a different, non-indexed deferred-command pattern — see
// DESIGN.md's note on command_buffer.go being kept only as sugar.
type PendingQueue struct {
	actions []pendingAction
}

// Enqueue appends a single action. Target_index fixup of already-queued
// actions for the same component type happens in the callers that change a
// present buffer immediately (mutate.go's AddComponent/RemoveComponent and
// World.RemoveEntity, via fixupAfterInsert/fixupAfterRemove), matching
// §4.3's fixup pass.
func (q *PendingQueue) Enqueue(a pendingAction) {
	q.actions = append(q.actions, a)
}

// Len reports the number of queued actions.
func (q *PendingQueue) Len() int { return len(q.actions) }

// Sort orders actions by (target_index, owner.index, owner.guid) ascending,
// the precondition §4.4 requires before rebuilding buffers.
func (q *PendingQueue) Sort() {
	sort.SliceStable(q.actions, func(i, j int) bool {
		a, b := q.actions[i], q.actions[j]
		if a.targetIndex != b.targetIndex {
			return a.targetIndex < b.targetIndex
		}
		if a.ownerIndex != b.ownerIndex {
			return a.ownerIndex < b.ownerIndex
		}
		return a.ownerGUID < b.ownerGUID
	})
}

// Drain returns and clears the queued actions.
func (q *PendingQueue) Drain() []pendingAction {
	out := q.actions
	q.actions = nil
	return out
}

// fixupAfterInsert increments target_index for every already-queued action
// of the same component type (add or removal) whose target_index sits at or
// above at, since an immediate (outside-tick) insertion shifted everything
// from that point on in the present buffer. Matches §4.3's fixup pass.
func (q *PendingQueue) fixupAfterInsert(id ComponentID, at int) {
	for i := range q.actions {
		a := &q.actions[i]
		if a.componentID == id && a.targetIndex >= at {
			a.targetIndex++
		}
	}
}

// fixupAfterRemove decrements target_index for every already-queued action
// of the same component type whose target_index sits beyond the removed run.
func (q *PendingQueue) fixupAfterRemove(id ComponentID, at, runLength int) {
	for i := range q.actions {
		a := &q.actions[i]
		if a.componentID == id && a.targetIndex >= at+runLength {
			a.targetIndex -= runLength
		}
	}
}

// hasDuplicateRemoval reports whether a removal matching (index, run_length,
// owner guid, destructive) is already queued, per §4.3's de-dup rule.
func (q *PendingQueue) hasDuplicateRemoval(id ComponentID, targetIndex, runLength int, ownerGUID uint64, destructive bool) bool {
	for _, a := range q.actions {
		if a.componentID == id && !a.isAdd() && a.targetIndex == targetIndex &&
			a.runLength == runLength && a.ownerGUID == ownerGUID && a.destructive == destructive {
			return true
		}
	}
	return false
}
