package ecs

import "go.uber.org/multierr"

// mutate.go implements §4.3's add/remove/remove_all family as generic free
// functions parameterized by the component value type, the same shape as
// iterator.go's Get/Edit family. Grounded on the original World's
// AddComponent/RemoveComponent/RemoveAllComponents templates.

// AddComponent adds value as a new occurrence of T on h. Outside a tick this
// applies immediately by binary-search insertion into the present buffer,
// with a fixup pass over already-queued pending actions for T. Inside a
// tick it enqueues an add whose target_index is computed against the future
// buffer at queue time.
func AddComponent[T any](w *World, h EntityID, value T) error {
	id, err := componentIDFor[T](w)
	if err != nil {
		return err
	}
	s, err := storeFor[T](w, id)
	if err != nil {
		return err
	}

	if !w.Ticking() && !h.Pending() {
		slot := w.entities.slot(h)
		if slot == nil {
			return ErrOutOfRange
		}
		at := insertionTarget(s.present, h.Index)
		s.insertImmediate(h.Index, value)
		w.pending.fixupAfterInsert(id, at)
		count := int(w.entities.PresentCountAt(h.Index, id)) + 1
		if count > 255 {
			count = 255
		}
		w.entities.SetPresentCount(h.Index, id, uint8(count))
		w.entities.SetInternalCount(h.Index, id, uint8(count))
		return nil
	}

	targetIndex := insertionTarget(s.future, h.Index)
	w.pending.Enqueue(pendingAction{
		componentID: id,
		targetIndex: targetIndex,
		ownerIndex:  h.Index,
		ownerGUID:   h.GUID,
		payload:     value,
	})
	s.AddCountDelta(1)
	return nil
}

// RemoveComponent removes the nth occurrence of T belonging to h: located in
// the present buffer outside a tick, the future buffer inside one. Inside a
// tick it enqueues a destructive removal with run_length=1, de-duplicated
// against any already-queued identical removal. Outside a tick no removal is
// queued: the record is spliced out of the present buffer at once (Destroy
// is called on it) and already-queued actions for T are fixed up.
func RemoveComponent[T any](w *World, h EntityID, nth int) error {
	id, err := componentIDFor[T](w)
	if err != nil {
		return err
	}
	s, err := storeFor[T](w, id)
	if err != nil {
		return err
	}

	ticking := w.Ticking()
	buf := s.present
	if ticking {
		buf = s.future
	}
	start, end := runBounds(buf, h.Index)
	if nth < 0 || start+nth >= end {
		return ErrOutOfRange
	}
	targetIndex := start + nth

	if w.pending.hasDuplicateRemoval(id, targetIndex, 1, h.GUID, true) {
		return nil
	}

	if !ticking {
		if !s.removeImmediateNth(h.Index, nth) {
			return ErrOutOfRange
		}
		w.pending.fixupAfterRemove(id, targetIndex, 1)
		count := int(w.entities.PresentCountAt(h.Index, id)) - 1
		if count < 0 {
			count = 0
		}
		w.entities.SetPresentCount(h.Index, id, uint8(count))
		w.entities.SetInternalCount(h.Index, id, uint8(count))
		return nil
	}

	w.pending.Enqueue(pendingAction{
		componentID: id,
		targetIndex: targetIndex,
		runLength:   1,
		ownerIndex:  h.Index,
		ownerGUID:   h.GUID,
		destructive: true,
	})
	s.AddCountDelta(-1)
	return nil
}

// RemoveAllComponents enqueues one removal covering h's entire contiguous
// run of T in the present buffer, per §4.3's remove_all, used directly by
// callers that want to strip a component type from a still-live entity
// (the tick driver uses the unexported queueRemoveAllRaw for entity
// teardown instead, since it must work across every registered type by id).
func RemoveAllComponents[T any](w *World, h EntityID, destructive bool) error {
	id, err := componentIDFor[T](w)
	if err != nil {
		return err
	}
	s, err := storeFor[T](w, id)
	if err != nil {
		return err
	}
	start, length := runBounds(s.present, h.Index)
	if length == 0 {
		return nil
	}
	w.pending.Enqueue(pendingAction{
		componentID: id,
		targetIndex: start,
		runLength:   length,
		ownerIndex:  h.Index,
		ownerGUID:   h.GUID,
		destructive: destructive,
	})
	s.AddCountDelta(-length)
	return nil
}

// Command is a deferred mutation applied against a World, the teacher's
// push-now/apply-later ergonomics kept as a thin convenience layer over the
// pending-queue primitives above rather than a competing queue (DESIGN.md).
type Command func(w *World) error

// NewCreateEntityCommand enqueues a new entity creation. If target is
// non-nil it receives the allocated (possibly still-pending) handle.
func NewCreateEntityCommand(target *EntityID, userValue uint64) Command {
	return func(w *World) error {
		h := w.AddEntity(userValue)
		if target != nil {
			*target = h
		}
		return nil
	}
}

// NewDestroyEntityCommand enqueues an entity removal.
func NewDestroyEntityCommand(h EntityID) Command {
	return func(w *World) error {
		if h.IsZero() {
			return ErrOutOfRange
		}
		w.RemoveEntity(h)
		return nil
	}
}

// NewAddComponentCommand enqueues a component addition of type T.
func NewAddComponentCommand[T any](h EntityID, value T) Command {
	return func(w *World) error {
		return AddComponent(w, h, value)
	}
}

// NewRemoveComponentCommand enqueues removal of the nth occurrence of T.
func NewRemoveComponentCommand[T any](h EntityID, nth int) Command {
	return func(w *World) error {
		return RemoveComponent[T](w, h, nth)
	}
}

// CommandBuffer accumulates commands for later application, e.g. from
// inside a Process that must not mutate the world directly mid-dispatch.
type CommandBuffer struct {
	commands []Command
}

// NewCommandBuffer creates an empty buffer.
func NewCommandBuffer() *CommandBuffer { return &CommandBuffer{} }

// Len reports how many commands are queued.
func (b *CommandBuffer) Len() int { return len(b.commands) }

// Push appends a command to the buffer.
func (b *CommandBuffer) Push(cmd Command) {
	if cmd == nil {
		return
	}
	b.commands = append(b.commands, cmd)
}

// Drain returns queued commands and resets the buffer.
func (b *CommandBuffer) Drain() []Command {
	drained := b.commands
	b.commands = nil
	return drained
}

// Apply runs every buffered command against w in order, joining any errors.
func (b *CommandBuffer) Apply(w *World) error {
	var err error
	for _, cmd := range b.Drain() {
		err = multierr.Append(err, cmd(w))
	}
	return err
}
