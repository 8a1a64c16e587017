package ecs_test

import (
	"testing"

	"github.com/ivancb/aurumecs"
)

func TestEntityTableAddAndRemove(t *testing.T) {
	table := ecs.NewEntityTable(0)
	a := table.Add(false, 0)
	b := table.Add(false, 0)

	if a.GUID == b.GUID {
		t.Fatalf("expected unique guids, got same: %v", a)
	}
	if table.Count() != 2 {
		t.Fatalf("expected 2 live entities, got %d", table.Count())
	}
	if !table.IsValid(a) || !table.IsValid(b) {
		t.Fatalf("expected entities to be valid")
	}

	if !table.Remove(false, a) {
		t.Fatalf("expected remove to succeed")
	}
	if table.IsValid(a) {
		t.Fatalf("entity should no longer be valid")
	}
	if table.Count() != 1 {
		t.Fatalf("expected 1 live entity, got %d", table.Count())
	}

	c := table.Add(false, 0)
	if c.Index != a.Index {
		t.Fatalf("expected recycled index %d, got %d", a.Index, c.Index)
	}
	if c.GUID == a.GUID {
		t.Fatalf("expected a fresh guid on recycle")
	}
}

func TestEntityTableRemoveUnknownFails(t *testing.T) {
	table := ecs.NewEntityTable(0)
	id := table.Add(false, 0)
	if !table.Remove(false, id) {
		t.Fatalf("remove failed")
	}
	if table.Remove(false, id) {
		t.Fatalf("expected second remove of freed slot to fail")
	}
}

func TestEntityTableAddDuringTickIsPending(t *testing.T) {
	table := ecs.NewEntityTable(0)
	h := table.Add(true, 0)
	if !h.Pending() {
		t.Fatalf("expected pending handle, got %v", h)
	}
	if table.IsValid(h) != true {
		t.Fatalf("expected pending handle to be valid via FindExt-style check")
	}
	if table.CountPending() != 1 {
		t.Fatalf("expected 1 pending addition, got %d", table.CountPending())
	}

	var placed uint32
	table.ApplyPendingUpdates(nil, func(guid uint64, index uint32) {
		if guid != h.GUID {
			t.Fatalf("unexpected guid in onAdd callback: %d", guid)
		}
		placed = index
	})
	if table.Count() != 1 {
		t.Fatalf("expected entity to be placed after ApplyPendingUpdates")
	}
	resolved, ok := table.Find(h.GUID)
	if !ok || resolved.Index != placed {
		t.Fatalf("expected resolved index %d, got %v (ok=%v)", placed, resolved, ok)
	}
}

func TestEntityTableFindExt(t *testing.T) {
	table := ecs.NewEntityTable(0)
	h := table.Add(true, 7)
	if _, ok := table.Find(h.GUID); ok {
		t.Fatalf("expected Find to miss a still-pending entity")
	}
	ext, ok := table.FindExt(h.GUID)
	if !ok || !ext.Pending() {
		t.Fatalf("expected FindExt to resolve the pending handle, got %v (ok=%v)", ext, ok)
	}
}
