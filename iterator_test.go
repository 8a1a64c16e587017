package ecs_test

import (
	"testing"

	"github.com/ivancb/aurumecs"
)

type compA struct{ N int }
type compB struct{ N int }

func TestIteratorRequiredOnlyVisitsEntitiesCarryingIt(t *testing.T) {
	w := ecs.NewWorld()
	aID, err := ecs.RegisterComponent[compA](w)
	if err != nil {
		t.Fatalf("register compA: %v", err)
	}
	bID, err := ecs.RegisterComponent[compB](w)
	if err != nil {
		t.Fatalf("register compB: %v", err)
	}

	e1 := w.AddEntity(1)
	if err := ecs.AddComponent(w, e1, compA{N: 1}); err != nil {
		t.Fatalf("add A to e1: %v", err)
	}
	e2 := w.AddEntity(2)
	if err := ecs.AddComponent(w, e2, compA{N: 2}); err != nil {
		t.Fatalf("add A to e2: %v", err)
	}
	if err := ecs.AddComponent(w, e2, compB{N: 20}); err != nil {
		t.Fatalf("add B to e2: %v", err)
	}
	e3 := w.AddEntity(3)
	if err := ecs.AddComponent(w, e3, compB{N: 30}); err != nil {
		t.Fatalf("add B to e3: %v", err)
	}

	it, err := ecs.NewReadOnlyIterator(w, []ecs.ComponentID{aID}, nil)
	if err != nil {
		t.Fatalf("new iterator: %v", err)
	}
	var seen []uint64
	for it.Advance() {
		ref, err := it.EntityRef()
		if err != nil {
			t.Fatalf("entity ref: %v", err)
		}
		seen = append(seen, ref.GUID)
	}
	if len(seen) != 2 || seen[0] != e1.GUID || seen[1] != e2.GUID {
		t.Fatalf("required={A} visited %v, want [%d %d]", seen, e1.GUID, e2.GUID)
	}

	optIt, err := ecs.NewReadOnlyIterator(w, []ecs.ComponentID{aID}, []ecs.ComponentID{bID})
	if err != nil {
		t.Fatalf("new optional iterator: %v", err)
	}
	seen = nil
	var e1HasB, e2HasB bool
	for optIt.Advance() {
		ref, err := optIt.EntityRef()
		if err != nil {
			t.Fatalf("entity ref: %v", err)
		}
		seen = append(seen, ref.GUID)
		_, ok, err := ecs.GetOptional[compB](optIt, 0)
		if err != nil {
			t.Fatalf("get optional B: %v", err)
		}
		switch ref.GUID {
		case e1.GUID:
			e1HasB = ok
		case e2.GUID:
			e2HasB = ok
		}
	}
	if len(seen) != 2 {
		t.Fatalf("required={A} optional={B} visited %v, want both e1 and e2", seen)
	}
	if e1HasB {
		t.Fatalf("expected get_optional<B> to report none for e1")
	}
	if !e2HasB {
		t.Fatalf("expected get_optional<B> to report some for e2")
	}
}

func TestEditOptionalWritesThroughAndMissingReturnsFalse(t *testing.T) {
	w := ecs.NewWorld()
	aID, err := ecs.RegisterComponent[compA](w)
	if err != nil {
		t.Fatalf("register compA: %v", err)
	}
	bID, err := ecs.RegisterComponent[compB](w)
	if err != nil {
		t.Fatalf("register compB: %v", err)
	}

	withB := w.AddEntity(1)
	if err := ecs.AddComponent(w, withB, compA{N: 1}); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if err := ecs.AddComponent(w, withB, compB{N: 5}); err != nil {
		t.Fatalf("add B: %v", err)
	}
	withoutB := w.AddEntity(2)
	if err := ecs.AddComponent(w, withoutB, compA{N: 2}); err != nil {
		t.Fatalf("add A: %v", err)
	}

	editor := &optionalEditProcess{world: w, a: aID, b: bID}
	w.AddProcess(editor, 0)
	if err := w.Tick(0); err != nil {
		t.Fatalf("tick: %v", err)
	}

	it, err := ecs.NewReadOnlyIterator(w, nil, []ecs.ComponentID{bID})
	if err != nil {
		t.Fatalf("new iterator: %v", err)
	}
	found := false
	for it.Advance() {
		ref, err := it.EntityRef()
		if err != nil {
			t.Fatalf("entity ref: %v", err)
		}
		if ref.GUID != withB.GUID {
			continue
		}
		found = true
		b, ok, err := ecs.GetOptional[compB](it, 0)
		if err != nil {
			t.Fatalf("get optional B: %v", err)
		}
		if !ok {
			t.Fatalf("expected B to still be present on withB")
		}
		if b.N != 99 {
			t.Fatalf("expected EditOptional to have written 99, got %d", b.N)
		}
	}
	if !found {
		t.Fatalf("expected to find withB in the post-tick present buffer")
	}
}

type optionalEditProcess struct {
	world *ecs.World
	a, b  ecs.ComponentID
}

func (p *optionalEditProcess) TypeID() int  { return 9 }
func (p *optionalEditProcess) GroupID() int { return 0 }

func (p *optionalEditProcess) Execute(dt float64) {
	it, err := ecs.NewIterator(p.world, ecs.TypeSet{
		Required: []ecs.ComponentID{p.a},
		Optional: []ecs.ComponentID{p.b},
	})
	if err != nil {
		return
	}
	for it.Advance() {
		b, ok, err := ecs.EditOptional[compB](it, 0)
		if err != nil || !ok {
			continue
		}
		b.N = 99
	}
}
