package ecs_test

import (
	"testing"

	"github.com/ivancb/aurumecs"
)

type position struct{ X, Y float64 }

type velocity struct{ DX, DY float64 }

type moveProcess struct {
	world *ecs.World
	pos   ecs.ComponentID
	vel   ecs.ComponentID
}

func (p *moveProcess) TypeID() int  { return 1 }
func (p *moveProcess) GroupID() int { return 0 }

func (p *moveProcess) Execute(dt float64) {
	it, err := ecs.NewIterator(p.world, ecs.TypeSet{
		Required:  []ecs.ComponentID{p.vel},
		Authority: []ecs.ComponentID{p.pos},
	}, "mover")
	if err != nil {
		return
	}
	for it.Advance() {
		v, err := ecs.Get[velocity](it, 0)
		if err != nil {
			continue
		}
		pos, err := ecs.Edit[position](it, 0)
		if err != nil {
			continue
		}
		pos.X += v.DX * dt
		pos.Y += v.DY * dt
	}
}

func TestWorldTickMovesEntities(t *testing.T) {
	w := ecs.NewWorld()
	posID, err := ecs.RegisterComponent[position](w)
	if err != nil {
		t.Fatalf("register position: %v", err)
	}
	velID, err := ecs.RegisterComponent[velocity](w)
	if err != nil {
		t.Fatalf("register velocity: %v", err)
	}

	h := w.AddEntity(0)
	if err := ecs.AddComponent(w, h, position{}); err != nil {
		t.Fatalf("add position: %v", err)
	}
	if err := ecs.AddComponent(w, h, velocity{DX: 1, DY: 2}); err != nil {
		t.Fatalf("add velocity: %v", err)
	}

	w.AddProcess(&moveProcess{world: w, pos: posID, vel: velID}, 0)

	if err := w.Tick(1.0); err != nil {
		t.Fatalf("tick: %v", err)
	}

	it, err := ecs.NewReadOnlyIterator(w, []ecs.ComponentID{posID}, nil)
	if err != nil {
		t.Fatalf("new iterator: %v", err)
	}
	if !it.Advance() {
		t.Fatalf("expected one matching entity")
	}
	pos, err := ecs.Get[position](it, 0)
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if pos.X != 1 || pos.Y != 2 {
		t.Fatalf("expected position (1,2), got (%v,%v)", pos.X, pos.Y)
	}
}

func TestWorldRemoveEntityOutsideTickIsImmediate(t *testing.T) {
	w := ecs.NewWorld()
	posID, err := ecs.RegisterComponent[position](w)
	if err != nil {
		t.Fatalf("register position: %v", err)
	}

	h := w.AddEntity(0)
	if err := ecs.AddComponent(w, h, position{X: 5}); err != nil {
		t.Fatalf("add position: %v", err)
	}

	if !w.RemoveEntity(h) {
		t.Fatalf("expected remove to succeed")
	}
	if w.IsValid(h) {
		t.Fatalf("expected entity to be removed immediately, outside any tick")
	}
	if w.CountRawComponents(posID, h) != 0 {
		t.Fatalf("expected no remaining components for removed entity")
	}
}

func TestWorldRemoveEntityDuringTickRemovesComponentsNextTick(t *testing.T) {
	w := ecs.NewWorld()
	posID, err := ecs.RegisterComponent[position](w)
	if err != nil {
		t.Fatalf("register position: %v", err)
	}

	h := w.AddEntity(0)
	if err := ecs.AddComponent(w, h, position{X: 5}); err != nil {
		t.Fatalf("add position: %v", err)
	}

	w.AddProcess(processFunc(func(dt float64) {
		w.RemoveEntity(h)
	}), 0)

	if err := w.Tick(0); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !w.IsValid(h) {
		t.Fatalf("expected removal queued mid-tick to still take effect only at the following tick's entity-update phase")
	}

	if err := w.Tick(0); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if w.IsValid(h) {
		t.Fatalf("expected entity to be removed after the following tick")
	}
	if w.CountRawComponents(posID, h) != 0 {
		t.Fatalf("expected no remaining components for removed entity")
	}
}

func TestWorldAddEntityDuringTickIsPendingUntilNextTick(t *testing.T) {
	w := ecs.NewWorld()
	if _, err := ecs.RegisterComponent[position](w); err != nil {
		t.Fatalf("register position: %v", err)
	}

	w.AddProcess(processFunc(func(dt float64) {
		h := w.AddEntity(42)
		if !h.Pending() {
			t.Fatalf("expected pending handle during tick")
		}
	}), 0)

	if err := w.Tick(0); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if w.Count() != 0 {
		t.Fatalf("expected the addition to still be pending after the tick that queued it, got count %d", w.Count())
	}
	if err := w.Tick(0); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if w.Count() != 1 {
		t.Fatalf("expected 1 live entity after the following tick's entity-update phase, got %d", w.Count())
	}
}

type processFunc func(dt float64)

func (f processFunc) TypeID() int       { return 2 }
func (f processFunc) GroupID() int      { return 0 }
func (f processFunc) Execute(dt float64) { f(dt) }
