package storage

import (
	"testing"

	ecs "github.com/ivancb/aurumecs"
)

func TestDeduplicationViewGroupsEqualValues(t *testing.T) {
	w := ecs.NewWorld()
	id, err := ecs.RegisterComponent[gameStats](w)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	zombieStats := gameStats{Health: 50, AttackDamage: 10, Defense: 5}
	playerStats := gameStats{Health: 100, AttackDamage: 25, Defense: 15}

	zombie1 := w.AddEntity(1)
	zombie2 := w.AddEntity(2)
	player := w.AddEntity(3)
	if err := ecs.AddComponent(w, zombie1, zombieStats); err != nil {
		t.Fatalf("add zombie1: %v", err)
	}
	if err := ecs.AddComponent(w, zombie2, zombieStats); err != nil {
		t.Fatalf("add zombie2: %v", err)
	}
	if err := ecs.AddComponent(w, player, playerStats); err != nil {
		t.Fatalf("add player: %v", err)
	}

	view := NewDeduplicationView(w, id)
	stats := view.Stats()
	if stats.EntityCount != 3 {
		t.Fatalf("expected 3 entities, got %d", stats.EntityCount)
	}
	if stats.UniqueValueCount != 2 {
		t.Fatalf("expected 2 unique values, got %d", stats.UniqueValueCount)
	}
	expectedRatio := 1.5
	if stats.SharingRatio != expectedRatio {
		t.Fatalf("expected sharing ratio %.2f, got %.2f", expectedRatio, stats.SharingRatio)
	}

	v, ok := view.Get(zombie1.GUID)
	if !ok || v.(gameStats).Health != 50 {
		t.Fatalf("unexpected value for zombie1: %#v, ok=%v", v, ok)
	}
}

func TestDeduplicationViewDistinctStructsNotMerged(t *testing.T) {
	w := ecs.NewWorld()
	id, err := ecs.RegisterComponent[gameStats](w)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	h1 := w.AddEntity(1)
	h2 := w.AddEntity(2)
	if err := ecs.AddComponent(w, h1, gameStats{Health: 50}); err != nil {
		t.Fatalf("add h1: %v", err)
	}
	if err := ecs.AddComponent(w, h2, gameStats{Health: 51}); err != nil {
		t.Fatalf("add h2: %v", err)
	}

	view := NewDeduplicationView(w, id)
	stats := view.Stats()
	if stats.UniqueValueCount != 2 {
		t.Fatalf("expected 2 unique values for distinct structs, got %d", stats.UniqueValueCount)
	}
}

func TestDeduplicationViewManySharedValues(t *testing.T) {
	w := ecs.NewWorld()
	id, err := ecs.RegisterComponent[gameStats](w)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	common := gameStats{Health: 50, AttackDamage: 10, Defense: 5}
	for i := 0; i < 100; i++ {
		h := w.AddEntity(uint64(i))
		if err := ecs.AddComponent(w, h, common); err != nil {
			t.Fatalf("add entity %d: %v", i, err)
		}
	}

	view := NewDeduplicationView(w, id)
	stats := view.Stats()
	if stats.EntityCount != 100 {
		t.Fatalf("expected 100 entities, got %d", stats.EntityCount)
	}
	if stats.UniqueValueCount != 1 {
		t.Fatalf("expected 1 unique value, got %d", stats.UniqueValueCount)
	}
	if stats.SharingRatio != 100.0 {
		t.Fatalf("expected sharing ratio 100, got %.2f", stats.SharingRatio)
	}
}
