package ecs_test

import (
	"testing"

	"github.com/ivancb/aurumecs"
)

type health struct{ HP int }

// link is a custom-migration component (Migratable): migrating the entity
// that carries it pulls a sibling entity along transitively, and records
// how many times each hook ran so the test can assert on hook cardinality.
type link struct {
	sibling   ecs.EntityID
	migrated  *int
	completed *int
}

func (l link) OnMigrate(dest ecs.EntityID, inherited *[]ecs.EntityID) error {
	*inherited = append(*inherited, l.sibling)
	*l.migrated++
	return nil
}

func (l link) OnMigrateComplete(dest ecs.EntityID) {
	*l.completed++
}

func TestMigrateFollowsCustomMigrationHookTransitively(t *testing.T) {
	src := ecs.NewWorld()
	dst := ecs.NewWorld()

	if _, err := ecs.RegisterComponent[link](src); err != nil {
		t.Fatalf("register link on src: %v", err)
	}
	if _, err := ecs.RegisterComponent[link](dst); err != nil {
		t.Fatalf("register link on dst: %v", err)
	}

	e2 := src.AddEntity(200)
	e1 := src.AddEntity(100)

	var migrated, completed int
	if err := ecs.AddComponent(src, e1, link{sibling: e2, migrated: &migrated, completed: &completed}); err != nil {
		t.Fatalf("add link to e1: %v", err)
	}

	dest1, err := ecs.Migrate(dst, src, e1)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if src.IsValid(e1) || src.IsValid(e2) {
		t.Fatalf("expected both e1 and its inherited sibling e2 to be invalidated on src")
	}
	if !dst.IsValid(dest1) {
		t.Fatalf("expected the migrated e1 to be valid on dst")
	}
	dest2, ok := dst.Find(e2.GUID)
	if !ok || !dst.IsValid(dest2) {
		t.Fatalf("expected the inherited sibling e2 to have been migrated onto dst too")
	}

	if migrated != 1 {
		t.Fatalf("OnMigrate called %d times, want exactly 1 (once per migrated link record)", migrated)
	}
	if completed != 1 {
		t.Fatalf("OnMigrateComplete called %d times, want exactly 1 (once per migrated link record, after dst swap)", completed)
	}
}

func TestMigrateCarriesComponentsAndIdentity(t *testing.T) {
	src := ecs.NewWorld()
	dst := ecs.NewWorld()

	if _, err := ecs.RegisterComponent[health](src); err != nil {
		t.Fatalf("register health on src: %v", err)
	}
	if _, err := ecs.RegisterComponent[health](dst); err != nil {
		t.Fatalf("register health on dst: %v", err)
	}

	h := src.AddEntity(99)
	if err := ecs.AddComponent(src, h, health{HP: 10}); err != nil {
		t.Fatalf("add health: %v", err)
	}

	h2, err := ecs.Migrate(dst, src, h)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if h2.GUID != h.GUID || h2.UserValue != h.UserValue {
		t.Fatalf("expected migrated handle to keep guid/user value, got %v from %v", h2, h)
	}

	if src.IsValid(h) {
		t.Fatalf("expected source entity to be invalidated after migration")
	}
	if !dst.IsValid(h2) {
		t.Fatalf("expected destination entity to be valid after migration")
	}

	it, err := ecs.NewReadOnlyIterator(dst, []ecs.ComponentID{0}, nil)
	if err != nil {
		t.Fatalf("new iterator: %v", err)
	}
	if !it.Advance() {
		t.Fatalf("expected the migrated entity to satisfy the destination iterator")
	}
	hp, err := ecs.Get[health](it, 0)
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	if hp.HP != 10 {
		t.Fatalf("expected migrated HP 10, got %d", hp.HP)
	}
}

func TestMigrateFailsIfWorldTicking(t *testing.T) {
	src := ecs.NewWorld()
	dst := ecs.NewWorld()
	if _, err := ecs.RegisterComponent[health](src); err != nil {
		t.Fatalf("register health: %v", err)
	}
	h := src.AddEntity(0)

	src.AddProcess(processFunc(func(dt float64) {
		if _, err := ecs.Migrate(dst, src, h); err != ecs.ErrWorldNotIdle {
			t.Fatalf("expected ErrWorldNotIdle during a tick, got %v", err)
		}
	}), 0)
	if err := src.Tick(0); err != nil {
		t.Fatalf("tick: %v", err)
	}
}
