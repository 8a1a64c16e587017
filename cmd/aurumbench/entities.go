package main

import "github.com/ivancb/aurumecs"

type position struct{ X, Y float64 }

type velocity struct{ DX, DY float64 }

// archetype stands in for the teacher's shared base-stats pattern: most
// spawned entities reuse one of a handful of archetype values, which is
// exactly what ecs/storage's DeduplicationView is built to report on.
type archetype struct {
	Name      string
	MaxHealth int
}

var archetypes = []archetype{
	{Name: "zombie", MaxHealth: 50},
	{Name: "skeleton", MaxHealth: 35},
	{Name: "player", MaxHealth: 100},
}

func spawnPopulation(w *ecs.World, n int) {
	for i := 0; i < n; i++ {
		h := w.AddEntity(uint64(i))
		_ = ecs.AddComponent(w, h, position{})
		_ = ecs.AddComponent(w, h, velocity{DX: float64(i%3) - 1, DY: float64(i%5) - 2})
		_ = ecs.AddComponent(w, h, archetypes[i%len(archetypes)])
	}
}

// moveProcess advances every entity with a velocity by writing through its
// position's authority slot, the same Required+Authority shape world_test.go
// exercises.
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
