package ecs

import "time"

// ComponentMetrics is the per-type counter set from §3/§4.4's "per-type
// metrics record wall time and op counts per pass", matching the original's
// ComponentMetrics_t{TypeId, DeleteOps, AddOps, UpdateTime}.
type ComponentMetrics struct {
	TypeID     ComponentID
	AddOps     uint64
	DeleteOps  uint64
	UpdateTime time.Duration
}

// WorldMetrics is the per-tick snapshot returned by World.Metrics, zeroed at
// the start of every tick and accumulated through the pipeline (§3, §4.8).
type WorldMetrics struct {
	EntityUpdateTime    time.Duration
	ComponentUpdateTime time.Duration
	ProcessTime         time.Duration
	EventTime           time.Duration
	TotalTime           time.Duration
	Components          []ComponentMetrics
}

func newWorldMetrics(numTypes int) WorldMetrics {
	return WorldMetrics{Components: make([]ComponentMetrics, numTypes)}
}

// growComponents extends Components to numTypes entries, called from
// RegisterComponent as new component types are added to the world.
func (m *WorldMetrics) growComponents(numTypes int) {
	for len(m.Components) < numTypes {
		m.Components = append(m.Components, ComponentMetrics{TypeID: ComponentID(len(m.Components))})
	}
}

func (m *WorldMetrics) zero() {
	m.EntityUpdateTime = 0
	m.ComponentUpdateTime = 0
	m.ProcessTime = 0
	m.EventTime = 0
	m.TotalTime = 0
	for i := range m.Components {
		m.Components[i] = ComponentMetrics{TypeID: ComponentID(i)}
	}
}

// ProcessGroupSummary reports one process group's execution for a tick, the
// unit telemetry observers (ecs/telemetry) consume. Adapted from the
// teacher's WorkGroupSummary (work-group-shaped) to this spec's process
// groups — see DESIGN.md.
type ProcessGroupSummary struct {
	GroupID           int
	Tick              uint64
	Duration          time.Duration
	ProcessesTotal    int
	ProcessesExecuted int
	ProcessesSkipped  int
	Error             error
}

// ProcessGroupObserver receives a summary after every process group's
// happens-before barrier (authority clear + dispatcher.Execute completion).
type ProcessGroupObserver interface {
	ProcessGroupCompleted(summary ProcessGroupSummary)
}

type noopObserver struct{}

func (noopObserver) ProcessGroupCompleted(ProcessGroupSummary) {}
