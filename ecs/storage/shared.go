package storage

import (
	"reflect"

	ecs "github.com/ivancb/aurumecs"
)

// sharedValue tracks how many captured entities reference a deep-equal value.
type sharedValue struct {
	data     any
	refCount int
}

// DeduplicationView groups a DenseSnapshot's captured values by deep
// equality, the read-only counterpart of the teacher's sharedStore (which
// used the same reflect.DeepEqual grouping to let entities literally share
// one backing instance). Since this spec's only storage mechanism is the
// present/future double buffer (§4.2), values here are not actually shared
// in memory — this view exists purely to report how much sharing would be
// possible, the way a profiler would.
type DeduplicationView struct {
	entityToValue map[uint64]int
	values        []*sharedValue
}

// NewDeduplicationView captures id's present-buffer values across w and
// groups them by deep equality.
func NewDeduplicationView(w *ecs.World, id ecs.ComponentID) *DeduplicationView {
	snap := NewDenseSnapshot(w, id)
	v := &DeduplicationView{entityToValue: make(map[uint64]int)}
	snap.Iterate(func(h ecs.EntityID, value any) bool {
		idx := v.findOrCreate(value)
		v.entityToValue[h.GUID] = idx
		return true
	})
	return v
}

func (v *DeduplicationView) findOrCreate(value any) int {
	for i, sv := range v.values {
		if reflect.DeepEqual(sv.data, value) {
			sv.refCount++
			return i
		}
	}
	v.values = append(v.values, &sharedValue{data: value, refCount: 1})
	return len(v.values) - 1
}

// Get returns the deep-equality-deduplicated value captured for guid.
func (v *DeduplicationView) Get(guid uint64) (any, bool) {
	idx, ok := v.entityToValue[guid]
	if !ok {
		return nil, false
	}
	return v.values[idx].data, true
}

// Stats summarizes sharing potential across the captured snapshot.
func (v *DeduplicationView) Stats() SharedStorageStats {
	entityCount := len(v.entityToValue)
	uniqueCount := len(v.values)
	ratio := 0.0
	if uniqueCount > 0 {
		ratio = float64(entityCount) / float64(uniqueCount)
	}
	return SharedStorageStats{
		EntityCount:      entityCount,
		UniqueValueCount: uniqueCount,
		SharingRatio:     ratio,
	}
}

// SharedStorageStats reports a component type's value-sharing potential.
type SharedStorageStats struct {
	EntityCount      int
	UniqueValueCount int
	SharingRatio     float64
}
