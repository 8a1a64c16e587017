package dispatch_test

import (
	"testing"

	"github.com/ivancb/aurumecs/ecs/dispatch"
)

func TestSingleThreadedRunsOnScheduleInOrder(t *testing.T) {
	d := dispatch.NewSingleThreaded()
	d.SetTime(0.5)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		d.Schedule(&funcProcess{typeID: i, fn: func(dt float64) {
			if dt != 0.5 {
				t.Errorf("process %d got dt=%v, want 0.5", i, dt)
			}
			order = append(order, i)
		}})
	}

	if err := d.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending schedule order", order)
		}
	}
}

type funcProcess struct {
	typeID int
	fn     func(dt float64)
}

func (p *funcProcess) TypeID() int  { return p.typeID }
func (p *funcProcess) GroupID() int { return 0 }
func (p *funcProcess) Execute(dt float64) {
	p.fn(dt)
}
