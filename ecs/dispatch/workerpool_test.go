package dispatch_test

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ivancb/aurumecs/ecs/dispatch"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingProcess struct {
	typeID  int
	groupID int
	calls   *int32
	panics  bool
}

func (p *countingProcess) TypeID() int  { return p.typeID }
func (p *countingProcess) GroupID() int { return p.groupID }

func (p *countingProcess) Execute(dt float64) {
	atomic.AddInt32(p.calls, 1)
	if p.panics {
		panic("countingProcess: forced panic")
	}
}

func TestWorkerPoolRunsEveryScheduledProcessExactlyOnce(t *testing.T) {
	pool := dispatch.NewWorkerPool(4)
	pool.SetTime(1.0 / 60.0)

	var calls int32
	const n = 64
	for i := 0; i < n; i++ {
		pool.Schedule(&countingProcess{typeID: i, calls: &calls})
	}

	if err := pool.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != n {
		t.Fatalf("calls = %d, want %d", got, n)
	}
}

func TestWorkerPoolExecuteAggregatesEveryPanic(t *testing.T) {
	pool := dispatch.NewWorkerPool(3)

	var calls int32
	pool.Schedule(&countingProcess{typeID: 1, calls: &calls, panics: true})
	pool.Schedule(&countingProcess{typeID: 2, calls: &calls, panics: true})
	pool.Schedule(&countingProcess{typeID: 3, calls: &calls})

	err := pool.Execute()
	if err == nil {
		t.Fatal("Execute: want error from panicking processes, got nil")
	}
	if got := strings.Count(err.Error(), "panicked"); got != 2 {
		t.Fatalf("Execute error mentions %d panics, want 2: %v", got, err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3 (panic must not stop sibling processes)", got)
	}
}

func TestWorkerPoolExecuteWithNoScheduledProcessesIsNoop(t *testing.T) {
	pool := dispatch.NewWorkerPool(2)
	if err := pool.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestRunWithTraceSkipsTracingWhenWriterIsNil(t *testing.T) {
	ran := false
	err := dispatch.RunWithTrace(nil, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("RunWithTrace: %v", err)
	}
	if !ran {
		t.Fatal("RunWithTrace did not invoke fn")
	}
}

func TestRunWithTraceWritesATraceWhenGivenAWriter(t *testing.T) {
	var buf bytes.Buffer
	err := dispatch.RunWithTrace(&buf, func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("RunWithTrace: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("RunWithTrace wrote no trace data")
	}
}
