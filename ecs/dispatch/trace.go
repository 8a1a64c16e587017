package dispatch

import (
	"io"
	"runtime/trace"
)

// RunWithTrace runs fn with a runtime/trace capture (trace.Start/trace.Stop)
// written to w for the call's duration, mirroring the teacher's
// basicScheduler.RunWithTrace. If w is nil, tracing is skipped and fn runs
// directly. cmd/aurumbench wraps its whole tick loop with it.
func RunWithTrace(w io.Writer, fn func() error) error {
	if w == nil {
		return fn()
	}
	if err := trace.Start(w); err != nil {
		return err
	}
	defer trace.Stop()
	return fn()
}
