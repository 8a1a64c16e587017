// Package dispatch provides the two reference Dispatcher implementations
// the core requires of its scheduling collaborator: a synchronous
// single-threaded dispatcher and a worker-pool dispatcher. Grounded on
// the original aurumecs st_dispatcher.h/mt_dispatcher.h, reworked onto a
// Go channel/goroutine runtime the way the teacher's worker_pool.go reworks
// a raw thread pool into one.
package dispatch

import "github.com/ivancb/aurumecs"

// SingleThreaded runs every scheduled process synchronously and in
// schedule order, on the calling goroutine. Matches the original's
// SingleThreadedDispatcher exactly: Schedule executes immediately,
// Execute is a no-op.
type SingleThreaded struct {
	timeSeconds float64
	err         error
}

// NewSingleThreaded constructs a ready-to-use synchronous dispatcher.
func NewSingleThreaded() *SingleThreaded {
	return &SingleThreaded{}
}

// SetTime primes the delta passed to every subsequently scheduled process.
func (d *SingleThreaded) SetTime(seconds float64) {
	d.timeSeconds = seconds
}

// Schedule runs p immediately on the calling goroutine.
func (d *SingleThreaded) Schedule(p ecs.Process) {
	p.Execute(d.timeSeconds)
}

// Execute is a no-op: every process already ran during Schedule.
func (d *SingleThreaded) Execute() error {
	err := d.err
	d.err = nil
	return err
}
