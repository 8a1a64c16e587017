package ecs

// Dispatcher is any object capable of running scheduled processes. The core
// treats dispatch as opaque: SetTime primes the tick delta, Schedule queues
// a process for the upcoming Execute, and Execute blocks until every
// scheduled process has finished. Reference implementations live in
// ecs/dispatch.
type Dispatcher interface {
	SetTime(seconds float64)
	Schedule(p Process)
	Execute() error
}
