package ecs

import "errors"

// Sentinel errors matching the error enumeration surfaced to callers.
var (
	// ErrOutOfRange is returned by index-based lookups outside the live range.
	ErrOutOfRange = errors.New("ecs: index out of range")
	// ErrInvalidIteratorState is returned when an iterator is used before
	// positioning, or after iteration has ended.
	ErrInvalidIteratorState = errors.New("ecs: iterator is not positioned")
	// ErrInvalidProcessState is returned when an authoritative iterator is
	// constructed outside of a tick.
	ErrInvalidProcessState = errors.New("ecs: world is not currently ticking")
	// ErrAuthorityConflict is returned when a requested authority key does
	// not match the key already holding a component type in the current
	// process group.
	ErrAuthorityConflict = errors.New("ecs: authority conflict")
	// ErrMissingAuthority is returned by Edit when the iterator's authority
	// claim over the requested type is no longer current: the process group
	// boundary that acquired it has already cleared the authority table.
	// Authority is local to a group (§5); an iterator kept alive past its
	// group's happens-before barrier no longer holds it.
	ErrMissingAuthority = errors.New("ecs: missing authority")
	// ErrMigrationFailure wraps a failed component migration; Unwrap exposes
	// the underlying cause returned by the destination's add_component.
	ErrMigrationFailure = errors.New("ecs: migration failed")

	// ErrComponentAlreadyRegistered indicates an attempt to register the same component twice.
	ErrComponentAlreadyRegistered = errors.New("ecs: component already registered")
	// ErrComponentNotRegistered signals lookup on an unknown component type.
	ErrComponentNotRegistered = errors.New("ecs: component not registered")
	// ErrInvalidTypeSet is returned when an iterator's type sets violate the
	// A ⊆ R ∪ A ∪ O ⊆ C / R ∩ O = ∅ preconditions.
	ErrInvalidTypeSet = errors.New("ecs: invalid iterator type set")
	// ErrNotImplemented is returned by operations the original implementation
	// never actually carried a body for.
	ErrNotImplemented = errors.New("ecs: not implemented")
	// ErrWorldNotIdle is returned when migration is attempted while either
	// world is mid-tick.
	ErrWorldNotIdle = errors.New("ecs: world is ticking")
)

// MigrationFailureError carries the component type and source guid the
// original implementation's ComponentMigrationFailureException attached.
type MigrationFailureError struct {
	ComponentID ComponentID
	SourceGUID  uint64
	Err         error
}

func (e *MigrationFailureError) Error() string {
	return "ecs: migration failed for component " + e.ComponentID.String() + ": " + e.Err.Error()
}

func (e *MigrationFailureError) Unwrap() error {
	return errors.Join(ErrMigrationFailure, e.Err)
}
