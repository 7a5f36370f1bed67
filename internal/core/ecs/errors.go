package ecs

import "errors"

var (
	// ErrRegistryFull is returned by Create when the 32-bit index space is exhausted.
	ErrRegistryFull = errors.New("ecs: entity index space exhausted")
	// ErrStaleEntity is returned when an operation targets a destroyed entity.
	ErrStaleEntity = errors.New("ecs: stale entity")
	// ErrMissing is returned when an entity does not carry the requested component.
	ErrMissing = errors.New("ecs: component missing")
)
