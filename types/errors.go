package types

import "errors"

var (
	// ErrNotFound is returned when an elevator, floor or demand does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for out-of-range floors, invalid floor ranges and unknown enum values.
	ErrValidation = errors.New("validation error")

	// ErrInvalidOperation is returned by an advance with no pending stop.
	// It is an expected result for an idle elevator, not a fault.
	ErrInvalidOperation = errors.New("invalid operation")
)
