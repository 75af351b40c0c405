// Package store is the persistence port of the dispatcher together with an
// in-memory and a file-backed implementation.
package store

import (
	"errors"

	"elevatordispatch/types"
)

var (
	// ErrReadOnly is returned by writes inside a View transaction.
	ErrReadOnly = errors.New("store: write in read-only transaction")

	// ErrConflict is returned when an append-only record would be overwritten.
	ErrConflict = errors.New("store: record already exists")
)

// Tx gives access to the records of one transaction. Lookups of absent
// records return an error wrapping types.ErrNotFound.
type Tx interface {
	Elevator(id string) (types.Elevator, error)
	PutElevator(e types.Elevator) error

	Floor(elevatorID string, floor int) (types.Floor, error)
	PutFloor(f types.Floor) error
	// Floors returns the registry of an elevator ordered by floor number.
	Floors(elevatorID string) ([]types.Floor, error)

	Demand(id string) (types.Demand, error)
	// PutDemand appends a demand. Demands are never overwritten.
	PutDemand(d types.Demand) error
}

// Store runs functions inside transactions. Update commits every write made
// by fn when fn returns nil and discards all of them otherwise.
type Store interface {
	View(fn func(tx Tx) error) error
	Update(fn func(tx Tx) error) error
}
