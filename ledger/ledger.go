// Package ledger records demands. Entries are append-only.
package ledger

import (
	"fmt"
	"time"

	"elevatordispatch/floors"
	"elevatordispatch/store"
	"elevatordispatch/types"
)

type Ledger struct {
	registry *floors.Registry
	now      func() time.Time
}

// New returns a ledger stamping demands with now.
func New(registry *floors.Registry, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{registry: registry, now: now}
}

// Record validates and appends a demand and marks its target floor as
// demanded. Both writes go through tx, so they commit or fail together.
func (l *Ledger) Record(tx store.Tx, elevatorID string, source types.Source, targetFloor int) (types.Demand, error) {
	e, err := tx.Elevator(elevatorID)
	if err != nil {
		return types.Demand{}, err
	}
	if !source.Valid() {
		return types.Demand{}, fmt.Errorf("%w: unknown demand source %d", types.ErrValidation, int(source))
	}
	if !e.InRange(targetFloor) {
		return types.Demand{}, fmt.Errorf("%w: target floor %d outside %d..%d", types.ErrValidation, targetFloor, e.MinFloor, e.MaxFloor)
	}

	demand := types.Demand{
		ID:          types.NewID(),
		ElevatorID:  elevatorID,
		Source:      source,
		TargetFloor: targetFloor,
		CreatedAt:   l.now(),
	}
	if err := tx.PutDemand(demand); err != nil {
		return types.Demand{}, err
	}
	if err := l.registry.SetDemanded(tx, elevatorID, targetFloor, true); err != nil {
		return types.Demand{}, err
	}

	return demand, nil
}

// Get returns the demand with the given id.
func (l *Ledger) Get(tx store.Tx, demandID string) (types.Demand, error) {
	return tx.Demand(demandID)
}
