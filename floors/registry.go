// Package floors keeps the per-elevator floor registry: one entry per floor
// the elevator can stop at, each carrying whether it has an unserved demand.
package floors

import (
	"fmt"

	"github.com/golang/glog"

	"elevatordispatch/store"
	"elevatordispatch/types"
)

// Registry operates on the floor entries of a store transaction.
type Registry struct{}

func NewRegistry() *Registry {
	return &Registry{}
}

// Initialize creates an undemanded entry for every floor in the elevator's range.
func (r *Registry) Initialize(tx store.Tx, e types.Elevator) error {
	if e.MinFloor > e.MaxFloor {
		return fmt.Errorf("%w: min floor %d above max floor %d", types.ErrValidation, e.MinFloor, e.MaxFloor)
	}

	// Stop on MaxFloor itself: f++ past math.MaxInt would wrap.
	for f := e.MinFloor; ; f++ {
		err := tx.PutFloor(types.Floor{ElevatorID: e.ID, Floor: f, IsDemanded: false})
		if err != nil {
			return err
		}
		if f == e.MaxFloor {
			break
		}
	}
	glog.V(1).Infof("Initialized floors %d..%d of elevator %s", e.MinFloor, e.MaxFloor, e.ID)
	return nil
}

// SetDemanded sets the demand flag of one floor. An absent entry is
// reported as types.ErrNotFound.
func (r *Registry) SetDemanded(tx store.Tx, elevatorID string, floor int, value bool) error {
	entry, err := tx.Floor(elevatorID, floor)
	if err != nil {
		return err
	}
	entry.IsDemanded = value
	return tx.PutFloor(entry)
}

// ListDemanded returns the demanded floors in ascending order. An elevator
// without demands yields an empty slice; a missing elevator yields
// types.ErrNotFound.
func (r *Registry) ListDemanded(tx store.Tx, elevatorID string) ([]int, error) {
	if _, err := tx.Elevator(elevatorID); err != nil {
		return nil, err
	}

	entries, err := tx.Floors(elevatorID)
	if err != nil {
		return nil, err
	}

	demanded := make([]int, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDemanded {
			demanded = append(demanded, entry.Floor)
		}
	}
	return demanded, nil
}
