package controller

import (
	"fmt"

	"elevatordispatch/floors"
	"elevatordispatch/store"
	"elevatordispatch/types"
)

// StateMachine moves an elevator between stops and keeps its next stop and
// motion status consistent with the floor registry.
type StateMachine struct {
	registry *floors.Registry
}

func NewStateMachine(registry *floors.Registry) *StateMachine {
	return &StateMachine{registry: registry}
}

// NextStop computes the next stop of e from the demanded floors in tx.
func (sm *StateMachine) NextStop(tx store.Tx, e types.Elevator) (*int, error) {
	demanded, err := sm.registry.ListDemanded(tx, e.ID)
	if err != nil {
		return nil, err
	}
	return ComputeNextStop(e, demanded), nil
}

// Advance moves e to its next stop, clears the demand there and picks the
// following stop. The direction used for that choice is the one the
// elevator arrived with. Without a pending stop, e is returned unchanged
// together with types.ErrInvalidOperation.
func (sm *StateMachine) Advance(tx store.Tx, e types.Elevator) (types.Elevator, error) {
	if !e.HasNextStop() {
		return e, fmt.Errorf("%w: no floors demanded", types.ErrInvalidOperation)
	}

	moved := e.Copy()
	moved.CurrentFloor = *moved.NextStop

	if err := sm.registry.SetDemanded(tx, moved.ID, moved.CurrentFloor, false); err != nil {
		return e, err
	}

	next, err := sm.NextStop(tx, moved)
	if err != nil {
		return e, err
	}
	moved.NextStop = next
	moved.MotionStatus = motionTowards(moved.CurrentFloor, next)

	if err := tx.PutElevator(moved); err != nil {
		return e, err
	}
	return moved, nil
}

// Start gives an idle elevator without a pending stop its first stop.
// It reports whether e changed.
func (sm *StateMachine) Start(tx store.Tx, e *types.Elevator) (bool, error) {
	if e.MotionStatus != types.Still || e.HasNextStop() {
		return false, nil
	}

	next, err := sm.NextStop(tx, *e)
	if err != nil {
		return false, err
	}
	if next == nil {
		return false, nil
	}

	e.NextStop = next
	e.MotionStatus = motionTowards(e.CurrentFloor, next)
	return true, tx.PutElevator(*e)
}
