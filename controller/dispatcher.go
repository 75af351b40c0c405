// Package controller holds the scheduling core: the scan policy, the
// elevator state machine and the dispatcher that serializes all work on
// one elevator.
package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"elevatordispatch/floors"
	"elevatordispatch/ledger"
	"elevatordispatch/store"
	"elevatordispatch/types"
)

// Observer is notified with the committed state of an elevator after every
// change.
type Observer interface {
	ElevatorChanged(e types.Elevator)
}

// Dispatcher is the entry point of the core. Each operation runs in one
// store transaction; operations on the same elevator are serialized.
type Dispatcher struct {
	store    store.Store
	registry *floors.Registry
	ledger   *ledger.Ledger
	machine  *StateMachine
	locks    *lockTable
	observer Observer

	maxFloors int
}

// DefaultMaxFloors bounds the number of floors one elevator may serve.
const DefaultMaxFloors = 1000

type Option func(*Dispatcher)

// WithClock sets the clock used to stamp demands.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.ledger = ledger.New(d.registry, now)
	}
}

// WithMaxFloors sets the largest floor count CreateElevator accepts.
func WithMaxFloors(n int) Option {
	return func(d *Dispatcher) {
		d.maxFloors = n
	}
}

// WithObserver registers o for elevator changes.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

func NewDispatcher(s store.Store, opts ...Option) *Dispatcher {
	registry := floors.NewRegistry()
	d := &Dispatcher{
		store:    s,
		registry: registry,
		ledger:   ledger.New(registry, time.Now),
		machine:  NewStateMachine(registry),
		locks:    newLockTable(),

		maxFloors: DefaultMaxFloors,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type elevatorOptions struct {
	startFloor *int
}

type ElevatorOption func(*elevatorOptions)

// WithStartFloor places a new elevator at floor instead of the default.
func WithStartFloor(floor int) ElevatorOption {
	return func(o *elevatorOptions) {
		o.startFloor = &floor
	}
}

// CreateElevator creates an idle elevator serving minFloor..maxFloor and its
// floor registry. It starts at floor 0 when that is in range, else at minFloor.
func (d *Dispatcher) CreateElevator(minFloor, maxFloor int, opts ...ElevatorOption) (types.Elevator, error) {
	var o elevatorOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := types.Elevator{
		ID:           types.NewID(),
		MinFloor:     minFloor,
		MaxFloor:     maxFloor,
		MotionStatus: types.Still,
	}
	if minFloor > maxFloor {
		return types.Elevator{}, fmt.Errorf("%w: min floor %d above max floor %d", types.ErrValidation, minFloor, maxFloor)
	}
	// maxFloor-minFloor can overflow int; the unsigned difference cannot.
	if span := uint64(maxFloor) - uint64(minFloor); d.maxFloors < 1 || span >= uint64(d.maxFloors) {
		return types.Elevator{}, fmt.Errorf("%w: floors %d..%d exceed the limit of %d floors", types.ErrValidation, minFloor, maxFloor, d.maxFloors)
	}

	switch {
	case o.startFloor != nil:
		if !e.InRange(*o.startFloor) {
			return types.Elevator{}, fmt.Errorf("%w: start floor %d outside %d..%d", types.ErrValidation, *o.startFloor, minFloor, maxFloor)
		}
		e.CurrentFloor = *o.startFloor
	case e.InRange(0):
		e.CurrentFloor = 0
	default:
		e.CurrentFloor = minFloor
	}

	err := d.store.Update(func(tx store.Tx) error {
		if err := tx.PutElevator(e); err != nil {
			return err
		}
		return d.registry.Initialize(tx, e)
	})
	if err != nil {
		return types.Elevator{}, err
	}

	glog.Infof("Created elevator %s serving floors %d..%d at floor %d", e.ID, minFloor, maxFloor, e.CurrentFloor)
	d.notify(e)
	return e, nil
}

func (d *Dispatcher) GetElevator(id string) (types.Elevator, error) {
	var e types.Elevator
	err := d.store.View(func(tx store.Tx) error {
		var err error
		e, err = tx.Elevator(id)
		return err
	})
	return e, err
}

// ListDemandedFloors returns the demanded floors of an elevator in ascending order.
func (d *Dispatcher) ListDemandedFloors(elevatorID string) ([]int, error) {
	var demanded []int
	err := d.store.View(func(tx store.Tx) error {
		var err error
		demanded, err = d.registry.ListDemanded(tx, elevatorID)
		return err
	})
	return demanded, err
}

// CreateDemand records a demand. An idle elevator without a pending stop is
// sent towards the demanded floors right away.
func (d *Dispatcher) CreateDemand(elevatorID string, source types.Source, targetFloor int) (types.Demand, error) {
	unlock, err := d.lockElevator(elevatorID)
	if err != nil {
		return types.Demand{}, err
	}
	defer unlock()

	var (
		demand  types.Demand
		e       types.Elevator
		started bool
	)
	err = d.store.Update(func(tx store.Tx) error {
		var err error
		demand, err = d.ledger.Record(tx, elevatorID, source, targetFloor)
		if err != nil {
			return err
		}

		e, err = tx.Elevator(elevatorID)
		if err != nil {
			return err
		}
		started, err = d.machine.Start(tx, &e)
		return err
	})
	if err != nil {
		return types.Demand{}, err
	}

	glog.Infof("Recorded %s demand %s for floor %d of elevator %s", source, demand.ID, targetFloor, elevatorID)
	if started {
		glog.Infof("Elevator %s %s from floor %d towards %d", e.ID, e.MotionStatus, e.CurrentFloor, *e.NextStop)
		d.notify(e)
	}
	return demand, nil
}

func (d *Dispatcher) GetDemand(id string) (types.Demand, error) {
	var demand types.Demand
	err := d.store.View(func(tx store.Tx) error {
		var err error
		demand, err = d.ledger.Get(tx, id)
		return err
	})
	return demand, err
}

// AdvanceElevator moves an elevator to its next stop. It fails with
// types.ErrInvalidOperation when the elevator has nowhere to go, and is not
// idempotent.
func (d *Dispatcher) AdvanceElevator(elevatorID string) (types.Elevator, error) {
	unlock, err := d.lockElevator(elevatorID)
	if err != nil {
		return types.Elevator{}, err
	}
	defer unlock()

	var moved types.Elevator
	err = d.store.Update(func(tx store.Tx) error {
		e, err := tx.Elevator(elevatorID)
		if err != nil {
			return err
		}
		moved, err = d.machine.Advance(tx, e)
		return err
	})
	if errors.Is(err, types.ErrInvalidOperation) {
		glog.V(2).Infof("Elevator %s has no floors demanded", elevatorID)
		return types.Elevator{}, err
	}
	if err != nil {
		return types.Elevator{}, err
	}

	if moved.HasNextStop() {
		glog.Infof("Elevator %s arrived at floor %d, %s towards %d", moved.ID, moved.CurrentFloor, moved.MotionStatus, *moved.NextStop)
	} else {
		glog.Infof("Elevator %s arrived at floor %d, now still", moved.ID, moved.CurrentFloor)
	}
	d.notify(moved)
	return moved, nil
}

// lockElevator takes the lock of an existing elevator. Unknown ids fail
// before a table entry is made for them.
func (d *Dispatcher) lockElevator(elevatorID string) (func(), error) {
	err := d.store.View(func(tx store.Tx) error {
		_, err := tx.Elevator(elevatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d.locks.lock(elevatorID), nil
}

func (d *Dispatcher) notify(e types.Elevator) {
	if d.observer != nil {
		d.observer.ElevatorChanged(e.Copy())
	}
}
