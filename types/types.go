package types

import (
	"time"

	"github.com/google/uuid"
)

// Elevator is the persisted state of a single car.
type Elevator struct {
	ID           string       `json:"id" yaml:"id"`
	MinFloor     int          `json:"min_floor" yaml:"min_floor"`
	MaxFloor     int          `json:"max_floor" yaml:"max_floor"`
	CurrentFloor int          `json:"current_floor" yaml:"current_floor"`
	NextStop     *int         `json:"next_stop" yaml:"next_stop"`
	MotionStatus MotionStatus `json:"motion_status" yaml:"motion_status"`
}

// Floor is a registry entry: whether a floor of one elevator has an unserved demand.
type Floor struct {
	ElevatorID string `json:"elevator_id" yaml:"elevator_id"`
	Floor      int    `json:"floor" yaml:"floor"`
	IsDemanded bool   `json:"is_demanded" yaml:"is_demanded"`
}

// Demand is an immutable ledger entry.
type Demand struct {
	ID          string    `json:"id" yaml:"id"`
	ElevatorID  string    `json:"elevator_id" yaml:"elevator_id"`
	Source      Source    `json:"source" yaml:"source"`
	TargetFloor int       `json:"target_floor" yaml:"target_floor"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NewID returns a fresh identifier for elevators and demands.
func NewID() string {
	return uuid.NewString()
}

// InRange reports whether floor lies within the elevator's floor range.
func (e Elevator) InRange(floor int) bool {
	return e.MinFloor <= floor && floor <= e.MaxFloor
}

// HasNextStop reports whether the elevator has a pending stop.
func (e Elevator) HasNextStop() bool {
	return e.NextStop != nil
}

// Copy returns a deep copy, so the caller can mutate NextStop freely.
func (e Elevator) Copy() Elevator {
	if e.NextStop != nil {
		next := *e.NextStop
		e.NextStop = &next
	}
	return e
}

// Stop returns a pointer to floor, for assigning NextStop.
func Stop(floor int) *int {
	return &floor
}
