package store

import (
	"sort"

	"elevatordispatch/types"
)

// Snapshot is the serialisable form of a store.
type Snapshot struct {
	Elevators []types.Elevator `yaml:"elevators"`
	Floors    []types.Floor    `yaml:"floors"`
	Demands   []types.Demand   `yaml:"demands"`
}

func (s state) snapshot() Snapshot {
	snap := Snapshot{
		Elevators: make([]types.Elevator, 0, len(s.elevators)),
		Floors:    make([]types.Floor, 0),
		Demands:   make([]types.Demand, 0, len(s.demands)),
	}

	for _, e := range s.elevators {
		snap.Elevators = append(snap.Elevators, e.Copy())
	}
	for _, registry := range s.floors {
		for _, f := range registry {
			snap.Floors = append(snap.Floors, f)
		}
	}
	for _, d := range s.demands {
		snap.Demands = append(snap.Demands, d)
	}

	sort.Slice(snap.Elevators, func(i, j int) bool { return snap.Elevators[i].ID < snap.Elevators[j].ID })
	sort.Slice(snap.Floors, func(i, j int) bool {
		if snap.Floors[i].ElevatorID != snap.Floors[j].ElevatorID {
			return snap.Floors[i].ElevatorID < snap.Floors[j].ElevatorID
		}
		return snap.Floors[i].Floor < snap.Floors[j].Floor
	})
	sort.Slice(snap.Demands, func(i, j int) bool {
		if !snap.Demands[i].CreatedAt.Equal(snap.Demands[j].CreatedAt) {
			return snap.Demands[i].CreatedAt.Before(snap.Demands[j].CreatedAt)
		}
		return snap.Demands[i].ID < snap.Demands[j].ID
	})

	return snap
}
