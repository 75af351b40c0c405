package controller

import "elevatordispatch/types"

// ComputeNextStop applies the scan policy to the ascending set of demanded
// floors: keep serving demands in the current direction, reverse only when
// none are left that way. A still elevator takes the lowest demanded floor.
// Returns nil when no floor qualifies.
func ComputeNextStop(e types.Elevator, demanded []int) *int {
	switch e.MotionStatus {
	case types.Ascending:
		if f, ok := nearestAbove(e.CurrentFloor, demanded); ok {
			return types.Stop(f)
		}
		if f, ok := nearestBelow(e.CurrentFloor, demanded); ok {
			return types.Stop(f)
		}
	case types.Descending:
		if f, ok := nearestBelow(e.CurrentFloor, demanded); ok {
			return types.Stop(f)
		}
		if f, ok := nearestAbove(e.CurrentFloor, demanded); ok {
			return types.Stop(f)
		}
	default:
		if len(demanded) > 0 {
			return types.Stop(demanded[0])
		}
	}
	return nil
}

// nearestAbove returns the smallest demanded floor strictly above currFloor.
func nearestAbove(currFloor int, demanded []int) (int, bool) {
	for _, f := range demanded {
		if f > currFloor {
			return f, true
		}
	}
	return 0, false
}

// nearestBelow returns the largest demanded floor strictly below currFloor.
func nearestBelow(currFloor int, demanded []int) (int, bool) {
	for i := len(demanded) - 1; i >= 0; i-- {
		if demanded[i] < currFloor {
			return demanded[i], true
		}
	}
	return 0, false
}

// motionTowards derives the motion status for heading from currFloor to next.
// A stop at the current floor needs no travel and leaves the elevator still.
func motionTowards(currFloor int, next *int) types.MotionStatus {
	switch {
	case next == nil, *next == currFloor:
		return types.Still
	case *next > currFloor:
		return types.Ascending
	default:
		return types.Descending
	}
}
