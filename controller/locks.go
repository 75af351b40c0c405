package controller

import "sync"

// lockTable hands out one mutex per elevator id. Callers only lock ids of
// stored elevators, and elevators are never deleted, so the table grows
// with the fleet and no further.
type lockTable struct {
	mtx   sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex of elevatorID and returns its release function.
func (lt *lockTable) lock(elevatorID string) func() {
	lt.mtx.Lock()
	l, ok := lt.locks[elevatorID]
	if !ok {
		l = &sync.Mutex{}
		lt.locks[elevatorID] = l
	}
	lt.mtx.Unlock()

	l.Lock()
	return l.Unlock
}
