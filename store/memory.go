package store

import (
	"fmt"
	"sort"
	"sync"

	"elevatordispatch/types"
)

var _ Store = (*Memory)(nil)

type floorKey struct {
	elevatorID string
	floor      int
}

type state struct {
	elevators map[string]types.Elevator
	floors    map[string]map[int]types.Floor
	demands   map[string]types.Demand
}

func newState() state {
	return state{
		elevators: make(map[string]types.Elevator),
		floors:    make(map[string]map[int]types.Floor),
		demands:   make(map[string]types.Demand),
	}
}

func (s state) clone() state {
	c := newState()
	for id, e := range s.elevators {
		c.elevators[id] = e.Copy()
	}
	for id, registry := range s.floors {
		floors := make(map[int]types.Floor, len(registry))
		for n, f := range registry {
			floors[n] = f
		}
		c.floors[id] = floors
	}
	for id, d := range s.demands {
		c.demands[id] = d
	}
	return c
}

func (s state) apply(tx *memTx) {
	for id, e := range tx.elevators {
		s.elevators[id] = e
	}
	for key, f := range tx.floors {
		registry, ok := s.floors[key.elevatorID]
		if !ok {
			registry = make(map[int]types.Floor)
			s.floors[key.elevatorID] = registry
		}
		registry[key.floor] = f
	}
	for id, d := range tx.demands {
		s.demands[id] = d
	}
}

// Memory keeps all records in maps guarded by one RWMutex. Writes are
// buffered per transaction and applied together on commit.
type Memory struct {
	mtx   sync.RWMutex
	state state

	// beforeCommit, when set, sees the state a commit would produce and can veto it.
	// It runs without mtx held; commitMtx orders its calls.
	beforeCommit func(Snapshot) error
	commitMtx    sync.Mutex

	queueMtx sync.Mutex
	queue    []*pendingCommit
}

type pendingCommit struct {
	tx   *memTx
	err  error
	done chan struct{}
}

func NewMemory() *Memory {
	return &Memory{state: newState()}
}

func (m *Memory) View(fn func(tx Tx) error) error {
	return fn(&memTx{store: m})
}

func (m *Memory) Update(fn func(tx Tx) error) error {
	tx := &memTx{
		store:     m,
		writable:  true,
		elevators: make(map[string]types.Elevator),
		floors:    make(map[floorKey]types.Floor),
		demands:   make(map[string]types.Demand),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx)
}

func (s state) conflict(tx *memTx) error {
	for id := range tx.demands {
		if _, exists := s.demands[id]; exists {
			return fmt.Errorf("demand %s: %w", id, ErrConflict)
		}
	}
	return nil
}

func (m *Memory) commit(tx *memTx) error {
	if tx.empty() {
		return nil
	}

	if m.beforeCommit == nil {
		m.mtx.Lock()
		defer m.mtx.Unlock()
		if err := m.state.conflict(tx); err != nil {
			return err
		}
		m.state.apply(tx)
		return nil
	}

	p := &pendingCommit{tx: tx, done: make(chan struct{})}
	m.queueMtx.Lock()
	m.queue = append(m.queue, p)
	m.queueMtx.Unlock()

	m.commitMtx.Lock()
	defer m.commitMtx.Unlock()

	// Commits queued while the previous holder was writing went out with it.
	select {
	case <-p.done:
		return p.err
	default:
	}

	m.queueMtx.Lock()
	batch := m.queue
	m.queue = nil
	m.queueMtx.Unlock()

	m.commitBatch(batch)
	return p.err
}

// commitBatch applies every queued transaction to a copy of the state, hands
// the copy to beforeCommit once and publishes it only if that succeeds.
// Callers hold commitMtx, so the state cannot change underneath.
func (m *Memory) commitBatch(batch []*pendingCommit) {
	m.mtx.RLock()
	next := m.state.clone()
	m.mtx.RUnlock()

	applied := make([]*pendingCommit, 0, len(batch))
	for _, p := range batch {
		if err := next.conflict(p.tx); err != nil {
			p.err = err
			close(p.done)
			continue
		}
		next.apply(p.tx)
		applied = append(applied, p)
	}
	if len(applied) == 0 {
		return
	}

	if err := m.beforeCommit(next.snapshot()); err != nil {
		for _, p := range applied {
			p.err = err
		}
	} else {
		m.mtx.Lock()
		m.state = next
		m.mtx.Unlock()
	}
	for _, p := range applied {
		close(p.done)
	}
}

// Snapshot returns a copy of every record, ordered for stable output.
func (m *Memory) Snapshot() Snapshot {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.state.snapshot()
}

// Restore replaces the contents of the store with s.
func (m *Memory) Restore(s Snapshot) {
	next := newState()
	for _, e := range s.Elevators {
		next.elevators[e.ID] = e.Copy()
	}
	for _, f := range s.Floors {
		registry, ok := next.floors[f.ElevatorID]
		if !ok {
			registry = make(map[int]types.Floor)
			next.floors[f.ElevatorID] = registry
		}
		registry[f.Floor] = f
	}
	for _, d := range s.Demands {
		next.demands[d.ID] = d
	}

	m.commitMtx.Lock()
	defer m.commitMtx.Unlock()
	m.mtx.Lock()
	m.state = next
	m.mtx.Unlock()
}

type memTx struct {
	store    *Memory
	writable bool

	elevators map[string]types.Elevator
	floors    map[floorKey]types.Floor
	demands   map[string]types.Demand
}

func (tx *memTx) empty() bool {
	return len(tx.elevators) == 0 && len(tx.floors) == 0 && len(tx.demands) == 0
}

func (tx *memTx) Elevator(id string) (types.Elevator, error) {
	if e, ok := tx.elevators[id]; ok {
		return e.Copy(), nil
	}

	tx.store.mtx.RLock()
	defer tx.store.mtx.RUnlock()
	e, ok := tx.store.state.elevators[id]
	if !ok {
		return types.Elevator{}, fmt.Errorf("elevator %s: %w", id, types.ErrNotFound)
	}
	return e.Copy(), nil
}

func (tx *memTx) PutElevator(e types.Elevator) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.elevators[e.ID] = e.Copy()
	return nil
}

func (tx *memTx) Floor(elevatorID string, floor int) (types.Floor, error) {
	if f, ok := tx.floors[floorKey{elevatorID, floor}]; ok {
		return f, nil
	}

	tx.store.mtx.RLock()
	defer tx.store.mtx.RUnlock()
	f, ok := tx.store.state.floors[elevatorID][floor]
	if !ok {
		return types.Floor{}, fmt.Errorf("floor %d of elevator %s: %w", floor, elevatorID, types.ErrNotFound)
	}
	return f, nil
}

func (tx *memTx) PutFloor(f types.Floor) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.floors[floorKey{f.ElevatorID, f.Floor}] = f
	return nil
}

func (tx *memTx) Floors(elevatorID string) ([]types.Floor, error) {
	merged := make(map[int]types.Floor)

	tx.store.mtx.RLock()
	for n, f := range tx.store.state.floors[elevatorID] {
		merged[n] = f
	}
	tx.store.mtx.RUnlock()

	for key, f := range tx.floors {
		if key.elevatorID == elevatorID {
			merged[key.floor] = f
		}
	}

	floors := make([]types.Floor, 0, len(merged))
	for _, f := range merged {
		floors = append(floors, f)
	}
	sort.Slice(floors, func(i, j int) bool { return floors[i].Floor < floors[j].Floor })
	return floors, nil
}

func (tx *memTx) Demand(id string) (types.Demand, error) {
	if d, ok := tx.demands[id]; ok {
		return d, nil
	}

	tx.store.mtx.RLock()
	defer tx.store.mtx.RUnlock()
	d, ok := tx.store.state.demands[id]
	if !ok {
		return types.Demand{}, fmt.Errorf("demand %s: %w", id, types.ErrNotFound)
	}
	return d, nil
}

func (tx *memTx) PutDemand(d types.Demand) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if _, exists := tx.demands[d.ID]; exists {
		return fmt.Errorf("demand %s: %w", d.ID, ErrConflict)
	}
	if _, err := tx.Demand(d.ID); err == nil {
		return fmt.Errorf("demand %s: %w", d.ID, ErrConflict)
	}
	tx.demands[d.ID] = d
	return nil
}
