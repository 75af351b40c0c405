// Package statesync broadcasts elevator status over UDP and tracks the
// newest status received per elevator.
package statesync

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	"elevatordispatch/types"
)

const (
	DefaultInterval    = 100 * time.Millisecond
	DefaultSyncTimeout = 1 * time.Second
)

// Publisher sends the status of every changed elevator to a UDP address and
// repeats the latest statuses on a fixed interval, so listeners that join
// late or miss a datagram catch up.
type Publisher struct {
	mtx    sync.Mutex
	conn   net.Conn
	nonce  uint32
	latest map[string]types.Elevator
}

// NewPublisher dials addr, e.g. "255.255.255.255:15001".
func NewPublisher(addr string) (*Publisher, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, latest: make(map[string]types.Elevator)}, nil
}

// ElevatorChanged sends e immediately.
func (p *Publisher) ElevatorChanged(e types.Elevator) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.latest[e.ID] = e.Copy()
	p.send(e)
}

// Run rebroadcasts the latest statuses every interval until ctx is done.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mtx.Lock()
			for _, e := range p.latest {
				p.send(e)
			}
			p.mtx.Unlock()
		}
	}
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}

// send must be called with p.mtx held.
func (p *Publisher) send(e types.Elevator) {
	s, err := fromElevator(e, p.nonce)
	if err != nil {
		glog.Warningf("Not broadcasting elevator %s: %v", e.ID, err)
		return
	}
	p.nonce++

	if _, err := p.conn.Write(serialize(*s)); err != nil {
		glog.Warningf("UDP error: %v", err)
	}
}

// Tracker keeps the newest status received for each elevator.
type Tracker struct {
	mtx         sync.RWMutex
	states      map[string]*elevatorState
	syncTimeout time.Duration
	now         func() time.Time
}

func NewTracker(syncTimeout time.Duration) *Tracker {
	return &Tracker{
		states:      make(map[string]*elevatorState),
		syncTimeout: syncTimeout,
		now:         time.Now,
	}
}

// Listen binds addr, e.g. ":15001", and receives statuses until ctx is done.
func (t *Tracker) Listen(ctx context.Context, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	t.Receive(conn)
	return nil
}

// Receive reads statuses from conn until it is closed.
func (t *Tracker) Receive(conn net.PacketConn) {
	buf := make([]byte, 1024)
	for {
		n, _, err := conn.ReadFrom(buf)
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			glog.Warningf("UDP error: %v", err)
			continue
		}

		s, err := deserialize(buf[:n])
		if err != nil {
			glog.V(1).Infof("Dropping status message: %v", err)
			continue
		}
		s.lastSync = t.now()

		if t.updateStates(s) {
			glog.V(1).Infof("Elevator %s at floor %d, %s", s.id, s.currFloor, s.status)
		}
	}
}

// updateStates stores s unless a newer status of the same elevator is
// already known. A stored status that has not synced within the timeout is
// replaced regardless of nonce, which lets a restarted publisher through.
func (t *Tracker) updateStates(s *elevatorState) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	id := s.id.String()
	old, exists := t.states[id]
	if exists && old.nonce >= s.nonce && s.lastSync.Sub(old.lastSync) <= t.syncTimeout {
		return false
	}
	t.states[id] = s
	return true
}

// GetState returns the last status received for elevatorID.
func (t *Tracker) GetState(elevatorID string) (types.Elevator, bool) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	s, ok := t.states[elevatorID]
	if !ok {
		return types.Elevator{}, false
	}
	return s.toElevator(), true
}

// GetAliveElevatorIDs returns, sorted, the elevators that synced within the timeout.
func (t *Tracker) GetAliveElevatorIDs() []string {
	return t.filterIDs(func(s *elevatorState) bool {
		return t.now().Sub(s.lastSync) <= t.syncTimeout
	})
}

// GetSilentElevatorIDs returns, sorted, the elevators that have not synced within the timeout.
func (t *Tracker) GetSilentElevatorIDs() []string {
	return t.filterIDs(func(s *elevatorState) bool {
		return t.now().Sub(s.lastSync) > t.syncTimeout
	})
}

func (t *Tracker) filterIDs(keep func(*elevatorState) bool) []string {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	ids := make([]string, 0, len(t.states))
	for id, s := range t.states {
		if keep(s) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// MonitorFailedSyncs logs elevators that stop syncing, checking every interval until ctx is done.
func (t *Tracker) MonitorFailedSyncs(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reported := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			silent := make(map[string]bool)
			for _, id := range t.GetSilentElevatorIDs() {
				silent[id] = true
				if !reported[id] {
					glog.Warningf("Elevator %s has not synced for over %v", id, t.syncTimeout)
				}
			}
			reported = silent
		}
	}
}
