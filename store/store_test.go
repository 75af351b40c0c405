package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"elevatordispatch/types"
)

func seed(t *testing.T, s Store) types.Elevator {
	t.Helper()
	e := types.Elevator{ID: types.NewID(), MinFloor: 0, MaxFloor: 2, MotionStatus: types.Still}
	err := s.Update(func(tx Tx) error {
		if err := tx.PutElevator(e); err != nil {
			return err
		}
		for f := e.MinFloor; f <= e.MaxFloor; f++ {
			if err := tx.PutFloor(types.Floor{ElevatorID: e.ID, Floor: f}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return e
}

func TestMemory_MissingRecordsAreNotFound(t *testing.T) {
	m := NewMemory()
	m.View(func(tx Tx) error {
		if _, err := tx.Elevator("nope"); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for elevator, got %v", err)
		}
		if _, err := tx.Floor("nope", 0); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for floor, got %v", err)
		}
		if _, err := tx.Demand("nope"); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for demand, got %v", err)
		}
		return nil
	})
}

func TestMemory_FailedUpdateDiscardsAllWrites(t *testing.T) {
	m := NewMemory()
	e := seed(t, m)
	boom := errors.New("boom")

	err := m.Update(func(tx Tx) error {
		tx.PutDemand(types.Demand{ID: "d1", ElevatorID: e.ID, TargetFloor: 2})
		tx.PutFloor(types.Floor{ElevatorID: e.ID, Floor: 2, IsDemanded: true})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	m.View(func(tx Tx) error {
		if _, err := tx.Demand("d1"); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Demand of failed update was committed")
		}
		f, _ := tx.Floor(e.ID, 2)
		if f.IsDemanded {
			t.Errorf("Floor flag of failed update was committed")
		}
		return nil
	})
}

func TestMemory_TransactionReadsOwnWrites(t *testing.T) {
	m := NewMemory()
	e := seed(t, m)

	m.Update(func(tx Tx) error {
		tx.PutFloor(types.Floor{ElevatorID: e.ID, Floor: 1, IsDemanded: true})
		floors, _ := tx.Floors(e.ID)
		expected := []types.Floor{
			{ElevatorID: e.ID, Floor: 0},
			{ElevatorID: e.ID, Floor: 1, IsDemanded: true},
			{ElevatorID: e.ID, Floor: 2},
		}
		if !reflect.DeepEqual(floors, expected) {
			t.Errorf("Floors not as expected.\nExpected: %+v\nWas: %+v", expected, floors)
		}
		return nil
	})
}

func TestMemory_DemandsAreAppendOnly(t *testing.T) {
	m := NewMemory()
	d := types.Demand{ID: "d1", ElevatorID: "e", TargetFloor: 1}

	if err := m.Update(func(tx Tx) error { return tx.PutDemand(d) }); err != nil {
		t.Fatalf("first PutDemand: %v", err)
	}
	err := m.Update(func(tx Tx) error {
		d.TargetFloor = 2
		return tx.PutDemand(d)
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
}

func TestMemory_ViewIsReadOnly(t *testing.T) {
	m := NewMemory()
	err := m.View(func(tx Tx) error {
		return tx.PutElevator(types.Elevator{ID: "e"})
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
}

func TestFileStore_FlushThenRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	e := seed(t, fs)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err = fs.Update(func(tx Tx) error {
		e.NextStop = types.Stop(2)
		e.MotionStatus = types.Ascending
		if err := tx.PutElevator(e); err != nil {
			return err
		}
		if err := tx.PutFloor(types.Floor{ElevatorID: e.ID, Floor: 2, IsDemanded: true}); err != nil {
			return err
		}
		return tx.PutDemand(types.Demand{ID: "d1", ElevatorID: e.ID, Source: types.Outside, TargetFloor: 2, CreatedAt: created})
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	restored, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile after flush: %v", err)
	}

	expected := fs.Snapshot()
	result := restored.Snapshot()
	if !reflect.DeepEqual(result.Elevators, expected.Elevators) || !reflect.DeepEqual(result.Floors, expected.Floors) {
		t.Errorf("Restored state not as expected.\nExpected: %+v\nWas: %+v", expected, result)
	}
	if len(result.Demands) != 1 || !result.Demands[0].CreatedAt.Equal(created) || result.Demands[0].Source != types.Outside {
		t.Errorf("Restored demands not as expected: %+v", result.Demands)
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	fs, err := OpenFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if snap := fs.Snapshot(); len(snap.Elevators) != 0 || len(snap.Demands) != 0 {
		t.Errorf("Expected empty store, got %+v", snap)
	}
}

func TestFileStore_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	os.WriteFile(path, []byte("elevators: [{motion_status: hovering}]\n"), 0644)

	if _, err := OpenFile(path); err == nil {
		t.Errorf("Expected an error for an invalid snapshot")
	}
}

func TestFileStore_FailedFlushRejectsCommit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-dir", "state.yaml")

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	err = fs.Update(func(tx Tx) error {
		return tx.PutElevator(types.Elevator{ID: "e", MaxFloor: 1})
	})
	if err == nil {
		t.Fatalf("Expected flush into a missing directory to fail")
	}

	fs.View(func(tx Tx) error {
		if _, err := tx.Elevator("e"); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Elevator was committed although its snapshot was not written")
		}
		return nil
	})
}

func TestMemory_SlowBeforeCommitBlocksNeitherReadsNorQueuedCommits(t *testing.T) {
	m := NewMemory()
	first := seed(t, m)

	started := make(chan struct{})
	release := make(chan struct{})
	var (
		calls   int
		callsMu sync.Mutex
	)
	m.beforeCommit = func(Snapshot) error {
		callsMu.Lock()
		calls++
		n := calls
		callsMu.Unlock()
		if n == 1 {
			close(started)
			<-release
		}
		return nil
	}

	put := func(id string) error {
		return m.Update(func(tx Tx) error {
			return tx.PutElevator(types.Elevator{ID: id, MaxFloor: 1})
		})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- put("a")
	}()
	<-started

	err := m.View(func(tx Tx) error {
		_, err := tx.Elevator(first.ID)
		return err
	})
	if err != nil {
		t.Errorf("View during a pending commit: %v", err)
	}

	for _, id := range []string{"b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- put(id)
		}(id)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		m.queueMtx.Lock()
		queued := len(m.queue)
		m.queueMtx.Unlock()
		if queued == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected 2 queued commits, got %d", queued)
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Update: %v", err)
		}
	}

	if calls != 2 {
		t.Errorf("Snapshot writes not as expected.\nExpected: 2\nWas: %d", calls)
	}
	m.View(func(tx Tx) error {
		for _, id := range []string{"a", "b", "c"} {
			if _, err := tx.Elevator(id); err != nil {
				t.Errorf("Elevator %s: %v", id, err)
			}
		}
		return nil
	})
}

func TestMemory_RacingDuplicateDemandIsRejectedOnCommit(t *testing.T) {
	m := NewMemory()
	m.beforeCommit = func(Snapshot) error { return nil }
	d := types.Demand{ID: "d1", ElevatorID: "e", TargetFloor: 1}

	err := m.Update(func(tx Tx) error {
		if err := tx.PutDemand(d); err != nil {
			return err
		}
		// Another transaction commits the same demand first.
		return m.Update(func(other Tx) error { return other.PutDemand(d) })
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
	if snap := m.Snapshot(); len(snap.Demands) != 1 {
		t.Errorf("Expected one stored demand, got %+v", snap.Demands)
	}
}
