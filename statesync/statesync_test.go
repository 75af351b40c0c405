package statesync

import (
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"elevatordispatch/types"
)

func TestSerializeDeserialize(t *testing.T) {
	inputs := []elevatorState{
		{
			id:        uuid.New(),
			nonce:     0,
			minFloor:  0,
			maxFloor:  10,
			currFloor: 0,
			status:    types.Still,
		},
		{
			id:        uuid.New(),
			nonce:     256,
			minFloor:  -2,
			maxFloor:  10,
			currFloor: -1,
			nextStop:  types.Stop(-2),
			status:    types.Descending,
		},
		{
			id:        uuid.New(),
			nonce:     600,
			minFloor:  3,
			maxFloor:  40,
			currFloor: 5,
			nextStop:  types.Stop(38),
			status:    types.Ascending,
		},
	}

	for _, input := range inputs {
		serialized := serialize(input)
		if len(serialized) != messageSize {
			t.Errorf("Serialized length not as expected.\nExpected: %d\nWas: %d", messageSize, len(serialized))
		}

		deserialized, err := deserialize(serialized)
		if err != nil {
			t.Fatalf("deserialize: %v", err)
		}
		if !reflect.DeepEqual(input, *deserialized) {
			t.Errorf("Deserialized `elevatorState` does not match original.\nOriginal: %+v\nDeserialized: %+v", input, *deserialized)
		}
	}
}

func TestDeserializeRejectsShortMessage(t *testing.T) {
	_, err := deserialize(make([]byte, messageSize-1))
	if !errors.Is(err, errShortMessage) {
		t.Errorf("Expected errShortMessage, got %v", err)
	}
}

func TestDeserializeRejectsUnknownStatus(t *testing.T) {
	m := serialize(elevatorState{id: uuid.New(), status: types.Ascending})
	m[26] = 7
	if _, err := deserialize(m); err == nil {
		t.Errorf("Expected an error for motion status 7")
	}
}

func TestFromElevatorRejectsNonUUID(t *testing.T) {
	_, err := fromElevator(types.Elevator{ID: "elevator-1"}, 0)
	if err == nil {
		t.Errorf("Expected an error for a non-uuid id")
	}
}

func TestUpdateStates(t *testing.T) {
	tracker := NewTracker(DefaultSyncTimeout)
	now := time.Now()
	id := uuid.New()

	initState := &elevatorState{id: id, nonce: 0, maxFloor: 9, currFloor: 4, status: types.Descending, lastSync: now}
	endState := &elevatorState{id: id, nonce: 5, maxFloor: 9, currFloor: 5, status: types.Descending, lastSync: now}
	staleState := &elevatorState{id: id, nonce: 2, maxFloor: 9, currFloor: 0, status: types.Descending, lastSync: now} // old nonce not applied

	tracker.updateStates(initState)
	tracker.updateStates(endState)
	if tracker.updateStates(staleState) {
		t.Errorf("Stale nonce was applied")
	}

	if !reflect.DeepEqual(tracker.states[id.String()], endState) {
		t.Errorf("Invalid state after applying updates")
	}
}

func TestUpdateStatesAcceptsRestartedPublisher(t *testing.T) {
	tracker := NewTracker(DefaultSyncTimeout)
	now := time.Now()
	id := uuid.New()

	tracker.updateStates(&elevatorState{id: id, nonce: 900, lastSync: now})
	restarted := &elevatorState{id: id, nonce: 0, currFloor: 3, lastSync: now.Add(2 * DefaultSyncTimeout)}

	if !tracker.updateStates(restarted) {
		t.Errorf("Expected status of restarted publisher to replace the silent one")
	}
}

func TestAliveAndSilentElevators(t *testing.T) {
	tracker := NewTracker(DefaultSyncTimeout)
	now := time.Now()
	tracker.now = func() time.Time { return now }

	alive := uuid.New()
	silent := uuid.New()
	tracker.updateStates(&elevatorState{id: alive, lastSync: now})
	tracker.updateStates(&elevatorState{id: silent, lastSync: now.Add(-1 * time.Hour)})

	if got := tracker.GetAliveElevatorIDs(); !reflect.DeepEqual(got, []string{alive.String()}) {
		t.Errorf("Alive elevators not as expected.\nExpected: %v\nWas: %v", []string{alive.String()}, got)
	}
	if got := tracker.GetSilentElevatorIDs(); !reflect.DeepEqual(got, []string{silent.String()}) {
		t.Errorf("Silent elevators not as expected.\nExpected: %v\nWas: %v", []string{silent.String()}, got)
	}
}

func TestPublisherToTracker(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp not available: %v", err)
	}
	defer conn.Close()

	tracker := NewTracker(DefaultSyncTimeout)
	done := make(chan struct{})
	go func() {
		tracker.Receive(conn)
		close(done)
	}()

	publisher, err := NewPublisher(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer publisher.Close()

	sent := types.Elevator{
		ID:           types.NewID(),
		MinFloor:     0,
		MaxFloor:     10,
		CurrentFloor: 2,
		NextStop:     types.Stop(8),
		MotionStatus: types.Ascending,
	}
	publisher.ElevatorChanged(sent)

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, ok := tracker.GetState(sent.ID)
		if ok {
			if !reflect.DeepEqual(got, sent) {
				t.Errorf("Received state not as expected.\nExpected: %+v\nWas: %+v", sent, got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("No state received for elevator %s", sent.ID)
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()
	<-done
}
