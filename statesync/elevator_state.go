package statesync

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"elevatordispatch/types"
)

// messageSize is the length of a serialized elevatorState.
const messageSize = 30

var errShortMessage = errors.New("statesync: message too short")

type elevatorState struct {
	id        uuid.UUID
	nonce     uint32
	minFloor  int
	maxFloor  int
	currFloor int
	nextStop  *int
	status    types.MotionStatus
	lastSync  time.Time
}

func fromElevator(e types.Elevator, nonce uint32) (*elevatorState, error) {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return nil, fmt.Errorf("statesync: elevator id %q: %w", e.ID, err)
	}
	for _, f := range []int{e.MinFloor, e.MaxFloor, e.CurrentFloor} {
		if f < math.MinInt16 || f > math.MaxInt16 {
			return nil, fmt.Errorf("statesync: floor %d does not fit the wire format", f)
		}
	}

	s := &elevatorState{
		id:        id,
		nonce:     nonce,
		minFloor:  e.MinFloor,
		maxFloor:  e.MaxFloor,
		currFloor: e.CurrentFloor,
		status:    e.MotionStatus,
	}
	if e.NextStop != nil {
		s.nextStop = types.Stop(*e.NextStop)
	}
	return s, nil
}

// Serializes an elevatorState into a byte slice.
func serialize(s elevatorState) []byte {
	buf := make([]byte, 0, messageSize)

	buf = append(buf, s.id[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, s.nonce)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(s.minFloor)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(s.maxFloor)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(s.currFloor)))
	buf = append(buf, byte(s.status))

	if s.nextStop != nil {
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(*s.nextStop)))
	} else {
		buf = append(buf, 0)
		buf = binary.LittleEndian.AppendUint16(buf, 0)
	}

	return buf
}

// Deserializes a byte slice into an elevatorState.
func deserialize(m []byte) (*elevatorState, error) {
	if len(m) < messageSize {
		return nil, fmt.Errorf("%w: %d bytes", errShortMessage, len(m))
	}

	s := &elevatorState{
		nonce:     binary.LittleEndian.Uint32(m[16:20]),
		minFloor:  int(int16(binary.LittleEndian.Uint16(m[20:22]))),
		maxFloor:  int(int16(binary.LittleEndian.Uint16(m[22:24]))),
		currFloor: int(int16(binary.LittleEndian.Uint16(m[24:26]))),
		status:    types.MotionStatus(m[26]),
	}
	copy(s.id[:], m[0:16])

	if s.status < types.Still || s.status > types.Descending {
		return nil, fmt.Errorf("statesync: unknown motion status %d", m[26])
	}
	if m[27] == 1 {
		s.nextStop = types.Stop(int(int16(binary.LittleEndian.Uint16(m[28:30]))))
	}

	return s, nil
}

func (s *elevatorState) toElevator() types.Elevator {
	e := types.Elevator{
		ID:           s.id.String(),
		MinFloor:     s.minFloor,
		MaxFloor:     s.maxFloor,
		CurrentFloor: s.currFloor,
		MotionStatus: s.status,
	}
	if s.nextStop != nil {
		e.NextStop = types.Stop(*s.nextStop)
	}
	return e
}
