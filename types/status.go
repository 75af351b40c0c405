package types

import "fmt"

// MotionStatus is the current or intended direction of an elevator.
type MotionStatus int

const (
	Still MotionStatus = iota
	Ascending
	Descending
)

var motionStatusNames = [...]string{"still", "ascending", "descending"}

func (m MotionStatus) String() string {
	if m < Still || m > Descending {
		return fmt.Sprintf("MotionStatus(%d)", int(m))
	}
	return motionStatusNames[m]
}

// ParseMotionStatus rejects anything but still, ascending or descending.
func ParseMotionStatus(s string) (MotionStatus, error) {
	for i, name := range motionStatusNames {
		if name == s {
			return MotionStatus(i), nil
		}
	}
	return Still, fmt.Errorf("%w: unknown motion status %q", ErrValidation, s)
}

func (m MotionStatus) MarshalText() ([]byte, error) {
	if m < Still || m > Descending {
		return nil, fmt.Errorf("%w: unknown motion status %d", ErrValidation, int(m))
	}
	return []byte(m.String()), nil
}

func (m *MotionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseMotionStatus(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Source tells whether a demand was made inside the car or by a floor call.
type Source int

const (
	Inside Source = iota
	Outside
)

var sourceNames = [...]string{"inside", "outside"}

func (s Source) String() string {
	if s < Inside || s > Outside {
		return fmt.Sprintf("Source(%d)", int(s))
	}
	return sourceNames[s]
}

// ParseSource rejects anything but inside or outside.
func ParseSource(s string) (Source, error) {
	for i, name := range sourceNames {
		if name == s {
			return Source(i), nil
		}
	}
	return Inside, fmt.Errorf("%w: unknown demand source %q", ErrValidation, s)
}

func (s Source) Valid() bool {
	return s == Inside || s == Outside
}

func (s Source) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: unknown demand source %d", ErrValidation, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
