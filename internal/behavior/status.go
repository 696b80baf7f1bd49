package behavior

import "fmt"

// Status is the three-valued result of ticking a node.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the status ends a node's current activation.
// StatusRunning means "not yet decided, tick again".
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

func (s Status) valid() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusRunning
}

// MarshalText encodes the status as its string form, for JSON payloads and
// YAML mission specs.
func (s Status) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("behavior: invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes "SUCCESS", "FAILURE" or "RUNNING".
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "SUCCESS":
		*s = StatusSuccess
	case "FAILURE":
		*s = StatusFailure
	case "RUNNING":
		*s = StatusRunning
	default:
		return fmt.Errorf("behavior: invalid status %q", string(text))
	}
	return nil
}
