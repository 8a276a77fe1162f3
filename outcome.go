package meshup

import "meshup/internal/check"

// Outcome classifies a single stage result within a run.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeDegraded
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFatal:
		return "fatal"
	default:
		check.Assertf(false, "unknown outcome: %d", o)
		return "unknown"
	}
}

// Status is the terminal result of a whole run. A run has exactly one.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusWarnings
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusWarnings:
		return "success-with-warnings"
	case StatusFatal:
		return "fatal"
	default:
		check.Assertf(false, "unknown status: %d", s)
		return "unknown"
	}
}

// ParseStatus maps the wire form of Status back to its value. It is the
// inverse of Status.String and is used when reading persisted runs.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "success":
		return StatusSuccess, true
	case "success-with-warnings":
		return StatusWarnings, true
	case "fatal":
		return StatusFatal, true
	default:
		return StatusSuccess, false
	}
}

// ParseOutcome maps the wire form of Outcome back to its value.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "success":
		return OutcomeSuccess, true
	case "degraded":
		return OutcomeDegraded, true
	case "fatal":
		return OutcomeFatal, true
	default:
		return OutcomeSuccess, false
	}
}
