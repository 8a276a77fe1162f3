package meshup

import "time"

// Role says which state machine produced a run.
type Role string

const (
	RoleNode    Role = "node"
	RoleGateway Role = "gateway"
)

// StageResult is one stage's recorded outcome.
type StageResult struct {
	Stage   string
	Outcome Outcome
	Elapsed time.Duration
	Detail  string
}

// Run is the record of one bootstrap or convergence activation: an ordered
// sequence of stage results and a single terminal status. Stages are
// appended in execution order and never rewritten.
type Run struct {
	ID         int64 // assigned by the history store, zero until recorded
	Role       Role
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageResult
	Status     Status
}

// NewRun starts an empty run record for the given role.
func NewRun(role Role, startedAt time.Time) *Run {
	return &Run{Role: role, StartedAt: startedAt}
}

// Append records the next stage result.
func (r *Run) Append(res StageResult) {
	r.Stages = append(r.Stages, res)
}

// Finalize stamps the finish time and derives the terminal status:
// fatal if any stage was fatal, success-with-warnings if any was degraded,
// success otherwise.
func (r *Run) Finalize(finishedAt time.Time) Status {
	r.FinishedAt = finishedAt
	r.Status = StatusSuccess
	for _, s := range r.Stages {
		switch s.Outcome {
		case OutcomeFatal:
			r.Status = StatusFatal
			return r.Status
		case OutcomeDegraded:
			r.Status = StatusWarnings
		}
	}
	return r.Status
}

// FatalStage returns the name of the stage that ended the run, if any.
func (r *Run) FatalStage() (string, bool) {
	for _, s := range r.Stages {
		if s.Outcome == OutcomeFatal {
			return s.Stage, true
		}
	}
	return "", false
}

// DegradedCount reports how many stages recorded a degraded outcome.
func (r *Run) DegradedCount() int {
	n := 0
	for _, s := range r.Stages {
		if s.Outcome == OutcomeDegraded {
			n++
		}
	}
	return n
}
