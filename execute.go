package meshup

import (
	"context"
	"time"
)

// Stage is one step of a role's state machine: a name for the record, a
// severity class, and the action itself. Run returns operator-facing detail
// for the log and an error when the stage failed.
type Stage struct {
	Name  string
	Fatal bool // a failed fatal stage halts the sequence
	Run   func(ctx context.Context) (detail string, err error)
}

// Printer receives operator-facing progress lines.
// Production: runlog.Logger.
type Printer interface {
	Printf(format string, args ...any)
}

// Execute drives stages in order and returns the finalized run record.
// A fatal stage's failure halts the sequence; any other failure is recorded
// as degraded and the sequence continues. Cancellation marks the stage that
// would have run next as fatal and stops.
func Execute(ctx context.Context, role Role, now func() time.Time, log Printer, stages []Stage) *Run {
	run := NewRun(role, now())

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			run.Append(StageResult{Stage: st.Name, Outcome: OutcomeFatal, Detail: err.Error()})
			log.Printf("%s skipped, run cancelled: %v", st.Name, err)
			break
		}

		started := now()
		detail, err := st.Run(ctx)
		res := StageResult{
			Stage:   st.Name,
			Outcome: OutcomeSuccess,
			Elapsed: now().Sub(started),
			Detail:  detail,
		}
		switch {
		case err != nil && st.Fatal:
			res.Outcome = OutcomeFatal
			res.Detail = err.Error()
			log.Printf("%s failed: %v", st.Name, err)
		case err != nil:
			res.Outcome = OutcomeDegraded
			res.Detail = err.Error()
			log.Printf("%s degraded: %v", st.Name, err)
		case detail != "":
			log.Printf("%s: %s", st.Name, detail)
		default:
			log.Printf("%s done", st.Name)
		}
		run.Append(res)
		if res.Outcome == OutcomeFatal {
			break
		}
	}

	run.Finalize(now())
	return run
}
