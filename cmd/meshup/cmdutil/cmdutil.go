// Package cmdutil holds output and persistence glue shared by the meshup
// subcommands.
package cmdutil

import (
	"context"
	"strconv"
	"time"

	"meshup"
	"meshup/cmd/meshup/ui"
	"meshup/internal/history"
)

// Summary renders a finished run as a stage table followed by a one-line
// verdict. The run log stays the durable record; this is the attended view.
func Summary(run *meshup.Run) string {
	rows := make([][]string, len(run.Stages))
	for i, st := range run.Stages {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			st.Stage,
			outcomeCell(st.Outcome),
			formatElapsed(st.Elapsed),
			st.Detail,
		}
	}

	table := ui.Table([]string{"#", "Stage", "Outcome", "Elapsed", "Detail"}, rows)
	return table + "\n" + StatusLine(run)
}

// StatusLine is the single-line verdict for a finished run.
func StatusLine(run *meshup.Run) string {
	elapsed := formatElapsed(run.FinishedAt.Sub(run.StartedAt))
	switch run.Status {
	case meshup.StatusFatal:
		stage, _ := run.FatalStage()
		return ui.ErrorMsg("%s run failed at %s after %s", run.Role, stage, elapsed)
	case meshup.StatusWarnings:
		return ui.WarnMsg("%s run finished with %d warning(s) in %s", run.Role, run.DegradedCount(), elapsed)
	default:
		return ui.SuccessMsg("%s run finished in %s", run.Role, elapsed)
	}
}

// RecordRun persists a finished run to the history database. History is
// supplemental to the run log, so callers downgrade failures to warnings.
func RecordRun(ctx context.Context, path string, run *meshup.Run) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, run)
}

func outcomeCell(o meshup.Outcome) string {
	switch o {
	case meshup.OutcomeDegraded:
		return ui.Warn("degraded")
	case meshup.OutcomeFatal:
		return ui.ErrorStyle.Render("fatal")
	default:
		return ui.Success("success")
	}
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
