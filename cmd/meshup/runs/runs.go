package runs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"meshup"
	"meshup/cmd/meshup/cmdutil"
	"meshup/cmd/meshup/ui"
	"meshup/config"
	"meshup/internal/history"

	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded bootstrap and convergence runs",
	}
	cmd.PersistentFlags().StringVar(&db, "db", config.DefaultHistoryDB, "History database path")

	cmd.AddCommand(listCmd(&db))
	cmd.AddCommand(showCmd(&db))
	return cmd
}

func listCmd(db *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(*db)
			if err != nil {
				return err
			}
			defer store.Close()

			recent, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recent) == 0 {
				fmt.Println(ui.Muted("no runs recorded"))
				return nil
			}

			rows := make([][]string, len(recent))
			for i, r := range recent {
				rows[i] = []string{
					strconv.FormatInt(r.ID, 10),
					string(r.Role),
					statusCell(r.Status),
					r.StartedAt.Format(time.DateTime),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
				}
			}
			fmt.Println(ui.Table(
				[]string{"ID", "Role", "Status", "Started (UTC)", "Elapsed"},
				rows,
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func showCmd(db *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("run id must be a number, got %q", args[0])
			}

			store, err := history.Open(*db)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("run %d not found", id)
				}
				return err
			}

			fmt.Print(ui.KeyValues("",
				ui.KV("run", strconv.FormatInt(run.ID, 10)),
				ui.KV("role", string(run.Role)),
				ui.KV("started", run.StartedAt.Format(time.DateTime)+" UTC"),
			))
			fmt.Println(cmdutil.Summary(run))
			return nil
		},
	}
}

func statusCell(s meshup.Status) string {
	switch s {
	case meshup.StatusFatal:
		return ui.ErrorStyle.Render("fatal")
	case meshup.StatusWarnings:
		return ui.Warn("warnings")
	default:
		return ui.Success("success")
	}
}
