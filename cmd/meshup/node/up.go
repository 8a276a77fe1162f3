package node

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"meshup"
	"meshup/bootstrap"
	"meshup/cmd/meshup/cmdutil"
	"meshup/config"
	"meshup/internal/runlog"

	"github.com/spf13/cobra"
)

func upCmd() *cobra.Command {
	var (
		configPath string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Run the bootstrap sequence onto the mesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := config.LoadNode(configPath)
			if err != nil {
				return err
			}

			mirror := io.Writer(os.Stdout)
			if quiet {
				mirror = io.Discard
			}
			log, err := runlog.Open(cfg.RunLog, mirror)
			if err != nil {
				return err
			}
			defer log.Close()

			run := bootstrap.New(cfg, bootstrap.WithRunLog(log)).Run(ctx)

			// Record against the command context, not the signal context:
			// an interrupted run still belongs in the history.
			if err := cmdutil.RecordRun(cmd.Context(), cfg.HistoryDB, run); err != nil {
				slog.Warn("History record failed.", "error", err)
			}

			if !quiet {
				fmt.Println(cmdutil.Summary(run))
			}
			if run.Status == meshup.StatusFatal {
				stage, _ := run.FatalStage()
				return fmt.Errorf("bootstrap failed at %s", stage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultNodePath, "Node configuration file")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Write only the run log, no mirroring or summary")

	return cmd
}
