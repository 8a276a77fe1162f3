package gatewaycmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"meshup"
	"meshup/cmd/meshup/cmdutil"
	"meshup/config"
	"meshup/gateway"
	"meshup/internal/runlog"

	"github.com/spf13/cobra"
)

func applyCmd() *cobra.Command {
	var (
		configPath string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge gateway networking, firewall, and server configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			loaded, err := config.LoadGateway(configPath)
			if err != nil {
				return err
			}
			cfg, err := gateway.Derive(loaded)
			if err != nil {
				return err
			}

			mirror := io.Writer(os.Stdout)
			if quiet {
				mirror = io.Discard
			}
			log, err := runlog.Open(loaded.RunLog, mirror)
			if err != nil {
				return err
			}
			defer log.Close()

			applier, err := gateway.New(cfg, gateway.WithRunLog(log))
			if err != nil {
				return err
			}
			run := applier.Apply(ctx)

			if err := cmdutil.RecordRun(cmd.Context(), loaded.HistoryDB, run); err != nil {
				slog.Warn("History record failed.", "error", err)
			}

			if !quiet {
				fmt.Println(cmdutil.Summary(run))
			}
			// Best-effort steps leave the run at success-with-warnings,
			// which still counts as converged for the activation graph.
			if run.Status == meshup.StatusFatal {
				stage, _ := run.FatalStage()
				return fmt.Errorf("convergence failed at %s", stage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultGatewayPath, "Gateway configuration file")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Write only the run log, no mirroring or summary")

	return cmd
}
