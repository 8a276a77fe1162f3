package main

import (
	"fmt"
	"os"

	gatewaycmd "meshup/cmd/meshup/gateway"
	"meshup/cmd/meshup/node"
	"meshup/cmd/meshup/runs"
	"meshup/cmd/meshup/ui"
	"meshup/cmd/meshup/units"
	"meshup/internal/buildinfo"
	"meshup/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var debug bool
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "meshup",
		Short:         "Ad-hoc mesh node bring-up and gateway convergence",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.ConfigureInteraction(false)

			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(node.Cmd())
	root.AddCommand(gatewaycmd.Cmd())
	root.AddCommand(units.Cmd())
	root.AddCommand(runs.Cmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
