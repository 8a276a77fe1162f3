package units

import (
	"fmt"
	"path/filepath"

	"meshup/activation"
	"meshup/cmd/meshup/ui"

	"github.com/spf13/cobra"
)

const defaultUnitDir = "/etc/systemd/system"

func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Render the systemd units that order mesh services",
	}
	cmd.AddCommand(renderCmd())
	return cmd
}

func renderCmd() *cobra.Command {
	var (
		dir string
		bin string
	)

	cmd := &cobra.Command{
		Use:       "render {node|gateway}",
		Short:     "Write the unit files for one role",
		Long:      "Write the unit files for one role. Enabling them and reloading the supervisor stays with the operator.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"node", "gateway"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var graph activation.Graph
			switch args[0] {
			case "node":
				graph = activation.NodeGraph(bin)
			case "gateway":
				graph = activation.GatewayGraph(bin)
			}

			wrote, err := graph.Install(dir)
			if err != nil {
				return fmt.Errorf("install %s units: %w", args[0], err)
			}

			if len(wrote) == 0 {
				fmt.Println(ui.InfoMsg("unit files in %s already current", dir))
				return nil
			}
			fmt.Println(ui.SuccessMsg("wrote %d unit file(s)", len(wrote)))
			for _, name := range wrote {
				fmt.Println(ui.Muted("  " + filepath.Join(dir, name)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", defaultUnitDir, "Directory to write unit files into")
	cmd.Flags().StringVar(&bin, "bin", activation.DefaultBinPath, "meshup binary path used in ExecStart lines")

	return cmd
}
