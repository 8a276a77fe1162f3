package node

import "github.com/spf13/cobra"

func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Operate this host as a mesh node",
	}
	cmd.AddCommand(upCmd())
	return cmd
}
