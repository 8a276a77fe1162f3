package gatewaycmd

import "github.com/spf13/cobra"

func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Operate this host as the mesh gateway",
	}
	cmd.AddCommand(applyCmd())
	return cmd
}
