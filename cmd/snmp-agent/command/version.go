package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags; it defaults to "dev"
// for local builds.
var version = "dev"

func makeVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the snmp-agent version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "snmp-agent", version)
			return nil
		},
	}
}
