// Package command builds the snmp-agent root cobra command, mirroring
// cmd/agent/command's root-command + subcommand convention: a persistent
// flag set shared by every subcommand, a "run" subcommand that starts the
// daemon, and a "version" subcommand.
package command

import (
	"github.com/spf13/cobra"
)

// GlobalParams holds flags registered on the root command and read by its
// subcommands.
type GlobalParams struct {
	ConfigPath string
	SNMPPort   int
	LogLevel   string
}

// MakeCommand builds the root command and its subcommands.
func MakeCommand() *cobra.Command {
	params := &GlobalParams{}

	root := &cobra.Command{
		Use:           "snmp-agent",
		Short:         "Hardware-metrics aggregator and re-publisher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&params.ConfigPath, "config", "",
		"path to a YAML/JSON/TOML config file decoded via viper (runs on defaults plus flag overrides if unset)")
	root.PersistentFlags().IntVar(&params.SNMPPort, "snmp-port", 0, "override the SNMP agent's UDP listen port")
	root.PersistentFlags().StringVar(&params.LogLevel, "log-level", "info", "log level: trace, debug, info, warn, error, critical")

	root.AddCommand(makeRunCommand(params))
	root.AddCommand(makeVersionCommand())
	return root
}
