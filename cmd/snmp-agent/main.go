package main

import (
	"fmt"
	"os"

	"github.com/pointlessduffin-21/snmp-agent/cmd/snmp-agent/command"
)

func main() {
	if err := command.MakeCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
