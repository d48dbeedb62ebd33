package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pointlessduffin-21/snmp-agent/internal/log"
	"github.com/pointlessduffin-21/snmp-agent/pkg/collector/localcollect"
	"github.com/pointlessduffin-21/snmp-agent/pkg/config"
	"github.com/pointlessduffin-21/snmp-agent/pkg/fleetstore"
	"github.com/pointlessduffin-21/snmp-agent/pkg/scheduler"
	"github.com/pointlessduffin-21/snmp-agent/pkg/snmpagent"
)

func makeRunCommand(params *GlobalParams) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the aggregator daemon until a shutdown signal arrives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(params)
		},
	}
}

// runDaemon wires the fleet store, SNMP agent, and scheduler and blocks
// until SIGINT/SIGTERM, then waits for every scheduler loop and the SNMP
// listener to terminate before returning (spec §4.7 "each task is cancelled
// and must terminate before transports are closed").
func runDaemon(params *GlobalParams) error {
	if err := log.Configure(params.LogLevel); err != nil {
		return err
	}
	defer log.Flush()

	cfg, err := loadConfig(params)
	if err != nil {
		return err
	}
	if params.SNMPPort != 0 {
		cfg.SNMP.Port = params.SNMPPort
	}

	store := fleetstore.New()
	localIP := localcollect.New().LocalIP()

	agent := snmpagent.New(cfg.SNMP, store)
	sched := scheduler.New(cfg, store, localIP)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)

	agentErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		agentErr <- agent.ListenAndServe(ctx)
	}()
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	<-ctx.Done()
	log.Infof("run: shutdown signal received, waiting for loops to terminate")
	wg.Wait()

	select {
	case err := <-agentErr:
		return err
	default:
		return nil
	}
}

// loadConfig binds an empty viper instance to --config when set and decodes
// it via config.Load; the core itself never opens the file, only an
// already-initialized viper (spec §1, SPEC_FULL.md ambient stack).
func loadConfig(params *GlobalParams) (*config.Config, error) {
	v := viper.New()
	if params.ConfigPath == "" {
		return config.Load(v)
	}
	v.SetConfigFile(params.ConfigPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("run: reading --config %s: %w", params.ConfigPath, err)
	}
	return config.Load(v)
}
