// Package scheduler drives the three independent periodic loops described in
// spec.md §4.7/§5: discovery, per-host collection, and MQTT republishing.
// Each loop owns its own ticker and is individually cancellable via the
// shared context, generalizing the teacher's checks/common_test.go
// Runner(pending, results chan) goroutine-dispatch idiom to a fixed,
// time-driven task set instead of a work queue.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pointlessduffin-21/snmp-agent/internal/log"
	"github.com/pointlessduffin-21/snmp-agent/pkg/collector/localcollect"
	"github.com/pointlessduffin-21/snmp-agent/pkg/collector/snmpcollect"
	"github.com/pointlessduffin-21/snmp-agent/pkg/collector/sshcollect"
	"github.com/pointlessduffin-21/snmp-agent/pkg/config"
	"github.com/pointlessduffin-21/snmp-agent/pkg/discovery"
	"github.com/pointlessduffin-21/snmp-agent/pkg/fleetstore"
	"github.com/pointlessduffin-21/snmp-agent/pkg/mqttpub"
)

// Scheduler owns the fleet store and the collectors/transports the three
// loops drive; nothing here is reachable via package-level globals (spec §9
// "Global singletons → explicit context").
type Scheduler struct {
	cfg   *config.Config
	store *fleetstore.Store

	scanner *discovery.Scanner
	local   *localcollect.Collector
	snmp    *snmpcollect.Collector
	ssh     *sshcollect.Collector
	mqtt    *mqttpub.Publisher

	localIP string
}

// New wires a Scheduler from configuration. localIP identifies the host
// running the process, so the collection loop can route it to the local
// collector per spec §4.4 step 1.
func New(cfg *config.Config, store *fleetstore.Store, localIP string) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		store:   store,
		scanner: discovery.New(cfg.Discovery),
		local:   localcollect.New(),
		// The SNMP collector also drives the MQTT republisher's custom-OID
		// polling (spec §4.6), so it is always constructed, independent of
		// whether the collection loop itself uses SNMP as a transport.
		snmp:    snmpcollect.New(cfg.Collection.SNMPCommunity, uint16(cfg.Collection.SNMPPort), cfg.Collection.Timeout(), 1),
		localIP: localIP,
	}
	if cfg.Collection.CollectRemoteSSH {
		c := sshcollect.New(cfg.Collection.SSHUsername, cfg.Collection.SSHPassword)
		c.KeyPath = cfg.Collection.SSHKeyPath
		c.Timeout = cfg.Collection.Timeout()
		s.ssh = c
	}
	if cfg.MQTT.Enabled {
		s.mqtt = mqttpub.New(cfg.MQTT, store, s.snmp)
	}
	return s
}

// SetDeviceConfig exposes the MQTT republisher's per-device registry so a
// host process (e.g. a REST layer) can configure it; a no-op if MQTT is
// disabled.
func (s *Scheduler) SetDeviceConfig(ip string, dc mqttpub.DeviceConfig) {
	if s.mqtt == nil {
		return
	}
	s.mqtt.SetDeviceConfig(ip, dc)
}

// Run starts all three loops and blocks until ctx is cancelled and every
// loop has terminated (spec §4.7 "each task is cancelled and must terminate
// before transports are closed").
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	if s.cfg.Discovery.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.discoveryLoop(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectionLoop(ctx)
	}()

	if s.mqtt != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.mqtt.Run(ctx)
		}()
	}

	wg.Wait()
	log.Infof("scheduler: all loops terminated")
}

func (s *Scheduler) discoveryLoop(ctx context.Context) {
	interval := s.cfg.Discovery.ScanInterval()
	s.runDiscoveryCycle(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDiscoveryCycle(ctx)
		}
	}
}

func (s *Scheduler) runDiscoveryCycle(ctx context.Context) {
	machines := s.scanner.Scan(ctx)
	for _, m := range machines {
		if ctx.Err() != nil {
			return
		}
		s.store.AddMachine(m)
	}
	log.Infof("scheduler: discovery cycle found %d machines", len(machines))
}

func (s *Scheduler) collectionLoop(ctx context.Context) {
	interval := s.cfg.Collection.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCollectionCycle(ctx)
		}
	}
}

// runCollectionCycle iterates the current machine list once, sequentially,
// so a single in-flight attempt per host per cycle holds without an
// explicit per-IP lock (spec §5 "Bounded parallelism").
func (s *Scheduler) runCollectionCycle(ctx context.Context) {
	for _, m := range s.store.Machines() {
		if ctx.Err() != nil {
			return
		}
		s.collectHost(m.IP)
	}
}

// collectHost follows the orchestration order from spec §4.4: local, then
// remote SNMP, then remote SSH; the store is left untouched on a total
// failure so the next cycle retries.
func (s *Scheduler) collectHost(ip string) {
	if s.cfg.Collection.CollectLocal && ip == s.localIP {
		snap := s.local.CollectAll()
		s.store.UpdateSnapshot(snap)
		return
	}

	if s.cfg.Collection.CollectRemoteSNMP {
		if snap, ok := s.snmp.CollectAll(ip); ok {
			s.store.UpdateSnapshot(snap)
			return
		}
	}

	if s.ssh != nil {
		if snap, ok := s.ssh.CollectAll(ip); ok {
			s.store.UpdateSnapshot(snap)
			return
		}
	}

	log.Debugf("scheduler: collection failed for %s this cycle, will retry", ip)
}
