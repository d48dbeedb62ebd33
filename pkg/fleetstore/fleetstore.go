// Package fleetstore is the authoritative concurrent registry of discovered
// machines and their latest hardware snapshots (spec.md §4.3). It is the
// heart of correctness: merge-on-update with a priority ladder that never
// lets a lower-authority collector clobber a higher-authority one.
package fleetstore

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pointlessduffin-21/snmp-agent/internal/log"
	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

// methodPriority is the collection-method promotion ladder from spec §4.3:
// snmp(4) > ssh(3) > local(2) > arp(1) = ping(1) > other(0), matching
// data_manager.py's method_priority (static falls through its .get(..., 0)
// default, so it ranks with the unlisted "other" tier). collection_method
// is promoted, never demoted.
var methodPriority = map[model.CollectionMethod]int{
	model.MethodSNMP:  4,
	model.MethodSSH:   3,
	model.MethodLocal: 2,
	model.MethodARP:   1,
	model.MethodPing:  1,
}

func priorityOf(m model.CollectionMethod) int {
	return methodPriority[m]
}

// Store holds machines and snapshots keyed by IP behind a single writer
// lock. Readers get consistent point-in-time views via copies.
type Store struct {
	mu        sync.RWMutex
	machines  map[string]*model.MachineInfo
	snapshots map[string]*model.Snapshot
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		machines:  make(map[string]*model.MachineInfo),
		snapshots: make(map[string]*model.Snapshot),
	}
}

// AddMachine inserts new as-is if its IP is unseen, else merges it into the
// existing record field-by-field per the spec §4.3 merge rules.
func (s *Store) AddMachine(new model.MachineInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.machines[new.IP]
	if !ok {
		m := new
		s.machines[new.IP] = &m
		return
	}
	mergeMachine(existing, new)
}

// mergeMachine applies the spec §4.3 field-by-field merge rules, mutating
// existing in place.
func mergeMachine(existing *model.MachineInfo, incoming model.MachineInfo) {
	if incoming.Hostname != "" && incoming.Hostname != "unknown" && incoming.Hostname != incoming.IP {
		existing.Hostname = incoming.Hostname
	}
	if incoming.OSType != "" && incoming.OSType != "unknown" {
		existing.OSType = incoming.OSType
	}
	if incoming.Vendor != "" && incoming.Vendor != "Unknown" {
		existing.Vendor = incoming.Vendor
	}
	if incoming.OSVersion != "" {
		existing.OSVersion = incoming.OSVersion
	}
	if incoming.MACAddress != "" {
		existing.MACAddress = incoming.MACAddress
	}
	if incoming.DNSName != "" {
		existing.DNSName = incoming.DNSName
	}
	if incoming.MDNSName != "" {
		existing.MDNSName = incoming.MDNSName
	}
	if incoming.NetBIOSName != "" {
		existing.NetBIOSName = incoming.NetBIOSName
	}
	if incoming.SNMPSysName != "" {
		existing.SNMPSysName = incoming.SNMPSysName
	}
	if incoming.SysDescr != "" {
		existing.SysDescr = incoming.SysDescr
	}
	if incoming.UptimeSeconds > 0 {
		existing.UptimeSeconds = incoming.UptimeSeconds
	}
	if incoming.IsOnline {
		existing.IsOnline = true
	}
	if !incoming.LastSeen.IsZero() {
		existing.LastSeen = incoming.LastSeen
	}
	if incoming.SNMPActive {
		existing.SNMPActive = true
	}

	if priorityOf(incoming.CollectionMethod) > priorityOf(existing.CollectionMethod) {
		existing.CollectionMethod = incoming.CollectionMethod
	}
}

// RemoveMachine deletes a machine and its snapshot.
func (s *Store) RemoveMachine(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.machines, ip)
	delete(s.snapshots, ip)
}

// UpdateSnapshot merges snap.Machine into the store's MachineInfo, rewires
// snap.Machine to the merged value so downstream consumers see the
// authoritative identity, and stores the snapshot.
func (s *Store) UpdateSnapshot(snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateSnapshotLocked(snap)
}

func (s *Store) updateSnapshotLocked(snap model.Snapshot) {
	ip := snap.Machine.IP
	existing, ok := s.machines[ip]
	if !ok {
		m := snap.Machine
		existing = &m
		s.machines[ip] = existing
	} else {
		mergeMachine(existing, snap.Machine)
	}
	snap.Machine = *existing
	s.snapshots[ip] = &snap
}

// UpdateSnapshots bulk-applies UpdateSnapshot under a single lock.
func (s *Store) UpdateSnapshots(snaps []model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		s.updateSnapshotLocked(snap)
	}
}

// UpdateCustomMetric mutates snapshots[ip].CustomMetrics[oid] = value.
// No-op (with a logged warning) if ip is unknown, per spec §7's "Programmer"
// error class.
func (s *Store) UpdateCustomMetric(ip, oid string, value model.MetricValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[ip]
	if !ok {
		log.Warnf("fleetstore: update_custom_metric for unknown machine %s", ip)
		return
	}
	if snap.CustomMetrics == nil {
		snap.CustomMetrics = make(map[string]model.MetricValue)
	}
	snap.CustomMetrics[oid] = value
}

// Machine returns a copy of the machine record for ip, if known.
func (s *Store) Machine(ip string) (model.MachineInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.machines[ip]
	if !ok {
		return model.MachineInfo{}, false
	}
	return *m, true
}

// Snapshot returns a copy of the snapshot for ip, if known.
func (s *Store) Snapshot(ip string) (model.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[ip]
	if !ok {
		return model.Snapshot{}, false
	}
	return *snap, true
}

// Machines returns a copy of every known machine.
func (s *Store) Machines() []model.MachineInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MachineInfo, 0, len(s.machines))
	for _, m := range s.machines {
		out = append(out, *m)
	}
	return out
}

// Snapshots returns a copy of every known snapshot, keyed by IP.
func (s *Store) Snapshots() map[string]model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Snapshot, len(s.snapshots))
	for ip, snap := range s.snapshots {
		out[ip] = *snap
	}
	return out
}

// MachinesByStatus filters machines by online status.
func (s *Store) MachinesByStatus(online bool) []model.MachineInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.MachineInfo
	for _, m := range s.machines {
		if m.IsOnline == online {
			out = append(out, *m)
		}
	}
	return out
}

// StaleMachines returns machines whose snapshot timestamp is older than
// maxAge, as of now.
func (s *Store) StaleMachines(maxAge time.Duration) []model.MachineInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().Add(-maxAge)
	var out []model.MachineInfo
	for _, snap := range s.snapshots {
		if snap.Timestamp.Before(cutoff) {
			out = append(out, snap.Machine)
		}
	}
	return out
}

// AggregatedStats summarizes machine count, online/offline counts, mean CPU
// usage, and memory/storage usage in GB and percent, per spec §4.3.
type AggregatedStats struct {
	MachineCount          int
	OnlineCount           int
	OfflineCount          int
	AvgCPUPercent         float64
	TotalMemoryGB         float64
	UsedMemoryGB          float64
	MemoryUsagePercent    float64
	TotalStorageGB        float64
	UsedStorageGB         float64
	StorageUsagePercent   float64
}

const gib = 1024 * 1024 * 1024

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AggregatedStats computes fleet-wide statistics across all snapshots.
func (s *Store) AggregatedStats() AggregatedStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return AggregatedStats{}
	}

	var online int
	var totalCPU, totalMem, usedMem, totalStorage, usedStorage float64
	for _, snap := range s.snapshots {
		if snap.Machine.IsOnline {
			online++
		}
		totalCPU += snap.CPU.UsagePercent
		totalMem += float64(snap.Memory.TotalBytes)
		usedMem += float64(snap.Memory.UsedBytes)
		totalStorage += float64(snap.Storage.TotalBytes)
		usedStorage += float64(snap.Storage.UsedBytes)
	}

	n := len(s.snapshots)
	stats := AggregatedStats{
		MachineCount:  n,
		OnlineCount:   online,
		OfflineCount:  n - online,
		AvgCPUPercent: round2(totalCPU / float64(n)),
		TotalMemoryGB: round2(totalMem / gib),
		UsedMemoryGB:  round2(usedMem / gib),
		TotalStorageGB: round2(totalStorage / gib),
		UsedStorageGB:  round2(usedStorage / gib),
	}
	if totalMem > 0 {
		stats.MemoryUsagePercent = round2(usedMem / totalMem * 100)
	}
	if totalStorage > 0 {
		stats.StorageUsagePercent = round2(usedStorage / totalStorage * 100)
	}
	return stats
}

// Len returns the number of known machines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.machines)
}

// SortedIPs returns every known machine IP in ascending string order. The mib
// projection does not call it; it sorts snapshot IPs itself.
func (s *Store) SortedIPs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.machines))
	for ip := range s.machines {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out
}

// Clear removes all stored data.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines = make(map[string]*model.MachineInfo)
	s.snapshots = make(map[string]*model.Snapshot)
}

// String implements fmt.Stringer for debug logging.
func (s *Store) String() string {
	return fmt.Sprintf("fleetstore{machines=%d snapshots=%d}", s.Len(), len(s.snapshots))
}
