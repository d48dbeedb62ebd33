package fleetstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

// TestMergePriority is seed scenario 1 from spec.md §8.
func TestMergePriority(t *testing.T) {
	s := New()
	s.AddMachine(model.MachineInfo{IP: "10.0.0.5", CollectionMethod: model.MethodPing, Hostname: "unknown"})
	s.AddMachine(model.MachineInfo{IP: "10.0.0.5", CollectionMethod: model.MethodSNMP, Hostname: "router", SNMPActive: true})
	s.AddMachine(model.MachineInfo{IP: "10.0.0.5", CollectionMethod: model.MethodPing, Hostname: ""})

	m, ok := s.Machine("10.0.0.5")
	require.True(t, ok)
	assert.Equal(t, "router", m.Hostname)
	assert.Equal(t, model.MethodSNMP, m.CollectionMethod)
	assert.True(t, m.SNMPActive)
}

func TestMergeNeverDemotesMethod(t *testing.T) {
	s := New()
	s.AddMachine(model.MachineInfo{IP: "1.2.3.4", CollectionMethod: model.MethodSSH})
	s.AddMachine(model.MachineInfo{IP: "1.2.3.4", CollectionMethod: model.MethodLocal})
	m, _ := s.Machine("1.2.3.4")
	assert.Equal(t, model.MethodSSH, m.CollectionMethod)
}

func TestMergeHostnameRejectsIPEcho(t *testing.T) {
	s := New()
	s.AddMachine(model.MachineInfo{IP: "1.2.3.4", Hostname: "box"})
	s.AddMachine(model.MachineInfo{IP: "1.2.3.4", Hostname: "1.2.3.4"})
	m, _ := s.Machine("1.2.3.4")
	assert.Equal(t, "box", m.Hostname)
}

func TestIsOnlineIsLogicalOR(t *testing.T) {
	s := New()
	s.AddMachine(model.MachineInfo{IP: "1.2.3.4", IsOnline: true})
	s.AddMachine(model.MachineInfo{IP: "1.2.3.4", IsOnline: false})
	m, _ := s.Machine("1.2.3.4")
	assert.True(t, m.IsOnline)
}

func TestUpdateSnapshotRewiresMachineIdentity(t *testing.T) {
	s := New()
	s.AddMachine(model.MachineInfo{IP: "1.2.3.4", Hostname: "box", CollectionMethod: model.MethodPing})
	s.UpdateSnapshot(model.Snapshot{
		Machine:   model.MachineInfo{IP: "1.2.3.4", CollectionMethod: model.MethodSNMP, Hostname: "router"},
		Timestamp: time.Now(),
	})

	snap, ok := s.Snapshot("1.2.3.4")
	require.True(t, ok)
	assert.Equal(t, "router", snap.Machine.Hostname)
	assert.Equal(t, model.MethodSNMP, snap.Machine.CollectionMethod)

	m, _ := s.Machine("1.2.3.4")
	assert.Equal(t, snap.Machine, m)
}

func TestUpdateCustomMetricUnknownIPIsNoop(t *testing.T) {
	s := New()
	s.UpdateCustomMetric("9.9.9.9", "1.3.6.1.4.1.8072.1.3.2.4.1.2.5", model.MetricValue{Kind: model.MetricInteger, Int: 42})
	_, ok := s.Snapshot("9.9.9.9")
	assert.False(t, ok)
}

func TestUpdateCustomMetricIsAdditive(t *testing.T) {
	s := New()
	s.UpdateSnapshot(model.Snapshot{Machine: model.MachineInfo{IP: "1.2.3.4"}, Timestamp: time.Now()})
	s.UpdateCustomMetric("1.2.3.4", "oid.1", model.MetricValue{Kind: model.MetricString, Str: "a"})
	s.UpdateCustomMetric("1.2.3.4", "oid.2", model.MetricValue{Kind: model.MetricString, Str: "b"})

	snap, _ := s.Snapshot("1.2.3.4")
	require.Len(t, snap.CustomMetrics, 2)
	assert.Equal(t, "a", snap.CustomMetrics["oid.1"].Str)
	assert.Equal(t, "b", snap.CustomMetrics["oid.2"].Str)
}

func TestAggregatedStats(t *testing.T) {
	s := New()
	s.UpdateSnapshot(model.Snapshot{
		Machine:   model.MachineInfo{IP: "1.1.1.1", IsOnline: true},
		CPU:       model.CPUMetrics{UsagePercent: 50},
		Memory:    model.MemoryMetrics{TotalBytes: gib, UsedBytes: gib / 2},
		Storage:   model.StorageMetrics{TotalBytes: gib, UsedBytes: gib / 4},
		Timestamp: time.Now(),
	})
	s.UpdateSnapshot(model.Snapshot{
		Machine:   model.MachineInfo{IP: "2.2.2.2", IsOnline: false},
		CPU:       model.CPUMetrics{UsagePercent: 30},
		Memory:    model.MemoryMetrics{TotalBytes: gib, UsedBytes: gib / 4},
		Storage:   model.StorageMetrics{TotalBytes: gib, UsedBytes: gib / 4},
		Timestamp: time.Now(),
	})

	stats := s.AggregatedStats()
	assert.Equal(t, 2, stats.MachineCount)
	assert.Equal(t, 1, stats.OnlineCount)
	assert.Equal(t, 1, stats.OfflineCount)
	assert.Equal(t, 40.0, stats.AvgCPUPercent)
	assert.Equal(t, 2.0, stats.TotalMemoryGB)
	assert.Equal(t, 37.5, stats.MemoryUsagePercent)
}

func TestStaleMachines(t *testing.T) {
	s := New()
	s.UpdateSnapshot(model.Snapshot{
		Machine:   model.MachineInfo{IP: "1.1.1.1"},
		Timestamp: time.Now().Add(-10 * time.Minute),
	})
	s.UpdateSnapshot(model.Snapshot{
		Machine:   model.MachineInfo{IP: "2.2.2.2"},
		Timestamp: time.Now(),
	})

	stale := s.StaleMachines(5 * time.Minute)
	require.Len(t, stale, 1)
	assert.Equal(t, "1.1.1.1", stale[0].IP)
}

func TestSortedIPs(t *testing.T) {
	s := New()
	s.AddMachine(model.MachineInfo{IP: "10.0.0.9"})
	s.AddMachine(model.MachineInfo{IP: "10.0.0.2"})
	s.AddMachine(model.MachineInfo{IP: "10.0.0.100"})
	assert.Equal(t, []string{"10.0.0.100", "10.0.0.2", "10.0.0.9"}, s.SortedIPs())
}
