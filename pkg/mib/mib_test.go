package mib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointlessduffin-21/snmp-agent/pkg/fleetstore"
	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

func sampleSnapshot(ip string, usage float64) model.Snapshot {
	return model.Snapshot{
		Machine: model.MachineInfo{
			IP:       ip,
			Hostname: "host-" + ip,
			OSType:   "Linux",
			IsOnline: true,
			LastSeen: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		CPU: model.CPUMetrics{UsagePercent: usage, PhysicalCores: 4, LogicalThreads: 8},
		Memory: model.MemoryMetrics{
			TotalBytes: 8 * 1024 * 1024 * 1024,
			UsedBytes:  4 * 1024 * 1024 * 1024,
		},
		Storage: model.StorageMetrics{Devices: []model.StorageDevice{
			{Device: "/dev/sda1", MountPoint: "/", FSType: "ext4", TotalBytes: 100, UsedBytes: 50, FreeBytes: 50, UsagePercent: 50},
		}},
		Network: model.NetworkMetrics{Interfaces: []model.NetworkInterface{
			{Name: "eth0", IPv4: "10.0.0.5", BytesSent: 1000, BytesRecv: 2000},
		}},
		Timestamp:     time.Now(),
		CustomMetrics: map[string]model.MetricValue{},
	}
}

func TestBuildAssignsIndicesBySortedIP(t *testing.T) {
	store := fleetstore.New()
	store.UpdateSnapshot(sampleSnapshot("10.0.0.9", 10))
	store.UpdateSnapshot(sampleSnapshot("10.0.0.2", 20))

	p := Build(store, "1.3.6.1.4.1.99999.1", "1.0.0", time.Now().Add(-time.Hour))

	// 10.0.0.2 sorts before 10.0.0.9 lexicographically, so it gets index 1.
	v, ok := p.Get("1.3.6.1.4.1.99999.1.2.1.2.1")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2", v.Str)

	v, ok = p.Get("1.3.6.1.4.1.99999.1.2.1.2.2")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.9", v.Str)
}

func TestBuildScalarsAndMemoryCounters(t *testing.T) {
	store := fleetstore.New()
	store.UpdateSnapshot(sampleSnapshot("10.0.0.1", 50))

	p := Build(store, "1.3.6.1.4.1.99999.1", "1.0.0", time.Now().Add(-time.Minute))

	v, ok := p.Get("1.3.6.1.4.1.99999.1.1.3.0")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int)

	v, ok = p.Get("1.3.6.1.4.1.99999.1.4.1.2.1")
	require.True(t, ok)
	assert.Equal(t, KindCounter64, v.Kind)
	assert.Equal(t, uint64(8*1024*1024*1024), v.Counter)
}

func TestProjectionNextWalksInNumericOrder(t *testing.T) {
	store := fleetstore.New()
	store.UpdateSnapshot(sampleSnapshot("10.0.0.1", 50))

	p := Build(store, "1.3.6.1.4.1.99999.1", "1.0.0", time.Now())

	oid, _, ok := p.Next("1.3.6.1.4.1.99999.1.1.1.0")
	require.True(t, ok)
	assert.Equal(t, "1.3.6.1.4.1.99999.1.1.2.0", oid)

	_, _, ok = p.Next(p.sorted[len(p.sorted)-1])
	assert.False(t, ok)
}

func TestProjectionGetMissingOID(t *testing.T) {
	store := fleetstore.New()
	p := Build(store, "1.3.6.1.4.1.99999.1", "1.0.0", time.Now())
	_, ok := p.Get("9.9.9.9")
	assert.False(t, ok)
}

func TestCustomMetricsAppearAtLiteralOID(t *testing.T) {
	store := fleetstore.New()
	snap := sampleSnapshot("10.0.0.1", 50)
	snap.CustomMetrics["1.3.6.1.4.1.99999.99.1.0"] = model.MetricValue{Kind: model.MetricInteger, Int: 42}
	store.UpdateSnapshot(snap)

	p := Build(store, "1.3.6.1.4.1.99999.1", "1.0.0", time.Now())
	v, ok := p.Get("1.3.6.1.4.1.99999.99.1.0")
	require.True(t, ok)
	assert.Equal(t, int64(42), v.Int)
}
