package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachineInfoDisplayName(t *testing.T) {
	cases := []struct {
		name string
		m    MachineInfo
		want string
	}{
		{"falls back to ip", MachineInfo{IP: "10.0.0.5"}, "10.0.0.5"},
		{"hostname wins over ip", MachineInfo{IP: "10.0.0.5", Hostname: "box"}, "box"},
		{"dns beats hostname", MachineInfo{IP: "10.0.0.5", Hostname: "box", DNSName: "box.lan"}, "box.lan"},
		{"netbios beats dns", MachineInfo{IP: "10.0.0.5", DNSName: "box.lan", NetBIOSName: "BOX"}, "BOX"},
		{"mdns beats netbios", MachineInfo{IP: "10.0.0.5", NetBIOSName: "BOX", MDNSName: "box"}, "box"},
		{"snmp sysname wins all", MachineInfo{IP: "10.0.0.5", MDNSName: "box", SNMPSysName: "router1"}, "router1"},
		{"unknown hostname treated as empty", MachineInfo{IP: "10.0.0.5", Hostname: "unknown"}, "10.0.0.5"},
		{"unknown hostname skipped in favor of dns", MachineInfo{IP: "10.0.0.5", Hostname: "unknown", DNSName: "box.lan"}, "box.lan"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.m.DisplayName())
		})
	}
}

func TestCPUMetricsIsHealthy(t *testing.T) {
	hot := 91.0
	cool := 50.0
	assert.False(t, CPUMetrics{TempC: &hot, UsagePercent: 10}.IsHealthy())
	assert.True(t, CPUMetrics{TempC: &cool, UsagePercent: 10}.IsHealthy())
	assert.False(t, CPUMetrics{UsagePercent: 96}.IsHealthy())
	assert.True(t, CPUMetrics{UsagePercent: 95}.IsHealthy())
}
