// Package model defines the typed records shared by discovery, collectors,
// the fleet store, the SNMP agent, and the MQTT republisher.
package model

import "time"

// CollectionMethod identifies which subsystem produced a MachineInfo or
// Snapshot. Order matters: fleetstore.Store promotes a machine's method
// according to methodPriority, never demotes it.
type CollectionMethod string

const (
	MethodSNMP    CollectionMethod = "snmp"
	MethodSSH     CollectionMethod = "ssh"
	MethodLocal   CollectionMethod = "local"
	MethodPing    CollectionMethod = "ping"
	MethodARP     CollectionMethod = "arp"
	MethodStatic  CollectionMethod = "static"
	MethodUnknown CollectionMethod = "unknown"
)

// MachineInfo is the identity and reachability record for one host, keyed by
// IP for the lifetime of the fleet store.
type MachineInfo struct {
	IP               string
	Hostname         string
	OSType           string
	OSVersion        string
	UptimeSeconds    int64
	LastSeen         time.Time
	IsOnline         bool
	CollectionMethod CollectionMethod
	MACAddress       string
	Vendor           string
	SNMPActive       bool

	DNSName      string
	MDNSName     string
	NetBIOSName  string
	SNMPSysName  string
	SysDescr     string
}

// DisplayName returns the first non-empty, non-"unknown" name slot in
// priority order: snmpSysName, mdnsName, netbiosName, dnsName, hostname, ip.
// "unknown" is treated the same as empty, matching models.py's display_name.
func (m MachineInfo) DisplayName() string {
	for _, candidate := range []string{m.SNMPSysName, m.MDNSName, m.NetBIOSName, m.DNSName, m.Hostname} {
		if candidate != "" && candidate != "unknown" {
			return candidate
		}
	}
	return m.IP
}

// CPUMetrics describes CPU utilization, topology, and thermal state.
type CPUMetrics struct {
	UsagePercent   float64
	PhysicalCores  int
	LogicalThreads int
	CurrentMHz     float64
	MinMHz         float64
	MaxMHz         float64
	TempC          *float64
	Load1          float64
	Load5          float64
	Load15         float64
	Model          string
	Arch           string
}

// IsHealthy reports false when the CPU is thermally or usage-wise over
// threshold. Restored from the original Python model (models.py); not part
// of the MIB projection, available to MQTT's cpu payload as an extra field.
func (c CPUMetrics) IsHealthy() bool {
	if c.TempC != nil && *c.TempC > 90 {
		return false
	}
	return c.UsagePercent <= 95
}

// MemoryMetrics describes RAM and swap usage in bytes.
type MemoryMetrics struct {
	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64
	CachedBytes    uint64
	BuffersBytes   uint64
	UsagePercent   float64
	SwapTotalBytes uint64
	SwapUsedBytes  uint64
	SwapFreeBytes  uint64
	SwapPercent    float64
}

// StorageDevice is one mounted filesystem or SNMP-walked storage row.
type StorageDevice struct {
	Device       string
	MountPoint   string
	FSType       string
	TotalBytes   uint64
	UsedBytes    uint64
	FreeBytes    uint64
	UsagePercent float64
	IsRemovable  bool
	IsSSD        bool
	Model        string
	Serial       string
}

// StorageMetrics aggregates the host's storage devices.
type StorageMetrics struct {
	Devices      []StorageDevice
	TotalBytes   uint64
	UsedBytes    uint64
	FreeBytes    uint64
	UsagePercent float64
}

// PowerSource identifies where power metrics originated.
type PowerSource string

const (
	PowerSourceBattery PowerSource = "battery"
	PowerSourceAC      PowerSource = "ac"
	PowerSourceUPS     PowerSource = "ups"
	PowerSourceUnknown PowerSource = "unknown"
)

// PowerMetrics describes optional power-related readings.
type PowerMetrics struct {
	CPUWatts    *float64
	BatteryPct  *float64
	PluggedIn   *bool
	Source      PowerSource
}

// NetworkInterface is one NIC's identity, addresses, and traffic counters.
type NetworkInterface struct {
	Name        string
	MACAddress  string
	IPv4        string
	IPv6        string
	IsUp        bool
	SpeedMbps   int64
	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64
	ErrorsIn    uint64
	ErrorsOut   uint64
}

// NetworkMetrics aggregates a host's network interfaces.
type NetworkMetrics struct {
	Interfaces []NetworkInterface
}

// MetricValue is a tagged variant for heterogeneous custom metrics, replacing
// the source's isinstance-based dynamic typing. The SNMP projector switches on Kind to choose Integer32 / Counter64 /
// OctetString.
type MetricKind int

const (
	MetricInteger MetricKind = iota
	MetricCounter64
	MetricString
)

type MetricValue struct {
	Kind    MetricKind
	Int     int64
	Counter uint64
	Str     string
}

// Snapshot is the latest metric bundle for one host at one point in time.
type Snapshot struct {
	Machine             MachineInfo
	CPU                  CPUMetrics
	Memory               MemoryMetrics
	Storage              StorageMetrics
	Power                PowerMetrics
	Network              NetworkMetrics
	Timestamp            time.Time
	CollectionDurationMS int64
	Errors               []string
	CustomMetrics        map[string]MetricValue
}

// AddError appends a subsystem failure without aborting collection of the
// remaining metrics, per spec §4.4 ("never raises to the caller").
func (s *Snapshot) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}
