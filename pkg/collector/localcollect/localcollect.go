// Package localcollect collects CPU, memory, storage, power, and network
// metrics from the host the process itself runs on, using gopsutil/v3 as a
// cross-platform probe layer (spec.md §4.4 "Local collector").
package localcollect

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/sensors"

	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

// commonTempSensors lists sensor keys probed in order before falling back to
// the first available reading, per spec §4.4.
var commonTempSensors = []string{"coretemp", "cpu_thermal", "k10temp", "cpu-thermal"}

// Collector gathers metrics from the local host.
type Collector struct {
	hostname string
	localIP  string
}

// New constructs a Collector, resolving the local hostname and primary IP
// once at startup.
func New() *Collector {
	hostname, _ := os.Hostname()
	return &Collector{hostname: hostname, localIP: primaryIP()}
}

// primaryIP finds the outbound IP by dialing a well-known address without
// sending any data, mirroring the original's UDP-connect trick.
func primaryIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}

// LocalIP returns the collector's primary outbound address, used by the
// collection orchestrator to decide whether a host IP is "this machine".
func (c *Collector) LocalIP() string {
	return c.localIP
}

// MachineInfo reports basic host identity.
func (c *Collector) MachineInfo() model.MachineInfo {
	uptime := int64(0)
	if info, err := host.Info(); err == nil {
		uptime = int64(info.Uptime)
	}
	return model.MachineInfo{
		IP:               c.localIP,
		Hostname:         c.hostname,
		OSType:           strings.Title(runtime.GOOS),
		OSVersion:        osVersion(),
		UptimeSeconds:    uptime,
		LastSeen:         time.Now(),
		IsOnline:         true,
		CollectionMethod: model.MethodLocal,
	}
}

func osVersion() string {
	info, err := host.Info()
	if err != nil {
		return ""
	}
	return info.PlatformVersion
}

// CPUMetrics reports usage, topology, frequency, temperature, and load
// averages (0 on platforms without getloadavg, i.e. Windows).
func (c *Collector) CPUMetrics() model.CPUMetrics {
	usage := 0.0
	if pcts, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pcts) > 0 {
		usage = pcts[0]
	}

	physical, _ := cpu.Counts(false)
	logical, _ := cpu.Counts(true)

	var curMHz, minMHz, maxMHz float64
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		curMHz = infos[0].Mhz
	}

	var load1, load5, load15 float64
	if runtime.GOOS != "windows" {
		if avg, err := load.Avg(); err == nil {
			load1, load5, load15 = avg.Load1, avg.Load5, avg.Load15
		}
	}

	temp := cpuTemperature()
	model_ := cpuModel()

	return model.CPUMetrics{
		UsagePercent:   usage,
		PhysicalCores:  physical,
		LogicalThreads: logical,
		CurrentMHz:     curMHz,
		MinMHz:         minMHz,
		MaxMHz:         maxMHz,
		TempC:          temp,
		Load1:          load1,
		Load5:          load5,
		Load15:         load15,
		Model:          model_,
		Arch:           runtime.GOARCH,
	}
}

// cpuTemperature probes common sensor names in order before falling back to
// the first available reading; returns nil if no sensor is present.
func cpuTemperature() *float64 {
	temps, err := sensors.SensorsTemperatures()
	if err != nil || len(temps) == 0 {
		return nil
	}
	byKey := make(map[string]float64)
	for _, t := range temps {
		if _, exists := byKey[t.SensorKey]; !exists {
			byKey[t.SensorKey] = t.Temperature
		}
	}
	for _, name := range commonTempSensors {
		for key, v := range byKey {
			if strings.Contains(strings.ToLower(key), name) {
				val := v
				return &val
			}
		}
	}
	v := temps[0].Temperature
	return &v
}

// cpuModel reads /proc/cpuinfo's "model name" field on Linux, falls back to
// cpu.Info() elsewhere (gopsutil covers the sysctl/WMI cases the original
// reached for via subprocess).
func cpuModel() string {
	if runtime.GOOS == "linux" {
		data, err := os.ReadFile("/proc/cpuinfo")
		if err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if strings.HasPrefix(line, "model name") {
					if idx := strings.Index(line, ":"); idx >= 0 {
						return strings.TrimSpace(line[idx+1:])
					}
				}
			}
		}
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		return infos[0].ModelName
	}
	return ""
}

// MemoryMetrics reports RAM and swap usage.
func (c *Collector) MemoryMetrics() model.MemoryMetrics {
	var m model.MemoryMetrics
	if vm, err := mem.VirtualMemory(); err == nil {
		m.TotalBytes = vm.Total
		m.UsedBytes = vm.Used
		m.AvailableBytes = vm.Available
		m.CachedBytes = vm.Cached
		m.BuffersBytes = vm.Buffers
		m.UsagePercent = vm.UsedPercent
	}
	if sm, err := mem.SwapMemory(); err == nil {
		m.SwapTotalBytes = sm.Total
		m.SwapUsedBytes = sm.Used
		m.SwapFreeBytes = sm.Free
		m.SwapPercent = sm.UsedPercent
	}
	return m
}

// StorageMetrics reports every mounted, readable filesystem. Partitions
// whose usage cannot be read are skipped, per spec §4.4.
func (c *Collector) StorageMetrics() model.StorageMetrics {
	var sm model.StorageMetrics
	partitions, err := disk.Partitions(false)
	if err != nil {
		return sm
	}
	for _, p := range partitions {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		dev := model.StorageDevice{
			Device:       p.Device,
			MountPoint:   p.Mountpoint,
			FSType:       p.Fstype,
			TotalBytes:   usage.Total,
			UsedBytes:    usage.Used,
			FreeBytes:    usage.Free,
			UsagePercent: usage.UsedPercent,
			IsRemovable:  strings.Contains(strings.ToLower(strings.Join(p.Opts, ",")), "removable"),
			IsSSD:        isSSD(p.Device),
		}
		sm.Devices = append(sm.Devices, dev)
		sm.TotalBytes += usage.Total
		sm.UsedBytes += usage.Used
		sm.FreeBytes += usage.Free
	}
	if len(sm.Devices) > 0 {
		var sumPct float64
		for _, d := range sm.Devices {
			sumPct += d.UsagePercent
		}
		sm.UsagePercent = sumPct / float64(len(sm.Devices))
	}
	return sm
}

// isSSD best-effort classifies a block device: NVMe is always SSD, SATA
// devices consult the kernel's rotational flag on Linux, macOS assumes SSD.
func isSSD(device string) bool {
	name := filepath.Base(device)
	switch runtime.GOOS {
	case "linux":
		if strings.HasPrefix(name, "nvme") {
			return true
		}
		if strings.HasPrefix(name, "sd") {
			base := strings.TrimRight(name, "0123456789")
			data, err := os.ReadFile("/sys/block/" + base + "/queue/rotational")
			if err == nil {
				return strings.TrimSpace(string(data)) == "0"
			}
		}
	case "darwin":
		return true
	}
	return false
}

// PowerMetrics reports optional battery and CPU power readings. CPU power
// comes from two Intel RAPL energy_uj reads 100ms apart, per spec §4.4;
// requires root on most systems and is simply absent otherwise.
func (c *Collector) PowerMetrics() model.PowerMetrics {
	watts := cpuRAPLWatts()
	pct, plugged, ok := batteryState()
	if ok {
		source := model.PowerSourceBattery
		if plugged {
			source = model.PowerSourceAC
		}
		p := plugged
		b := pct
		return model.PowerMetrics{CPUWatts: watts, BatteryPct: &b, PluggedIn: &p, Source: source}
	}
	return model.PowerMetrics{CPUWatts: watts, Source: model.PowerSourceAC}
}

func batteryState() (percent float64, plugged bool, ok bool) {
	// gopsutil/v3 does not expose sensors.Battery on most build tags; the
	// SSH collector's equivalent reads the same sysfs path remotely.
	const batteryPath = "/sys/class/power_supply/BAT0"
	capData, err := os.ReadFile(batteryPath + "/capacity")
	if err != nil {
		return 0, false, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(string(capData)), 64)
	if err != nil {
		return 0, false, false
	}
	statusData, _ := os.ReadFile(batteryPath + "/status")
	plugged = strings.TrimSpace(string(statusData)) == "Charging" || strings.TrimSpace(string(statusData)) == "Full"
	return pct, plugged, true
}

func cpuRAPLWatts() *float64 {
	const raplPath = "/sys/class/powercap/intel-rapl"
	entries, err := os.ReadDir(raplPath)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "intel-rapl:") {
			continue
		}
		energyFile := filepath.Join(raplPath, entry.Name(), "energy_uj")
		e1, err := readUint(energyFile)
		if err != nil {
			continue
		}
		time.Sleep(100 * time.Millisecond)
		e2, err := readUint(energyFile)
		if err != nil {
			continue
		}
		watts := float64(e2-e1) / 0.1 / 1_000_000
		return &watts
	}
	return nil
}

func readUint(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

// NetworkMetrics reports per-interface traffic counters, addresses, and
// link state, skipping loopback.
func (c *Collector) NetworkMetrics() model.NetworkMetrics {
	var nm model.NetworkMetrics
	counters, err := gnet.IOCounters(true)
	if err != nil {
		return nm
	}
	addrsByIface := map[string][]gnet.InterfaceAddr{}
	if ifaces, err := gnet.Interfaces(); err == nil {
		for _, iface := range ifaces {
			addrsByIface[iface.Name] = iface.Addrs
		}
	}

	for _, io := range counters {
		if strings.HasPrefix(strings.ToLower(io.Name), "lo") {
			continue
		}
		iface := model.NetworkInterface{
			Name:        io.Name,
			BytesSent:   io.BytesSent,
			BytesRecv:   io.BytesRecv,
			PacketsSent: io.PacketsSent,
			PacketsRecv: io.PacketsRecv,
			ErrorsIn:    io.Errin,
			ErrorsOut:   io.Errout,
		}
		for _, addr := range addrsByIface[io.Name] {
			ip := strings.Split(addr.Addr, "/")[0]
			if strings.Contains(ip, ":") {
				iface.IPv6 = ip
			} else if ip != "" {
				iface.IPv4 = ip
			}
		}
		nm.Interfaces = append(nm.Interfaces, iface)
	}
	return nm
}

// CollectAll gathers every metric family and assembles a complete Snapshot.
// No sub-collector error aborts the snapshot: a probe that fails leaves its
// fields at their zero values. Probe failures are not recorded in Errors.
func (c *Collector) CollectAll() model.Snapshot {
	start := time.Now()
	snap := model.Snapshot{}

	snap.Machine = c.MachineInfo()
	snap.CPU = c.CPUMetrics()
	snap.Memory = c.MemoryMetrics()
	snap.Storage = c.StorageMetrics()
	snap.Power = c.PowerMetrics()
	snap.Network = c.NetworkMetrics()

	snap.Timestamp = time.Now()
	snap.CollectionDurationMS = time.Since(start).Milliseconds()
	return snap
}
