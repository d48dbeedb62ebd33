// Package sshcollect collects hardware metrics from remote Linux hosts over
// SSH by parsing the output of a handful of well-known commands and /proc,
// /sys reads (spec.md §4.4 "SSH collector").
package sshcollect

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

// Collector opens one SSH session per command invocation (matching the
// original's per-call exec_command usage) against a configured credential.
type Collector struct {
	Username string
	Password string
	KeyPath  string
	Signer   ssh.Signer
	Port     int
	Timeout  time.Duration
}

// New returns a Collector defaulting port to 22 and timeout to 10s.
func New(username, password string) *Collector {
	return &Collector{Username: username, Password: password, Port: 22, Timeout: 10 * time.Second}
}

func (c *Collector) clientConfig() (*ssh.ClientConfig, error) {
	var auths []ssh.AuthMethod
	signer, err := c.signer()
	if err != nil {
		return nil, fmt.Errorf("ssh: loading key %s: %w", c.KeyPath, err)
	}
	if signer != nil {
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		auths = append(auths, ssh.Password(c.Password))
	}
	return &ssh.ClientConfig{
		User:            c.Username,
		Auth:            auths,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.Timeout,
	}, nil
}

// signer returns the key-based auth method, preferring an already-set
// Signer over re-reading KeyPath, and caching the parsed result. Key auth
// is tried ahead of password, matching ssh_collector.py's key_filename
// taking priority over a configured password.
func (c *Collector) signer() (ssh.Signer, error) {
	if c.Signer != nil {
		return c.Signer, nil
	}
	if c.KeyPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.KeyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, err
	}
	c.Signer = signer
	return signer, nil
}

// dial opens a new SSH connection to ip. Callers must Close() the returned
// client.
func (c *Collector) dial(ip string) (*ssh.Client, error) {
	cfg, err := c.clientConfig()
	if err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", ip, c.Port)
	return ssh.Dial("tcp", addr, cfg)
}

// run executes command in a fresh session, returning trimmed stdout. Each
// call opens its own session, mirroring paramiko's per-command exec_command.
func run(client *ssh.Client, command string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()
	out, err := session.CombinedOutput(command)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CheckAvailable reports whether an SSH session can be established.
func (c *Collector) CheckAvailable(ip string) bool {
	client, err := c.dial(ip)
	if err != nil {
		return false
	}
	client.Close()
	return true
}

// MachineInfo runs `hostname`, `uname -r`, and reads /proc/uptime, appending
// an entry to errs for each failed command (spec §4.4).
func MachineInfo(client *ssh.Client, ip string, errs *[]string) model.MachineInfo {
	m := model.MachineInfo{
		IP:               ip,
		Hostname:         "unknown",
		OSType:           "Linux",
		LastSeen:         time.Now(),
		IsOnline:         true,
		CollectionMethod: model.MethodSSH,
	}
	if out, err := run(client, "hostname"); err == nil && out != "" {
		m.Hostname = out
	} else if err != nil {
		*errs = append(*errs, fmt.Sprintf("hostname: %v", err))
	}
	if out, err := run(client, "uname -r"); err == nil {
		m.OSVersion = out
	} else {
		*errs = append(*errs, fmt.Sprintf("uname -r: %v", err))
	}
	if out, err := run(client, "cat /proc/uptime"); err == nil {
		fields := strings.Fields(out)
		if len(fields) > 0 {
			if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
				m.UptimeSeconds = int64(v)
			}
		}
	} else {
		*errs = append(*errs, fmt.Sprintf("proc uptime: %v", err))
	}
	return m
}

var (
	coreIDRe    = regexp.MustCompile(`(?m)^core id\s*:\s*(\S+)`)
	modelNameRe = regexp.MustCompile(`(?m)^model name\s*:\s*(.+)$`)
	cpuMHzRe    = regexp.MustCompile(`(?m)^cpu MHz\s*:\s*([\d.]+)`)
)

// CPUMetrics parses /proc/cpuinfo, /proc/loadavg, a two-sample /proc/stat
// read 100ms apart, the cpufreq max-frequency sysfs node, and the thermal
// zone temperature sysfs node.
func CPUMetrics(client *ssh.Client, errs *[]string) model.CPUMetrics {
	var cpuMetrics model.CPUMetrics

	if out, err := run(client, "cat /proc/cpuinfo"); err == nil {
		threads := strings.Count(out, "processor")
		cpuMetrics.LogicalThreads = threads

		coreIDs := map[string]bool{}
		for _, m := range coreIDRe.FindAllStringSubmatch(out, -1) {
			coreIDs[m[1]] = true
		}
		if len(coreIDs) > 0 {
			cpuMetrics.PhysicalCores = len(coreIDs)
		} else {
			cpuMetrics.PhysicalCores = threads
		}
		if m := modelNameRe.FindStringSubmatch(out); m != nil {
			cpuMetrics.Model = strings.TrimSpace(m[1])
		}
		if m := cpuMHzRe.FindStringSubmatch(out); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				cpuMetrics.CurrentMHz = v
			}
		}
	} else {
		*errs = append(*errs, fmt.Sprintf("proc cpuinfo: %v", err))
	}

	if out, err := run(client, "cat /proc/loadavg"); err == nil {
		fields := strings.Fields(out)
		if len(fields) >= 3 {
			cpuMetrics.Load1, _ = strconv.ParseFloat(fields[0], 64)
			cpuMetrics.Load5, _ = strconv.ParseFloat(fields[1], 64)
			cpuMetrics.Load15, _ = strconv.ParseFloat(fields[2], 64)
		}
	} else {
		*errs = append(*errs, fmt.Sprintf("proc loadavg: %v", err))
	}

	if usage, ok := cpuUsageFromProcStat(client); ok {
		cpuMetrics.UsagePercent = usage
	} else {
		*errs = append(*errs, "proc stat: cpu usage sample failed")
	}

	if out, err := run(client, "cat /sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq 2>/dev/null"); err == nil && out != "" {
		if v, err := strconv.ParseFloat(out, 64); err == nil {
			cpuMetrics.MaxMHz = v / 1000
		}
	} else {
		cpuMetrics.MaxMHz = cpuMetrics.CurrentMHz
	}

	if out, err := run(client, "cat /sys/class/thermal/thermal_zone0/temp 2>/dev/null"); err == nil && out != "" {
		if v, err := strconv.ParseFloat(out, 64); err == nil {
			c := v / 1000
			cpuMetrics.TempC = &c
		}
	}

	return cpuMetrics
}

// parseStatFields extracts the first 7 jiffies counters from a `head -1
// /proc/stat` line (user, nice, system, idle, iowait, irq, softirq).
func parseStatFields(line string) ([]int64, bool) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return nil, false
	}
	out := make([]int64, 0, 7)
	for _, f := range fields[1:8] {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// cpuUsageFromProcStat samples /proc/stat twice 100ms apart and computes
// 100*(1 - idleDelta/totalDelta), per spec §4.4.
func cpuUsageFromProcStat(client *ssh.Client) (float64, bool) {
	out1, err := run(client, "head -1 /proc/stat")
	if err != nil {
		return 0, false
	}
	time.Sleep(100 * time.Millisecond)
	out2, err := run(client, "head -1 /proc/stat")
	if err != nil {
		return 0, false
	}

	stat1, ok1 := parseStatFields(out1)
	stat2, ok2 := parseStatFields(out2)
	if !ok1 || !ok2 {
		return 0, false
	}

	var total int64
	var idle int64
	for i := range stat1 {
		delta := stat2[i] - stat1[i]
		total += delta
		if i == 3 {
			idle = delta
		}
	}
	if total == 0 {
		return 0, false
	}
	return 100.0 * (1 - float64(idle)/float64(total)), true
}

// MemoryMetrics parses /proc/meminfo.
func MemoryMetrics(client *ssh.Client, errs *[]string) model.MemoryMetrics {
	out, err := run(client, "cat /proc/meminfo")
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("proc meminfo: %v", err))
		return model.MemoryMetrics{}
	}

	fields := map[string]uint64{}
	digitsRe := regexp.MustCompile(`\d+`)
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		m := digitsRe.FindString(line[idx+1:])
		if m == "" {
			continue
		}
		v, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		fields[key] = v * 1024
	}

	total := fields["MemTotal"]
	free := fields["MemFree"]
	available := fields["MemAvailable"]
	if available == 0 {
		available = free
	}
	cached := fields["Cached"]
	buffers := fields["Buffers"]
	used := uint64(0)
	if total >= available {
		used = total - available
	}

	swapTotal := fields["SwapTotal"]
	swapFree := fields["SwapFree"]
	swapUsed := uint64(0)
	if swapTotal >= swapFree {
		swapUsed = swapTotal - swapFree
	}

	mm := model.MemoryMetrics{
		TotalBytes:     total,
		UsedBytes:      used,
		AvailableBytes: available,
		CachedBytes:    cached,
		BuffersBytes:   buffers,
		SwapTotalBytes: swapTotal,
		SwapUsedBytes:  swapUsed,
		SwapFreeBytes:  swapFree,
	}
	if total > 0 {
		mm.UsagePercent = float64(used) / float64(total) * 100
	}
	if swapTotal > 0 {
		mm.SwapPercent = float64(swapUsed) / float64(swapTotal) * 100
	}
	return mm
}

// StorageMetrics runs `df -B1 -T`, excluding tmpfs/devtmpfs/squashfs, and
// probes each device's rotational sysfs flag to set IsSSD.
func StorageMetrics(client *ssh.Client, errs *[]string) model.StorageMetrics {
	var sm model.StorageMetrics
	out, err := run(client, "df -B1 -T -x tmpfs -x devtmpfs -x squashfs 2>/dev/null")
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("df: %v", err))
		return sm
	}

	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return sm
	}
	for _, line := range lines[1:] {
		parts := strings.Fields(line)
		if len(parts) < 7 {
			continue
		}
		total, err1 := strconv.ParseUint(parts[2], 10, 64)
		used, err2 := strconv.ParseUint(parts[3], 10, 64)
		free, err3 := strconv.ParseUint(parts[4], 10, 64)
		pct, err4 := strconv.ParseFloat(strings.TrimSuffix(parts[5], "%"), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		dev := model.StorageDevice{
			Device:       parts[0],
			FSType:       parts[1],
			TotalBytes:   total,
			UsedBytes:    used,
			FreeBytes:    free,
			UsagePercent: pct,
			MountPoint:   parts[6],
		}

		devName := parts[0]
		if idx := strings.LastIndex(devName, "/"); idx >= 0 {
			devName = devName[idx+1:]
		}
		devName = strings.TrimRight(devName, "0123456789")
		if rot, err := run(client, fmt.Sprintf("cat /sys/block/%s/queue/rotational 2>/dev/null", devName)); err == nil {
			dev.IsSSD = rot == "0"
		}

		sm.Devices = append(sm.Devices, dev)
		sm.TotalBytes += total
		sm.UsedBytes += used
		sm.FreeBytes += free
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

// PowerMetrics reads Intel RAPL energy counters (two samples 100ms apart)
// and the BAT0 sysfs battery state.
// PowerMetrics takes no errs slice: RAPL and battery sysfs nodes are absent
// on most hosts by design (spec §4.4 "optional"), so their absence is not a
// collection failure.
func PowerMetrics(client *ssh.Client) model.PowerMetrics {
	var watts *float64
	if out1, err := run(client, "cat /sys/class/powercap/intel-rapl/intel-rapl:0/energy_uj 2>/dev/null"); err == nil && out1 != "" {
		if e1, err := strconv.ParseInt(out1, 10, 64); err == nil {
			time.Sleep(100 * time.Millisecond)
			if out2, err := run(client, "cat /sys/class/powercap/intel-rapl/intel-rapl:0/energy_uj 2>/dev/null"); err == nil && out2 != "" {
				if e2, err := strconv.ParseInt(out2, 10, 64); err == nil {
					w := float64(e2-e1) / 100000
					watts = &w
				}
			}
		}
	}

	var batteryPct *float64
	var plugged *bool
	if out, err := run(client, "cat /sys/class/power_supply/BAT0/capacity 2>/dev/null"); err == nil && out != "" {
		if v, err := strconv.ParseFloat(out, 64); err == nil {
			batteryPct = &v
		}
		if status, err := run(client, "cat /sys/class/power_supply/BAT0/status 2>/dev/null"); err == nil {
			p := strings.EqualFold(status, "charging") || strings.EqualFold(status, "full")
			plugged = &p
		}
	}

	source := model.PowerSourceAC
	if batteryPct != nil && plugged != nil && !*plugged {
		source = model.PowerSourceBattery
	}
	return model.PowerMetrics{CPUWatts: watts, BatteryPct: batteryPct, PluggedIn: plugged, Source: source}
}

var procNetDevIPv4Re = regexp.MustCompile(`inet (\d+\.\d+\.\d+\.\d+)`)

// NetworkMetrics parses /proc/net/dev, skipping loopback, then issues one
// `ip addr show` per interface to resolve its IPv4 address.
func NetworkMetrics(client *ssh.Client, errs *[]string) model.NetworkMetrics {
	var nm model.NetworkMetrics
	out, err := run(client, "cat /proc/net/dev")
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("proc net dev: %v", err))
		return nm
	}

	lines := strings.Split(out, "\n")
	if len(lines) < 3 {
		return nm
	}
	for _, line := range lines[2:] {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		if name == "lo" || name == "" {
			continue
		}
		stats := strings.Fields(line[idx+1:])
		if len(stats) < 11 {
			continue
		}
		iface := model.NetworkInterface{Name: name, IsUp: true}
		iface.BytesRecv, _ = strconv.ParseUint(stats[0], 10, 64)
		iface.PacketsRecv, _ = strconv.ParseUint(stats[1], 10, 64)
		iface.ErrorsIn, _ = strconv.ParseUint(stats[2], 10, 64)
		iface.BytesSent, _ = strconv.ParseUint(stats[8], 10, 64)
		iface.PacketsSent, _ = strconv.ParseUint(stats[9], 10, 64)
		iface.ErrorsOut, _ = strconv.ParseUint(stats[10], 10, 64)

		if ipOut, err := run(client, fmt.Sprintf("ip -4 addr show %s 2>/dev/null | grep inet", name)); err == nil {
			if m := procNetDevIPv4Re.FindStringSubmatch(ipOut); m != nil {
				iface.IPv4 = m[1]
			}
		}
		nm.Interfaces = append(nm.Interfaces, iface)
	}
	return nm
}

// CollectAll opens one SSH connection to ip and gathers every metric
// family, appending a string to Errors for each sub-collection failure
// rather than aborting (spec §4.4).
func (c *Collector) CollectAll(ip string) (model.Snapshot, bool) {
	start := time.Now()
	client, err := c.dial(ip)
	if err != nil {
		return model.Snapshot{}, false
	}
	defer client.Close()

	var errs []string
	snap := model.Snapshot{Machine: MachineInfo(client, ip, &errs)}
	snap.CPU = CPUMetrics(client, &errs)
	snap.Memory = MemoryMetrics(client, &errs)
	snap.Storage = StorageMetrics(client, &errs)
	snap.Power = PowerMetrics(client)
	snap.Network = NetworkMetrics(client, &errs)
	snap.Timestamp = time.Now()
	snap.CollectionDurationMS = time.Since(start).Milliseconds()
	for _, e := range errs {
		snap.AddError(e)
	}
	return snap, true
}
