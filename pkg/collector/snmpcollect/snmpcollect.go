// Package snmpcollect queries remote SNMP v2c agents for hardware metrics
// using HOST-RESOURCES-MIB and UCD-SNMP-MIB (spec.md §4.4 "SNMP collector").
package snmpcollect

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

// Standard OIDs, reproduced from original_source/src/collectors/snmp_collector.py's
// StandardOIDs class.
const (
	oidSysDescr = "1.3.6.1.2.1.1.1.0"
	oidSysName  = "1.3.6.1.2.1.1.5.0"
	oidSysUptime = "1.3.6.1.2.1.1.3.0"

	oidHRProcessorLoad = "1.3.6.1.2.1.25.3.3.1.2"

	oidHRStorageType           = "1.3.6.1.2.1.25.2.3.1.2"
	oidHRStorageDescr          = "1.3.6.1.2.1.25.2.3.1.3"
	oidHRStorageAllocationUnit = "1.3.6.1.2.1.25.2.3.1.4"
	oidHRStorageSize           = "1.3.6.1.2.1.25.2.3.1.5"
	oidHRStorageUsed           = "1.3.6.1.2.1.25.2.3.1.6"

	hrStorageTypeRAM     = "1.3.6.1.2.1.25.2.1.2"
	hrStorageTypeVirtual = "1.3.6.1.2.1.25.2.1.3"
	hrStorageTypeFixed   = "1.3.6.1.2.1.25.2.1.4"

	oidUCDLoad1 = "1.3.6.1.4.1.2021.10.1.3.1"
	oidUCDLoad5 = "1.3.6.1.4.1.2021.10.1.3.2"
	oidUCDLoad15 = "1.3.6.1.4.1.2021.10.1.3.3"

	oidUCDMemTotal  = "1.3.6.1.4.1.2021.4.5.0"
	oidUCDMemAvail  = "1.3.6.1.4.1.2021.4.6.0"
	oidUCDMemCached = "1.3.6.1.4.1.2021.4.15.0"
	oidUCDMemBuffer = "1.3.6.1.4.1.2021.4.14.0"
	oidUCDSwapTotal = "1.3.6.1.4.1.2021.4.3.0"
	oidUCDSwapAvail = "1.3.6.1.4.1.2021.4.4.0"
)

// storageSizeFloor excludes tiny pseudo-filesystems from the storage device
// list, per spec §4.4 ("size > 100 MiB").
const storageSizeFloor = 100 * 1024 * 1024

// Collector queries remote hosts over SNMP v2c.
type Collector struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// New returns a Collector with the given community/port, defaulting the
// timeout to 2s and retries to 1 if unset.
func New(community string, port uint16, timeout time.Duration, retries int) *Collector {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if retries <= 0 {
		retries = 1
	}
	return &Collector{Community: community, Port: port, Timeout: timeout, Retries: retries}
}

func (c *Collector) client(ip string) *gosnmp.GoSNMP {
	return &gosnmp.GoSNMP{
		Target:    ip,
		Port:      c.Port,
		Community: c.Community,
		Version:   gosnmp.Version2c,
		Timeout:   c.Timeout,
		Retries:   c.Retries,
	}
}

// get performs a single SNMP GET, returning the PDUs in request order.
// Transport failures come back as err; OIDs the remote agent lacks come back
// as NoSuchObject/NoSuchInstance PDUs, which callers skip via isUsable and
// treat as "not reported".
func get(g *gosnmp.GoSNMP, oids []string) ([]gosnmp.SnmpPDU, error) {
	if err := g.Connect(); err != nil {
		return nil, err
	}
	defer g.Conn.Close()
	result, err := g.Get(oids)
	if err != nil {
		return nil, err
	}
	return result.Variables, nil
}

// walk performs a native BER GETBULK walk of base via gosnmp's BulkWalkAll,
// returning OID(without leading dot)→stringified-value. The original shells
// out to snmpwalk for robustness (spec Design Notes §9); gosnmp's own walker
// serves the same external contract without a subprocess dependency.
func walk(g *gosnmp.GoSNMP, base string) (map[string]string, error) {
	if err := g.Connect(); err != nil {
		return nil, err
	}
	defer g.Conn.Close()
	pdus, err := g.BulkWalkAll(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pdus))
	for _, pdu := range pdus {
		out[strings.TrimPrefix(pdu.Name, ".")] = pduString(pdu)
	}
	return out, nil
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return string(b)
		}
		return fmt.Sprintf("%v", pdu.Value)
	case gosnmp.Counter64:
		if v, ok := pdu.Value.(uint64); ok {
			return strconv.FormatUint(v, 10)
		}
	}
	return fmt.Sprintf("%v", pdu.Value)
}

func isUsable(pdu gosnmp.SnmpPDU) bool {
	return pdu.Type != gosnmp.NoSuchObject && pdu.Type != gosnmp.NoSuchInstance && pdu.Type != gosnmp.EndOfMibView
}

// CheckAvailable reports whether the host answers an SNMP GET at all.
func (c *Collector) CheckAvailable(ip string) bool {
	g := c.client(ip)
	pdus, err := get(g, []string{oidSysName})
	return err == nil && len(pdus) > 0 && isUsable(pdus[0])
}

// osTypeFromSysDescr applies the substring heuristic restored from
// original_source/src/collectors/snmp_collector.py: Linux/Windows/Darwin
// plus the network-gear families commonly seen in sysDescr strings.
func osTypeFromSysDescr(descr string) string {
	d := strings.ToLower(descr)
	switch {
	case strings.Contains(d, "linux"):
		return "Linux"
	case strings.Contains(d, "windows"):
		return "Windows"
	case strings.Contains(d, "darwin"), strings.Contains(d, "mac"):
		return "Darwin"
	case strings.Contains(d, "cisco"):
		return "Cisco"
	case strings.Contains(d, "junos"):
		return "JUNOS"
	}
	return "unknown"
}

// MachineInfo queries the system MIB and marks the machine snmp_active on
// any successful read, per spec §4.4.
func (c *Collector) MachineInfo(ip string) (model.MachineInfo, bool) {
	g := c.client(ip)
	pdus, err := get(g, []string{oidSysName, oidSysDescr, oidSysUptime})
	if err != nil || len(pdus) == 0 {
		return model.MachineInfo{}, false
	}

	hostname := "unknown"
	osType := "unknown"
	sysDescr := ""
	var uptimeSeconds int64
	any := false

	for _, pdu := range pdus {
		if !isUsable(pdu) {
			continue
		}
		name := strings.TrimPrefix(pdu.Name, ".")
		switch {
		case name == oidSysName:
			hostname = pduString(pdu)
			any = true
		case name == oidSysDescr:
			sysDescr = pduString(pdu)
			osType = osTypeFromSysDescr(sysDescr)
			any = true
		case name == oidSysUptime:
			if ticks, ok := pdu.Value.(uint32); ok {
				uptimeSeconds = int64(ticks) / 100
			} else if ticks, ok := pdu.Value.(int); ok {
				uptimeSeconds = int64(ticks) / 100
			}
			any = true
		}
	}
	if !any {
		return model.MachineInfo{}, false
	}

	sysName := ""
	if hostname != "unknown" {
		sysName = hostname
	}

	return model.MachineInfo{
		IP:               ip,
		Hostname:         hostname,
		OSType:           osType,
		SysDescr:         sysDescr,
		UptimeSeconds:    uptimeSeconds,
		LastSeen:         time.Now(),
		IsOnline:         true,
		CollectionMethod: model.MethodSNMP,
		SNMPActive:       true,
		SNMPSysName:      sysName,
	}, true
}

func parseUint(s string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func lastOIDComponent(oid string) string {
	idx := strings.LastIndex(oid, ".")
	if idx < 0 {
		return oid
	}
	return oid[idx+1:]
}

// CPUMetrics reads UCD load averages and walks hrProcessorLoad for per-core
// usage, core count as list length, mean as overall usage.
func (c *Collector) CPUMetrics(ip string) model.CPUMetrics {
	g := c.client(ip)
	var cpuMetrics model.CPUMetrics

	pdus, err := get(g, []string{oidUCDLoad1, oidUCDLoad5, oidUCDLoad15})
	if err == nil {
		for _, pdu := range pdus {
			if !isUsable(pdu) {
				continue
			}
			name := strings.TrimPrefix(pdu.Name, ".")
			v, ok := parseFloat(pduString(pdu))
			if !ok {
				continue
			}
			switch name {
			case oidUCDLoad1:
				cpuMetrics.Load1 = v
			case oidUCDLoad5:
				cpuMetrics.Load5 = v
			case oidUCDLoad15:
				cpuMetrics.Load15 = v
			}
		}
	}

	processorLoads, err := walk(c.client(ip), oidHRProcessorLoad)
	if err == nil && len(processorLoads) > 0 {
		var total float64
		var n int
		for _, raw := range processorLoads {
			if v, ok := parseFloat(raw); ok {
				total += v
				n++
			}
		}
		cpuMetrics.PhysicalCores = len(processorLoads)
		cpuMetrics.LogicalThreads = len(processorLoads)
		if n > 0 {
			cpuMetrics.UsagePercent = total / float64(n)
		}
	}
	return cpuMetrics
}

// MemoryMetrics reads UCD memory OIDs (values in KB, multiplied by 1024 per
// spec §4.4) falling back to the hrStorageTable RAM rows when the UCD total
// is absent. Swap backfill from VirtualMemory rows happens in CollectAll.
func (c *Collector) MemoryMetrics(ip string) model.MemoryMetrics {
	g := c.client(ip)
	pdus, err := get(g, []string{
		oidUCDMemTotal, oidUCDMemAvail, oidUCDMemCached, oidUCDMemBuffer,
		oidUCDSwapTotal, oidUCDSwapAvail,
	})

	var mm model.MemoryMetrics
	if err == nil {
		values := map[string]uint64{}
		for _, pdu := range pdus {
			if !isUsable(pdu) {
				continue
			}
			if v, ok := parseUint(pduString(pdu)); ok {
				values[strings.TrimPrefix(pdu.Name, ".")] = v * 1024
			}
		}
		mm.TotalBytes = values[oidUCDMemTotal]
		mm.AvailableBytes = values[oidUCDMemAvail]
		mm.CachedBytes = values[oidUCDMemCached]
		mm.BuffersBytes = values[oidUCDMemBuffer]
		mm.SwapTotalBytes = values[oidUCDSwapTotal]
		swapAvail := values[oidUCDSwapAvail]
		if mm.SwapTotalBytes > 0 && mm.SwapTotalBytes >= swapAvail {
			mm.SwapUsedBytes = mm.SwapTotalBytes - swapAvail
			mm.SwapFreeBytes = swapAvail
			mm.SwapPercent = float64(mm.SwapUsedBytes) / float64(mm.SwapTotalBytes) * 100
		}
	}

	if mm.TotalBytes == 0 {
		if ram, ok := c.ramFromHRStorage(ip); ok {
			mm = mergeRAM(mm, ram)
		}
	}

	if mm.TotalBytes > 0 && mm.TotalBytes >= mm.AvailableBytes {
		mm.UsedBytes = mm.TotalBytes - mm.AvailableBytes
		mm.UsagePercent = float64(mm.UsedBytes) / float64(mm.TotalBytes) * 100
	}
	return mm
}

func mergeRAM(mm model.MemoryMetrics, ram model.MemoryMetrics) model.MemoryMetrics {
	mm.TotalBytes = ram.TotalBytes
	mm.UsedBytes = ram.UsedBytes
	mm.AvailableBytes = ram.AvailableBytes
	mm.UsagePercent = ram.UsagePercent
	return mm
}

// hrStorageRow is one correlated row of the hrStorageTable.
type hrStorageRow struct {
	typ        string
	descr      string
	allocUnit  uint64
	sizeUnits  uint64
	usedUnits  uint64
}

func (c *Collector) walkHRStorage(ip string) (map[string]hrStorageRow, error) {
	types, err := walk(c.client(ip), oidHRStorageType)
	if err != nil {
		return nil, err
	}
	descrs, _ := walk(c.client(ip), oidHRStorageDescr)
	allocs, _ := walk(c.client(ip), oidHRStorageAllocationUnit)
	sizes, _ := walk(c.client(ip), oidHRStorageSize)
	useds, _ := walk(c.client(ip), oidHRStorageUsed)

	rows := make(map[string]hrStorageRow, len(types))
	for oid, typ := range types {
		idx := lastOIDComponent(oid)
		row := hrStorageRow{typ: strings.TrimPrefix(typ, ".")}
		row.descr = descrs[oidHRStorageDescr+"."+idx]
		if v, ok := parseUint(allocs[oidHRStorageAllocationUnit+"."+idx]); ok && v > 0 {
			row.allocUnit = v
		} else {
			row.allocUnit = 1
		}
		row.sizeUnits, _ = parseUint(sizes[oidHRStorageSize+"."+idx])
		row.usedUnits, _ = parseUint(useds[oidHRStorageUsed+"."+idx])
		rows[idx] = row
	}
	return rows, nil
}

func (c *Collector) ramFromHRStorage(ip string) (model.MemoryMetrics, bool) {
	rows, err := c.walkHRStorage(ip)
	if err != nil {
		return model.MemoryMetrics{}, false
	}
	for _, row := range rows {
		if !strings.HasSuffix(row.typ, hrStorageTypeRAM) {
			continue
		}
		size := row.sizeUnits * row.allocUnit
		used := row.usedUnits * row.allocUnit
		if size == 0 {
			continue
		}
		return model.MemoryMetrics{
			TotalBytes:     size,
			UsedBytes:      used,
			AvailableBytes: size - used,
			UsagePercent:   float64(used) / float64(size) * 100,
		}, true
	}
	return model.MemoryMetrics{}, false
}

// StorageMetrics walks and correlates the five hrStorageTable columns by row
// index, keeping only FixedDisk rows over storageSizeFloor whose descriptor
// doesn't look like a memory-backed pseudo-filesystem (spec §4.4).
func (c *Collector) StorageMetrics(ip string) model.StorageMetrics {
	var sm model.StorageMetrics
	rows, err := c.walkHRStorage(ip)
	if err != nil {
		return sm
	}
	for _, row := range rows {
		if !strings.HasSuffix(row.typ, hrStorageTypeFixed) {
			continue
		}
		size := row.sizeUnits * row.allocUnit
		used := row.usedUnits * row.allocUnit
		if size <= storageSizeFloor {
			continue
		}
		descrLower := strings.ToLower(row.descr)
		if strings.Contains(descrLower, "tmpfs") || strings.Contains(descrLower, "/dev/shm") || strings.Contains(descrLower, "/run") {
			continue
		}
		dev := model.StorageDevice{
			Device:       row.descr,
			MountPoint:   row.descr,
			TotalBytes:   size,
			UsedBytes:    used,
			FreeBytes:    size - used,
			UsagePercent: float64(used) / float64(size) * 100,
		}
		sm.Devices = append(sm.Devices, dev)
		sm.TotalBytes += size
		sm.UsedBytes += used
		sm.FreeBytes += size - used
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

// swapFromHRStorage backfills swap fields from the hrStorageTable's
// VirtualMemory rows when UCD swap OIDs were absent.
func (c *Collector) swapFromHRStorage(ip string) (total, used, free uint64, ok bool) {
	rows, err := c.walkHRStorage(ip)
	if err != nil {
		return 0, 0, 0, false
	}
	for _, row := range rows {
		if !strings.HasSuffix(row.typ, hrStorageTypeVirtual) {
			continue
		}
		size := row.sizeUnits * row.allocUnit
		u := row.usedUnits * row.allocUnit
		if size == 0 {
			continue
		}
		return size, u, size - u, true
	}
	return 0, 0, 0, false
}

// Get issues a single raw SNMP GET, used directly by the MQTT republisher's
// custom-OID polling (spec §4.6).
func (c *Collector) Get(ip, oid string) (model.MetricValue, bool) {
	g := c.client(ip)
	pdus, err := get(g, []string{oid})
	if err != nil || len(pdus) == 0 || !isUsable(pdus[0]) {
		return model.MetricValue{}, false
	}
	return pduToMetricValue(pdus[0]), true
}

// pduToMetricValue projects a decoded SNMP PDU into the tagged MetricValue
// variant (spec Design Notes §9): integers in signed-32 range become
// Integer, Counter64 stays Counter64, everything else is stringified.
func pduToMetricValue(pdu gosnmp.SnmpPDU) model.MetricValue {
	switch pdu.Type {
	case gosnmp.Counter64:
		if v, ok := pdu.Value.(uint64); ok {
			return model.MetricValue{Kind: model.MetricCounter64, Counter: v}
		}
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks:
		switch v := pdu.Value.(type) {
		case int:
			return model.MetricValue{Kind: model.MetricInteger, Int: int64(v)}
		case uint32:
			if v > math.MaxInt32 {
				return model.MetricValue{Kind: model.MetricCounter64, Counter: uint64(v)}
			}
			return model.MetricValue{Kind: model.MetricInteger, Int: int64(v)}
		case uint:
			if v > math.MaxInt32 {
				return model.MetricValue{Kind: model.MetricCounter64, Counter: uint64(v)}
			}
			return model.MetricValue{Kind: model.MetricInteger, Int: int64(v)}
		}
	}
	return model.MetricValue{Kind: model.MetricString, Str: pduString(pdu)}
}

// CollectAll gathers system, CPU, memory, and storage metrics for ip,
// returning false if the host doesn't answer SNMP at all.
func (c *Collector) CollectAll(ip string) (model.Snapshot, bool) {
	start := time.Now()
	machine, ok := c.MachineInfo(ip)
	if !ok {
		return model.Snapshot{}, false
	}

	snap := model.Snapshot{Machine: machine}
	snap.CPU = c.CPUMetrics(ip)
	snap.Memory = c.MemoryMetrics(ip)
	if snap.Memory.SwapTotalBytes == 0 {
		if total, used, free, ok := c.swapFromHRStorage(ip); ok {
			snap.Memory.SwapTotalBytes = total
			snap.Memory.SwapUsedBytes = used
			snap.Memory.SwapFreeBytes = free
			snap.Memory.SwapPercent = float64(used) / float64(total) * 100
		}
	}
	snap.Storage = c.StorageMetrics(ip)
	snap.Timestamp = time.Now()
	snap.CollectionDurationMS = time.Since(start).Milliseconds()
	return snap, true
}
