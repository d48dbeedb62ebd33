// Package mib projects fleet store state into a sorted OID→value table that
// the SNMP agent serves (spec.md §4.5/§6), grounded on the exact column
// layout of original_source/src/agent/mib_definitions.py.
package mib

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pointlessduffin-21/snmp-agent/pkg/fleetstore"
	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
)

// Kind distinguishes the wire type a Value should be encoded as.
type Kind int

const (
	KindInteger Kind = iota
	KindCounter64
	KindTimeTicks
	KindString
)

// Value is the typed cell stored at one OID, ready for BER encoding.
type Value struct {
	Kind    Kind
	Int     int64
	Counter uint64
	Str     string
}

func intVal(v int64) Value      { return Value{Kind: KindInteger, Int: v} }
func ctrVal(v uint64) Value     { return Value{Kind: KindCounter64, Counter: v} }
func ticksVal(v uint32) Value   { return Value{Kind: KindTimeTicks, Counter: uint64(v)} }
func strVal(v string) Value     { return Value{Kind: KindString, Str: v} }

func metricValueToValue(mv model.MetricValue) Value {
	switch mv.Kind {
	case model.MetricInteger:
		return intVal(mv.Int)
	case model.MetricCounter64:
		return ctrVal(mv.Counter)
	default:
		return strVal(mv.Str)
	}
}

// Projection is an immutable, sorted OID table. A new Projection wholly
// replaces the prior one (spec §5: "OID cache is rebuilt wholesale ... and
// atomically swapped").
type Projection struct {
	values map[string]Value
	sorted []string
	arcs   map[string][]int
}

// Get returns the value stored at oid, if present.
func (p *Projection) Get(oid string) (Value, bool) {
	v, ok := p.values[oid]
	return v, ok
}

// Next returns the least key strictly greater than oid in sorted OID order,
// or ok=false if oid is the last key (spec §4.5 GETNEXT semantics).
func (p *Projection) Next(oid string) (string, Value, bool) {
	target := parseOIDArcs(oid)
	idx := sort.Search(len(p.sorted), func(i int) bool {
		return lessArcs(target, p.arcs[p.sorted[i]])
	})
	if idx >= len(p.sorted) {
		return "", Value{}, false
	}
	next := p.sorted[idx]
	return next, p.values[next], true
}

// Len returns the number of OIDs in the projection.
func (p *Projection) Len() int { return len(p.sorted) }

func parseOIDArcs(oid string) []int {
	parts := strings.Split(strings.Trim(oid, "."), ".")
	arcs := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		arcs = append(arcs, v)
	}
	return arcs
}

// lessArcs reports whether a sorts strictly before b under numeric-tuple
// comparison, with a shorter equal-prefix tuple sorting first.
func lessArcs(a, b []int) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// builder accumulates OID→Value pairs during a single projection build.
type builder struct {
	base   string
	values map[string]Value
}

func (b *builder) set(suffix string, v Value) {
	b.values[b.base+suffix] = v
}

// Build rebuilds the full projection from the current fleet store state.
// Machine indices are assigned by sorting snapshot IPs ascending and
// enumerating from 1, per spec §4.5.
func Build(store *fleetstore.Store, enterpriseOID string, agentVersion string, agentStart time.Time) *Projection {
	b := &builder{base: enterpriseOID, values: make(map[string]Value)}

	snapshots := store.Snapshots()
	ips := make([]string, 0, len(snapshots))
	for ip := range snapshots {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	uptimeTicks := uint32(time.Since(agentStart).Seconds() * 100)
	b.set(".1.1.0", strVal(agentVersion))
	b.set(".1.2.0", ticksVal(uptimeTicks))
	b.set(".1.3.0", intVal(int64(len(ips))))

	for i, ip := range ips {
		idx := i + 1
		snap := snapshots[ip]
		buildMachineRow(b, idx, snap)
		buildCPURow(b, idx, snap)
		buildMemoryRow(b, idx, snap)
		buildStorageRows(b, idx, snap)
		buildPowerRow(b, idx, snap)
		buildNetworkRows(b, idx, snap)

		for oid, mv := range snap.CustomMetrics {
			b.values[oid] = metricValueToValue(mv)
		}
	}

	sorted := make([]string, 0, len(b.values))
	arcs := make(map[string][]int, len(b.values))
	for oid := range b.values {
		sorted = append(sorted, oid)
		arcs[oid] = parseOIDArcs(oid)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return lessArcs(arcs[sorted[i]], arcs[sorted[j]])
	})

	return &Projection{values: b.values, sorted: sorted, arcs: arcs}
}

func buildMachineRow(b *builder, idx int, snap model.Snapshot) {
	m := snap.Machine
	col := func(n int) string { return fmt.Sprintf(".2.1.%d.%d", n, idx) }
	b.values[b.base+col(1)] = intVal(int64(idx))
	b.values[b.base+col(2)] = strVal(m.IP)
	b.values[b.base+col(3)] = strVal(m.Hostname)
	b.values[b.base+col(4)] = strVal(m.OSType)
	b.values[b.base+col(5)] = ticksVal(uint32(m.UptimeSeconds * 100))
	status := int64(2)
	if m.IsOnline {
		status = 1
	}
	b.values[b.base+col(6)] = intVal(status)
	b.values[b.base+col(7)] = strVal(m.LastSeen.Format(time.RFC3339))
}

func buildCPURow(b *builder, idx int, snap model.Snapshot) {
	c := snap.CPU
	col := func(n int) string { return fmt.Sprintf(".3.1.%d.%d", n, idx) }
	temp := int64(0)
	if c.TempC != nil {
		temp = int64(*c.TempC)
	}
	b.values[b.base+col(1)] = intVal(int64(idx))
	b.values[b.base+col(2)] = intVal(int64(c.UsagePercent))
	b.values[b.base+col(3)] = intVal(int64(c.PhysicalCores))
	b.values[b.base+col(4)] = intVal(int64(c.LogicalThreads))
	b.values[b.base+col(5)] = intVal(int64(c.CurrentMHz))
	b.values[b.base+col(6)] = intVal(temp)
	b.values[b.base+col(7)] = strVal(fmt.Sprintf("%.2f", c.Load1))
	b.values[b.base+col(8)] = strVal(fmt.Sprintf("%.2f", c.Load5))
	b.values[b.base+col(9)] = strVal(fmt.Sprintf("%.2f", c.Load15))
	b.values[b.base+col(10)] = strVal(c.Model)
}

func buildMemoryRow(b *builder, idx int, snap model.Snapshot) {
	m := snap.Memory
	col := func(n int) string { return fmt.Sprintf(".4.1.%d.%d", n, idx) }
	b.values[b.base+col(1)] = intVal(int64(idx))
	b.values[b.base+col(2)] = ctrVal(m.TotalBytes)
	b.values[b.base+col(3)] = ctrVal(m.UsedBytes)
	b.values[b.base+col(4)] = ctrVal(m.AvailableBytes)
	b.values[b.base+col(5)] = intVal(int64(m.UsagePercent))
	b.values[b.base+col(6)] = ctrVal(m.SwapTotalBytes)
	b.values[b.base+col(7)] = ctrVal(m.SwapUsedBytes)
}

func buildStorageRows(b *builder, idx int, snap model.Snapshot) {
	col := func(n, dev int) string { return fmt.Sprintf(".5.1.%d.%d.%d", n, idx, dev) }
	for d, dev := range snap.Storage.Devices {
		devIdx := d + 1
		b.values[b.base+col(1, devIdx)] = strVal(fmt.Sprintf("%d.%d", idx, devIdx))
		b.values[b.base+col(2, devIdx)] = intVal(int64(idx))
		b.values[b.base+col(3, devIdx)] = strVal(dev.Device)
		b.values[b.base+col(4, devIdx)] = strVal(dev.MountPoint)
		b.values[b.base+col(5, devIdx)] = strVal(dev.FSType)
		b.values[b.base+col(6, devIdx)] = ctrVal(dev.TotalBytes)
		b.values[b.base+col(7, devIdx)] = ctrVal(dev.UsedBytes)
		b.values[b.base+col(8, devIdx)] = ctrVal(dev.FreeBytes)
		b.values[b.base+col(9, devIdx)] = intVal(int64(dev.UsagePercent))
	}
}

func buildPowerRow(b *builder, idx int, snap model.Snapshot) {
	p := snap.Power
	col := func(n int) string { return fmt.Sprintf(".6.1.%d.%d", n, idx) }
	watts := int64(0)
	if p.CPUWatts != nil {
		watts = int64(*p.CPUWatts * 100)
	}
	battery := int64(0)
	if p.BatteryPct != nil {
		battery = int64(*p.BatteryPct)
	}
	plugged := int64(-1)
	if p.PluggedIn != nil {
		if *p.PluggedIn {
			plugged = 1
		} else {
			plugged = 0
		}
	}
	b.values[b.base+col(1)] = intVal(int64(idx))
	b.values[b.base+col(2)] = intVal(watts)
	b.values[b.base+col(3)] = intVal(battery)
	b.values[b.base+col(4)] = intVal(plugged)
}

func buildNetworkRows(b *builder, idx int, snap model.Snapshot) {
	col := func(n, netIdx int) string { return fmt.Sprintf(".7.1.%d.%d.%d", n, idx, netIdx) }
	for n, iface := range snap.Network.Interfaces {
		netIdx := n + 1
		b.values[b.base+col(1, netIdx)] = strVal(fmt.Sprintf("%d.%d", idx, netIdx))
		b.values[b.base+col(2, netIdx)] = intVal(int64(idx))
		b.values[b.base+col(3, netIdx)] = strVal(iface.Name)
		b.values[b.base+col(4, netIdx)] = strVal(iface.IPv4)
		b.values[b.base+col(5, netIdx)] = strVal(iface.MACAddress)
		b.values[b.base+col(6, netIdx)] = ctrVal(iface.BytesSent)
		b.values[b.base+col(7, netIdx)] = ctrVal(iface.BytesRecv)
	}
}
