// Package discovery finds hosts on configured subnets via ICMP ping sweep,
// ARP table reads, and static host configuration (spec.md §4.2).
package discovery

import (
	"context"
	"net"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pointlessduffin-21/snmp-agent/internal/log"
	"github.com/pointlessduffin-21/snmp-agent/pkg/config"
	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
	"github.com/pointlessduffin-21/snmp-agent/pkg/resolver"
)

// maxSubnetHosts caps a ping sweep at 256 addresses for any subnet whose
// address count exceeds 1024, per spec §4.2/§8 ("Ping-sweep bound").
const maxSubnetHosts = 256
const largeSubnetThreshold = 1024

// pingConcurrency bounds simultaneous outstanding ICMP pings, per spec §5.
const pingConcurrency = 50

// Scanner runs one discovery cycle per Scan call.
type Scanner struct {
	cfg config.DiscoveryConfig
}

// New returns a Scanner for the given discovery configuration.
func New(cfg config.DiscoveryConfig) *Scanner {
	return &Scanner{cfg: cfg}
}

// Scan runs the full discovery algorithm in the exact order specified by
// spec §4.2: ARP table first, then static hosts, then subnet ping sweeps,
// then any remaining ARP-only entries. It never returns an error; per-subnet
// or per-host failures are logged and skipped.
func (s *Scanner) Scan(ctx context.Context) []model.MachineInfo {
	excluded := toSet(s.cfg.ExcludeIPs)

	var arpTable map[string]string
	if s.cfg.UseARPScan {
		arpTable = arpScan(ctx)
		log.Infof("discovery: arp scan found %d hosts", len(arpTable))
	} else {
		arpTable = map[string]string{}
	}

	seen := make(map[string]bool)
	var machines []model.MachineInfo

	for _, host := range s.cfg.StaticHosts {
		if host == "" || excluded[host] || seen[host] {
			continue
		}
		seen[host] = true
		mac := arpTable[host]
		machines = append(machines, enrich(ctx, host, mac, model.MethodStatic))
	}

	for _, subnet := range s.cfg.Subnets {
		if ctx.Err() != nil {
			return machines
		}
		hosts, err := s.pingSweep(ctx, subnet)
		if err != nil {
			log.Errorf("discovery: invalid subnet %s: %v", subnet, err)
			continue
		}
		for _, ip := range hosts {
			if excluded[ip] || seen[ip] {
				continue
			}
			seen[ip] = true
			mac := arpTable[ip]
			machines = append(machines, enrich(ctx, ip, mac, model.MethodPing))
		}
	}

	for ip, mac := range arpTable {
		if excluded[ip] || seen[ip] {
			continue
		}
		seen[ip] = true
		machines = append(machines, enrich(ctx, ip, mac, model.MethodARP))
	}

	log.Infof("discovery: discovered %d machines", len(machines))
	return machines
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, v := range items {
		set[v] = true
	}
	return set
}

// enrich performs fast DNS-only hostname resolution (≤1s, per spec §4.2) and
// OUI vendor lookup. Full name resolution (mDNS/NetBIOS) is deliberately
// skipped here to keep discovery cycles fast — SNMP/SSH collection fills in
// richer names later via fleetstore merge.
func enrich(ctx context.Context, ip, mac string, method model.CollectionMethod) model.MachineInfo {
	hostname := "unknown"
	if name, ok := resolver.ResolveDNS(ip); ok {
		hostname = name
	}
	vendor := "Unknown"
	if mac != "" {
		vendor = resolver.OUIVendor(mac)
	}
	return model.MachineInfo{
		IP:               ip,
		Hostname:         hostname,
		MACAddress:       mac,
		Vendor:           vendor,
		CollectionMethod: method,
		IsOnline:         method == model.MethodPing,
		LastSeen:         time.Now(),
	}
}

// pingSweep enumerates subnet's host addresses (capped at maxSubnetHosts for
// subnets larger than largeSubnetThreshold addresses) and pings each with
// bounded concurrency, returning responding IPs.
func (s *Scanner) pingSweep(ctx context.Context, subnet string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(subnet)
	if err != nil {
		return nil, err
	}

	hosts := enumerateHosts(ip, ipnet)
	if len(hosts) > largeSubnetThreshold {
		log.Warnf("discovery: subnet %s too large (%d), limiting to first %d hosts", subnet, len(hosts), maxSubnetHosts)
		hosts = hosts[:maxSubnetHosts]
	}
	log.Infof("discovery: scanning %d hosts in %s", len(hosts), subnet)

	sem := semaphore.NewWeighted(pingConcurrency)
	results := make([]string, len(hosts))
	done := make(chan struct{})
	var pending int
	for i, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		pending++
		go func(i int, host string) {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()
			if ping(ctx, host, s.cfg.PingTimeout()) {
				results[i] = host
			}
		}(i, host)
	}
	for ; pending > 0; pending-- {
		<-done
	}

	out := make([]string, 0, len(results))
	for _, ip := range results {
		if ip != "" {
			out = append(out, ip)
		}
	}
	return out, nil
}

// enumerateHosts lists the usable host addresses in ipnet, excluding the
// network and (for IPv4) broadcast addresses. It stops after
// largeSubnetThreshold+2 addresses, which is enough for pingSweep to detect
// an oversized subnet; larger subnets are therefore not listed in full.
func enumerateHosts(base net.IP, ipnet *net.IPNet) []string {
	var out []string
	ip4 := ipnet.IP.To4()
	if ip4 == nil {
		// IPv6 subnets are not swept; spec's subnet model is IPv4-dotted.
		return out
	}
	mask := ipnet.Mask
	network := ip4.Mask(mask)
	broadcast := make(net.IP, len(network))
	for i := range network {
		broadcast[i] = network[i] | ^mask[i]
	}

	cur := make(net.IP, len(network))
	copy(cur, network)
	incIP(cur)
	for !cur.Equal(broadcast) {
		out = append(out, cur.String())
		incIP(cur)
		if len(out) > largeSubnetThreshold+1 {
			break // enough to exceed largeSubnetThreshold
		}
	}
	return out
}

func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

// ping shells out to the platform ping binary with a 1-packet, bounded-wait
// invocation, killing the child if it exceeds timeout. Returns true if the
// host responded.
func ping(ctx context.Context, ip string, timeout time.Duration) bool {
	deadline := timeout + time.Second
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(cctx, "ping", "-n", "1", "-w", strconv.Itoa(int(timeout.Milliseconds())), ip)
	} else {
		secs := int(timeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		cmd = exec.CommandContext(cctx, "ping", "-c", "1", "-W", strconv.Itoa(secs), ip)
	}
	return cmd.Run() == nil
}

var (
	unixARPRe    = regexp.MustCompile(`(?i)\((\d+\.\d+\.\d+\.\d+)\)\s+at\s+([0-9a-f:]+)`)
	windowsARPRe = regexp.MustCompile(`(?i)(\d+\.\d+\.\d+\.\d+)\s+([0-9a-f-]+)`)
)

// arpScan reads the system ARP table via `arp -a`, returning IP→MAC. Parse
// failures and missing binaries yield an empty map, never an error.
func arpScan(ctx context.Context) map[string]string {
	out := map[string]string{}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := exec.CommandContext(cctx, "arp", "-a").Output()
	if err != nil {
		log.Errorf("discovery: error reading arp table: %v", err)
		return out
	}

	re := unixARPRe
	if runtime.GOOS == "windows" {
		re = windowsARPRe
	}
	for _, line := range strings.Split(string(raw), "\n") {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ip := m[1]
		mac := strings.ToUpper(strings.ReplaceAll(m[2], "-", ":"))
		if mac != "" && !strings.Contains(strings.ToLower(line), "incomplete") {
			out[ip] = mac
		}
	}
	return out
}
