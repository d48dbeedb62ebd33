// Package resolver provides pure and subprocess-backed name/MAC resolution:
// reverse DNS, mDNS, NetBIOS, ARP→MAC, and OUI→vendor lookup (spec.md §4.1).
// Every subprocess call is killable on timeout; a missing binary is not an
// error, it simply yields no result.
package resolver

import (
	"context"
	"net"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// Names holds every resolved name slot for a device plus the priority-picked
// best one (netbios > mdns > dns > ip).
type Names struct {
	DNSName     string
	MDNSName    string
	NetBIOSName string
	Best        string
}

// ResolveDNS performs a reverse lookup with a hard 1s timeout, returning the
// first label with any trailing domain or ".local" suffix stripped.
func ResolveDNS(ip string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var resolver net.Resolver
	names, err := resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return "", false
	}
	name := strings.TrimSuffix(names[0], ".")
	if name == "" || name == ip {
		return "", false
	}
	name = strings.ReplaceAll(name, ".local", "")
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[:idx]
	}
	return name, true
}

var mdnsLineRe = regexp.MustCompile(`(?i)(\S+\.local)`)

// ResolveMDNS fires the platform mDNS responder with a short wall-clock
// budget: dns-sd on macOS, avahi-resolve on Linux. Returns the label before
// ".local", or false on timeout/missing tool.
func ResolveMDNS(ip string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if runtime.GOOS == "darwin" {
		out, err := exec.CommandContext(ctx, "dns-sd", "-G", "v4", ip).CombinedOutput()
		if err != nil {
			return "", false
		}
		for _, line := range strings.Split(string(out), "\n") {
			if strings.Contains(strings.ToLower(line), ".local") {
				if m := mdnsLineRe.FindStringSubmatch(line); m != nil {
					return strings.ReplaceAll(m[1], ".local", ""), true
				}
			}
		}
		return "", false
	}

	out, err := exec.CommandContext(ctx, "avahi-resolve", "-a", ip).Output()
	if err != nil {
		return "", false
	}
	parts := strings.Fields(strings.TrimSpace(string(out)))
	if len(parts) < 2 {
		return "", false
	}
	return strings.ReplaceAll(parts[1], ".local", ""), true
}

var netbiosLineRe = regexp.MustCompile(`^\s*(\S+)\s+<00>`)

// ResolveNetBIOS runs nmblookup -A, picking the <00> record that is not a
// group, falling back to a smbclient workgroup inquiry.
func ResolveNetBIOS(ip string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nmblookup", "-A", ip).Output()
	if err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if strings.Contains(line, "<00>") && !strings.Contains(line, "GROUP") {
				if m := netbiosLineRe.FindStringSubmatch(line); m != nil {
					return m[1], true
				}
			}
		}
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel2()
	out2, err := exec.CommandContext(ctx2, "smbclient", "-L", ip, "-N", "-g").Output()
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(out2), "\n") {
		if strings.HasPrefix(line, "Workgroup|") {
			parts := strings.Split(line, "|")
			if len(parts) >= 2 {
				return parts[1], true
			}
		}
	}
	return "", false
}

var macLineRe = regexp.MustCompile(`(?i)\b([0-9a-f]{2}(?::[0-9a-f]{2}){5})\b`)

// GetMAC parses `arp -n <ip>` output with a 1s timeout, returning the
// upper-case colon form.
func GetMAC(ip string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "arp", "-n", ip).Output()
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, ip) {
			continue
		}
		if m := macLineRe.FindString(line); m != "" {
			return strings.ToUpper(m), true
		}
	}
	return "", false
}

// OUIVendor normalizes mac to upper/colon form, takes the first three
// octets, and looks it up in the static OUI table. Returns "Unknown" if mac
// is empty or has no match.
func OUIVendor(mac string) string {
	if mac == "" {
		return "Unknown"
	}
	mac = strings.ToUpper(strings.ReplaceAll(mac, "-", ":"))
	parts := strings.Split(mac, ":")
	if len(parts) < 3 {
		return "Unknown"
	}
	oui := strings.Join(parts[:3], ":")
	if v, ok := ouiVendors[oui]; ok {
		return v
	}
	return "Unknown"
}

// ResolveAll resolves DNS, mDNS, and NetBIOS names for ip and picks Best in
// priority order netbios > mdns > dns > ip.
func ResolveAll(ip string) Names {
	var n Names
	if dns, ok := ResolveDNS(ip); ok {
		n.DNSName = dns
	}
	if mdns, ok := ResolveMDNS(ip); ok {
		n.MDNSName = mdns
	}
	if nb, ok := ResolveNetBIOS(ip); ok {
		n.NetBIOSName = nb
	}
	switch {
	case n.NetBIOSName != "":
		n.Best = n.NetBIOSName
	case n.MDNSName != "":
		n.Best = n.MDNSName
	case n.DNSName != "":
		n.Best = n.DNSName
	default:
		n.Best = ip
	}
	return n
}
