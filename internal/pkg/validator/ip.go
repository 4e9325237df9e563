package validator

import (
	"net/netip"
	"strings"
)

// UnknownClient is the key used when the client address cannot be parsed.
const UnknownClient = "unknown"

// NormalizeIP 移除 IPv6 的 zone identifier (例如 fe80::1%eth0 -> fe80::1)
func NormalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if idx := strings.IndexByte(ip, '%'); idx != -1 {
		return ip[:idx]
	}
	return ip
}

// ClientKey maps a client address to the key it is rate limited under.
// IPv4 (and IPv4-mapped IPv6) addresses are used as is; IPv6 addresses are
// collapsed to their /64 since one host usually owns the whole prefix.
func ClientKey(ip string) string {
	addr, err := netip.ParseAddr(NormalizeIP(ip))
	if err != nil {
		return UnknownClient
	}
	addr = addr.Unmap()
	if addr.Is4() {
		return addr.String()
	}

	prefix, err := addr.Prefix(64)
	if err != nil {
		return UnknownClient
	}
	return prefix.String()
}
