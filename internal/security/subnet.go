package security

import (
	"net"
	"strings"
)

// AnonymizeSubnet reduces an IP address to its network prefix: /24 for IPv4
// and /48 for IPv6. The prefix, not the full address, is what gets hashed and
// stored as an approved subnet, so the stored value can not identify a single
// host.
func AnonymizeSubnet(ipAddress string) string {
	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return ipAddress
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return ip.Mask(net.CIDRMask(48, 128)).String()
}
