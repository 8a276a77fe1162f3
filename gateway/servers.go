package gateway

import (
	"fmt"
	"strings"
	"time"
)

// DnsmasqConf renders the DHCP/DNS server configuration for the converged
// gateway. The server's protocol logic stays external; this system only
// hands it the derived range and options.
func (c Config) DnsmasqConf() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", c.MeshInterface)
	b.WriteString("bind-interfaces\n")
	fmt.Fprintf(&b, "domain=%s\n", c.Domain)
	fmt.Fprintf(&b, "dhcp-range=%s,%s,%s,%s\n", c.RangeStart, c.RangeEnd, c.Netmask, leaseSpec(c.LeaseTime))
	fmt.Fprintf(&b, "dhcp-option=option:router,%s\n", c.Address.Addr())
	fmt.Fprintf(&b, "dhcp-option=option:dns-server,%s\n", c.Address.Addr())
	return []byte(b.String())
}

// ChronyConf renders the NTP server drop-in: serve the mesh subnet and keep
// a local stratum so time service survives an isolated uplink.
func (c Config) ChronyConf() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "allow %s\n", c.AllowedSubnet)
	b.WriteString("local stratum 8\n")
	return []byte(b.String())
}

// leaseSpec renders a lease duration in a form the DHCP server accepts.
func leaseSpec(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}
