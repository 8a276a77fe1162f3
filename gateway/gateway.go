// Package gateway converges the uplink host: mesh interface addressed,
// IP forwarding enabled persistently, NAT and forward rules present exactly
// once, the rule set saved for reboot, and the DHCP/DNS and NTP server
// configs rendered. Re-running the applier after a successful run changes
// nothing observable.
package gateway

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"meshup/config"
	"meshup/internal/firewall"
	"meshup/internal/retry"
)

// DHCP range endpoints on the last octet of the gateway's address: hosts
// .50 through .200, clear of the gateway itself and statically addressed kit.
const (
	rangeStartHost = 50
	rangeEndHost   = 200
)

// Config is the derived, immutable input to one convergence run.
type Config struct {
	MeshInterface string
	Uplink        string

	Address       netip.Prefix // gateway address with its prefix length
	RangeStart    netip.Addr   // first leasable address
	RangeEnd      netip.Addr   // last leasable address
	Netmask       netip.Addr   // dotted-quad mask handed to the DHCP server
	AllowedSubnet netip.Prefix // masked network for NAT and NTP allow rules

	Domain    string
	LeaseTime time.Duration

	Wait retry.Policy // bounds the mesh interface wait

	RulesPath    string
	SysctlDropIn string
	DnsmasqPath  string
	ChronyPath   string
}

// Derive computes the converged network parameters from a normalized
// gateway config. Only /16 and /24 meshes are supported: the DHCP range
// spans the last octet of the gateway's address, which is meaningless for
// other prefix lengths, so those are rejected instead of yielding a
// degenerate single-address range.
func Derive(cfg config.Gateway) (Config, error) {
	prefix := cfg.Address
	bits := prefix.Bits()
	if bits != 16 && bits != 24 {
		return Config{}, &config.ValidationError{
			Field:   "mesh_cidr",
			Message: fmt.Sprintf("unsupported prefix length /%d, only /16 and /24 meshes are supported", bits),
		}
	}

	a4 := prefix.Addr().As4()
	start, end := a4, a4
	start[3] = rangeStartHost
	end[3] = rangeEndHost

	mask := net.CIDRMask(bits, 32)

	return Config{
		MeshInterface: cfg.MeshInterface,
		Uplink:        cfg.Uplink,
		Address:       prefix,
		RangeStart:    netip.AddrFrom4(start),
		RangeEnd:      netip.AddrFrom4(end),
		Netmask:       netip.AddrFrom4([4]byte(mask)),
		AllowedSubnet: prefix.Masked(),
		Domain:        cfg.Domain,
		LeaseTime:     cfg.LeaseTime.Std(),
		Wait:          cfg.InterfaceWait.Policy(),
		RulesPath:     cfg.RulesPath,
		SysctlDropIn:  cfg.SysctlDropIn,
		DnsmasqPath:   cfg.DnsmasqConf,
		ChronyPath:    cfg.ChronyConf,
	}, nil
}

// Rules returns the firewall rules a converged gateway carries, in apply
// order: mesh egress forward, uplink return forward restricted to
// established flows, and source NAT for mesh traffic leaving the uplink.
func (c Config) Rules() []firewall.Rule {
	return []firewall.Rule{
		{
			Table:  "filter",
			Chain:  "FORWARD",
			Match:  []string{"-i", c.MeshInterface, "-o", c.Uplink},
			Action: "ACCEPT",
		},
		{
			Table:  "filter",
			Chain:  "FORWARD",
			Match:  []string{"-i", c.Uplink, "-o", c.MeshInterface, "-m", "state", "--state", "RELATED,ESTABLISHED"},
			Action: "ACCEPT",
		},
		{
			Table:  "nat",
			Chain:  "POSTROUTING",
			Match:  []string{"-s", c.AllowedSubnet.String(), "-o", c.Uplink},
			Action: "MASQUERADE",
		},
	}
}
