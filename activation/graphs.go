package activation

import "time"

// Unit names. The collaborator daemons keep their distribution names so the
// rendered files replace the packaged units.
const (
	NodeUnit    = "meshup-node"
	GatewayUnit = "meshup-gateway"
	DhcpDnsUnit = "dnsmasq"
	NtpUnit     = "chrony"
)

// DefaultBinPath is where deployment installs the meshup binary.
const DefaultBinPath = "/usr/local/bin/meshup"

// restartDelay is the short fixed delay between supervisor retries.
const restartDelay = 5 * time.Second

// NodeGraph declares the node role's supervision: one oneshot bring-up unit
// the supervisor restarts on fatal exit, with a bounded budget. Boot-order
// races with the wireless driver are the sequencer's own problem; no
// supervisor edge can express "the radio has enumerated".
//
// The role oneshots carry a restart policy, so they must not linger after
// exit: systemd refuses Restart= on a RemainAfterExit oneshot. Dependents
// order on the completed start job instead.
func NodeGraph(bin string) Graph {
	if bin == "" {
		bin = DefaultBinPath
	}
	return Graph{
		Units: []Unit{{
			Name:               NodeUnit,
			Description:        "Mesh node network bring-up",
			Type:               "oneshot",
			ExecStart:          bin + " node up",
			Restart:            "on-failure",
			RestartSec:         restartDelay,
			StartLimitInterval: 10 * time.Minute,
			StartLimitBurst:    10,
			WantedBy:           "multi-user.target",
		}},
	}
}

// GatewayGraph declares the gateway role's supervision: the convergence
// applier runs to completion first, then the DHCP/DNS and NTP servers start
// and stay up. Both servers hard-require the applier, so a lease is never
// offered before the gateway address exists.
func GatewayGraph(bin string) Graph {
	if bin == "" {
		bin = DefaultBinPath
	}
	return Graph{
		Units: []Unit{
			{
				Name:               GatewayUnit,
				Description:        "Mesh gateway convergence",
				Type:               "oneshot",
				ExecStart:          bin + " gateway apply",
				Restart:            "on-failure",
				RestartSec:         restartDelay,
				StartLimitInterval: 10 * time.Minute,
				StartLimitBurst:    10,
				WantedBy:           "multi-user.target",
			},
			{
				Name:        DhcpDnsUnit,
				Description: "Mesh DHCP and DNS service",
				Type:        "simple",
				ExecStart:   "/usr/sbin/dnsmasq --keep-in-foreground",
				Restart:     "always",
				RestartSec:  restartDelay,
				WantedBy:    "multi-user.target",
			},
			{
				Name:        NtpUnit,
				Description: "Mesh NTP service",
				Type:        "simple",
				ExecStart:   "/usr/sbin/chronyd -d",
				Restart:     "always",
				RestartSec:  restartDelay,
				WantedBy:    "multi-user.target",
			},
		},
		Edges: []Edge{
			{Unit: DhcpDnsUnit, Prerequisite: GatewayUnit, Relation: RelationRequires},
			{Unit: DhcpDnsUnit, Prerequisite: GatewayUnit, Relation: RelationAfter},
			{Unit: NtpUnit, Prerequisite: GatewayUnit, Relation: RelationRequires},
			{Unit: NtpUnit, Prerequisite: GatewayUnit, Relation: RelationAfter},
		},
	}
}
