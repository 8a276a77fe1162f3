package bootstrap

import (
	"context"
	"net/netip"
	"time"
)

// Links observes and drives the mesh interface.
// Production: netif.Controller.
type Links interface {
	Exists(ctx context.Context, name string) (bool, error)
	Up(ctx context.Context, name string) error
	Addresses(ctx context.Context, name string) ([]netip.Prefix, error)
}

// Radio lifts soft RF-kill blocks so the wireless interface can come up.
// Production: radio.Control.
type Radio interface {
	Unblock(ctx context.Context) error
}

// Leases drives the DHCP client on the mesh interface.
// Production: dhcp.Client.
type Leases interface {
	Stop(ctx context.Context, iface string) error
	Release(ctx context.Context, iface string) error
	Acquire(ctx context.Context, iface string) error
}

// Resolver pins upstream DNS for the mesh interface. Pin reports whether it
// had to fall back to rewriting the resolver file.
// Production: resolver.Pinner.
type Resolver interface {
	Pin(ctx context.Context, iface string, addr netip.Addr) (fallback bool, err error)
}

// Pinger sends network-layer echo probes.
// Production: pinger.Pinger.
type Pinger interface {
	Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) error
}

// TimeSyncer forces clock corrections through the local NTP daemon and
// samples the residual offset against a server.
// Production: timesync.Syncer.
type TimeSyncer interface {
	Step(ctx context.Context) error
	Burst(ctx context.Context) error
	Tracking(ctx context.Context) (string, error)
	Offset(host string) (time.Duration, error)
}

// RunLog records operator-facing progress lines.
// Production: runlog.Logger appending to the run log file.
type RunLog interface {
	Printf(format string, args ...any)
}
