package gateway

import (
	"context"
	"net/netip"

	"meshup/internal/firewall"
)

// Links observes and drives the mesh interface.
// Production: netif.Controller.
type Links interface {
	Exists(ctx context.Context, name string) (bool, error)
	Up(ctx context.Context, name string) error
	Flush(ctx context.Context, name string) error
	Assign(ctx context.Context, name string, prefix netip.Prefix) error
}

// Rules converges the firewall: Ensure inserts a rule unless an equivalent
// one already exists, Save persists the running set across reboots.
// Production: firewall.Controller.
type Rules interface {
	Ensure(ctx context.Context, r firewall.Rule) (added bool, err error)
	Save(ctx context.Context) error
}

// Sysctls applies kernel parameters now and persistently.
// Production: sysctl.Controller.
type Sysctls interface {
	Set(ctx context.Context, key, value string) error
	Persist(key, value string) (changed bool, err error)
}
