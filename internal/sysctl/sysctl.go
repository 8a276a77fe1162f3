// Package sysctl flips kernel switches for the running system and persists
// them across reboots through a sysctl.d drop-in.
package sysctl

import (
	"context"
	"fmt"

	"meshup/internal/atomicfile"
	"meshup/internal/command"
)

const defaultDropIn = "/etc/sysctl.d/99-meshup.conf"

// ForwardingKey is the switch the gateway needs: without it the kernel
// silently drops every packet the mesh tries to route through the uplink.
const ForwardingKey = "net.ipv4.ip_forward"

// Controller applies and persists kernel parameters.
type Controller struct {
	run    command.Runner
	dropIn string
}

// Option configures a Controller.
type Option func(*Controller)

// WithRunner substitutes the process runner.
func WithRunner(r command.Runner) Option {
	return func(c *Controller) { c.run = r }
}

// WithDropIn overrides the persisted drop-in path.
func WithDropIn(path string) Option {
	return func(c *Controller) { c.dropIn = path }
}

// New creates a sysctl controller.
func New(opts ...Option) *Controller {
	c := &Controller{run: command.System, dropIn: defaultDropIn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set applies the parameter to the running kernel.
func (c *Controller) Set(ctx context.Context, key, value string) error {
	if _, err := c.run(ctx, "sysctl", "-w", key+"="+value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Persist writes the drop-in so the setting survives reboot, reporting
// whether the file changed. Re-runs against a correct file are no-ops.
func (c *Controller) Persist(key, value string) (bool, error) {
	content := fmt.Sprintf("%s = %s\n", key, value)
	changed, err := atomicfile.WriteIfChanged(c.dropIn, []byte(content), 0o644)
	if err != nil {
		return false, fmt.Errorf("persist %s: %w", key, err)
	}
	return changed, nil
}
