// Package dhcp drives the host's DHCP client for a single interface. The
// client's exit status is never trusted as proof of a lease; callers verify
// by reading the interface's addresses afterwards.
package dhcp

import (
	"context"
	"fmt"

	"meshup/internal/command"
)

// Client shells out to dhclient(8).
type Client struct {
	run command.Runner
}

// Option configures a Client.
type Option func(*Client)

// WithRunner substitutes the process runner. Tests use a recorder.
func WithRunner(r command.Runner) Option {
	return func(c *Client) { c.run = r }
}

// New creates a dhclient-backed lease client.
func New(opts ...Option) *Client {
	c := &Client{run: command.System}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Release gives up any lease held on the interface. This is expected to
// fail when no lease is held; callers treat the error as advisory.
func (c *Client) Release(ctx context.Context, iface string) error {
	if _, err := c.run(ctx, "dhclient", "-r", iface); err != nil {
		return fmt.Errorf("release lease on %s: %w", iface, err)
	}
	return nil
}

// Acquire requests one lease and exits (-1, no daemonizing); the bounded
// retry around it belongs to the caller.
func (c *Client) Acquire(ctx context.Context, iface string) error {
	if _, err := c.run(ctx, "dhclient", "-1", iface); err != nil {
		return fmt.Errorf("acquire lease on %s: %w", iface, err)
	}
	return nil
}

// Stop terminates a lingering client process attached to the interface so a
// stale daemon from a prior boot cannot fight the new acquisition.
func (c *Client) Stop(ctx context.Context, iface string) error {
	if _, err := c.run(ctx, "dhclient", "-x", iface); err != nil {
		return fmt.Errorf("stop stale client on %s: %w", iface, err)
	}
	return nil
}
