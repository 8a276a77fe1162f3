// Package radio lifts rfkill blocks from the wireless radio. Images cloned
// between boards sometimes carry a persistent soft block; clearing it is the
// first bring-up stage.
package radio

import (
	"context"
	"fmt"

	"meshup/internal/command"
)

// Control drives rfkill(8).
type Control struct {
	run command.Runner
}

// Option configures a Control.
type Option func(*Control)

// WithRunner substitutes the process runner.
func WithRunner(r command.Runner) Option {
	return func(c *Control) { c.run = r }
}

// New creates an rfkill-backed radio control.
func New(opts ...Option) *Control {
	c := &Control{run: command.System}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Unblock clears soft blocks on all wifi radios. Idempotent: unblocking an
// unblocked radio succeeds.
func (c *Control) Unblock(ctx context.Context) error {
	if _, err := c.run(ctx, "rfkill", "unblock", "wifi"); err != nil {
		return fmt.Errorf("unblock wifi radio: %w", err)
	}
	return nil
}
