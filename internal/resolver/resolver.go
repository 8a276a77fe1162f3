// Package resolver pins the node's DNS upstream to the supervisor. The live
// resolver control (resolvectl) is preferred because it survives interface
// renumbering; hosts without it get the resolver file rewritten instead.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"meshup/internal/atomicfile"
	"meshup/internal/command"
)

const defaultResolvConf = "/etc/resolv.conf"

// Pinner sets the resolver for an interface.
type Pinner struct {
	run       command.Runner
	available func(string) bool
	path      string
}

// Option configures a Pinner.
type Option func(*Pinner)

// WithRunner substitutes the process runner.
func WithRunner(r command.Runner) Option {
	return func(p *Pinner) { p.run = r }
}

// WithAvailable substitutes PATH lookup.
func WithAvailable(f func(string) bool) Option {
	return func(p *Pinner) { p.available = f }
}

// WithResolvConf overrides the resolver file written by the fallback path.
func WithResolvConf(path string) Option {
	return func(p *Pinner) { p.path = path }
}

// New creates a resolver pinner.
func New(opts ...Option) *Pinner {
	p := &Pinner{
		run:       command.System,
		available: command.Available,
		path:      defaultResolvConf,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pin points the interface's resolver at addr. The returned flag reports
// that the fallback file write was used instead of resolvectl; callers
// record that as a degraded outcome.
func (p *Pinner) Pin(ctx context.Context, iface string, addr netip.Addr) (fallback bool, err error) {
	if p.available("resolvectl") {
		_, err := p.run(ctx, "resolvectl", "dns", iface, addr.String())
		if err == nil {
			return false, nil
		}
		slog.Debug("resolvectl failed, falling back to resolver file.", "interface", iface, "error", err)
	}

	line := fmt.Sprintf("nameserver %s\n", addr)
	if err := atomicfile.WriteFile(p.path, []byte(line), 0o644); err != nil {
		return true, fmt.Errorf("write resolver file: %w", err)
	}
	return true, nil
}
