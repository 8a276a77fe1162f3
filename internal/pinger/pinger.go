// Package pinger answers "does this address respond to echo" with the
// system ping utility, one probe per call. Raw ICMP sockets would need
// CAP_NET_RAW for the whole process; ping already carries the capability.
package pinger

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"time"

	"meshup/internal/command"
)

// Pinger sends network-layer echo probes.
type Pinger struct {
	run command.Runner
}

// Option configures a Pinger.
type Option func(*Pinger)

// WithRunner substitutes the process runner.
func WithRunner(r command.Runner) Option {
	return func(p *Pinger) { p.run = r }
}

// New creates a ping-backed reachability prober.
func New(opts ...Option) *Pinger {
	p := &Pinger{run: command.System}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ping sends a single echo request and waits up to timeout for the reply.
// A nil return means the target answered.
func (p *Pinger) Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) error {
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	if _, err := p.run(ctx, "ping", "-c", "1", "-W", strconv.Itoa(secs), addr.String()); err != nil {
		return fmt.Errorf("ping %s: %w", addr, err)
	}
	return nil
}
