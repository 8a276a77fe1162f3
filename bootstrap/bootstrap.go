// Package bootstrap brings a mesh node from cold boot to a usable network:
// radio unblocked, interface up and holding a DHCP lease, DNS pinned to the
// supervisor, clock stepped, reachability verified. The sequencer runs these
// stages in a fixed order, records one result per stage, and finalizes a
// single terminal status.
package bootstrap

import (
	"io"
	"time"

	"meshup/config"
	"meshup/internal/dhcp"
	"meshup/internal/netif"
	"meshup/internal/pinger"
	"meshup/internal/radio"
	"meshup/internal/resolver"
	"meshup/internal/runlog"
	"meshup/internal/timesync"
)

// Sequencer executes the node bring-up stages in order. Only interface-wait
// and dhcp-acquire end a run early; every other stage records its failure
// and the sequence continues.
//
// Sequencer is a concrete struct, not an interface. Tests construct a real
// Sequencer with fake leaf deps injected via With* options.
type Sequencer struct {
	cfg config.Node

	links    Links
	radio    Radio
	leases   Leases
	resolver Resolver
	pinger   Pinger
	timeSync TimeSyncer
	log      RunLog
	now      func() time.Time

	lease     LeaseRecord
	haveLease bool
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLinks injects a link controller.
func WithLinks(l Links) Option {
	return func(s *Sequencer) { s.links = l }
}

// WithRadio injects an RF-kill control.
func WithRadio(r Radio) Option {
	return func(s *Sequencer) { s.radio = r }
}

// WithLeases injects a DHCP client.
func WithLeases(l Leases) Option {
	return func(s *Sequencer) { s.leases = l }
}

// WithResolver injects a DNS pinner.
func WithResolver(r Resolver) Option {
	return func(s *Sequencer) { s.resolver = r }
}

// WithPinger injects a reachability prober.
func WithPinger(p Pinger) Option {
	return func(s *Sequencer) { s.pinger = p }
}

// WithTimeSyncer injects an NTP daemon control.
func WithTimeSyncer(t TimeSyncer) Option {
	return func(s *Sequencer) { s.timeSync = t }
}

// WithRunLog injects the run log sink.
func WithRunLog(l RunLog) Option {
	return func(s *Sequencer) { s.log = l }
}

// WithClock injects the time source used for stage timing.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// New creates a Sequencer over the production adapters for cfg.
// Options replace individual dependencies.
func New(cfg config.Node, opts ...Option) *Sequencer {
	s := &Sequencer{
		cfg:      cfg,
		links:    netif.New(),
		radio:    radio.New(),
		leases:   dhcp.New(),
		resolver: resolver.New(),
		pinger:   pinger.New(),
		timeSync: timesync.New(),
		log:      runlog.New(io.Discard, time.Now),
		now:      time.Now,
	}
	if cfg.ResolvConf != "" {
		s.resolver = resolver.New(resolver.WithResolvConf(cfg.ResolvConf))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lease returns the address observed during the last run's acquisition.
// The bool is false when no run acquired a lease yet.
func (s *Sequencer) Lease() (LeaseRecord, bool) {
	return s.lease, s.haveLease
}
