// Package timesync forces the chrony daemon through an immediate correction
// cycle: step the clock, burst a few exchanges, read back tracking state.
// Every call is independently best-effort; clock correctness is not a
// precondition for network usability.
package timesync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"meshup/internal/command"

	"github.com/beevik/ntp"
)

// Syncer drives chronyc(1) and samples offsets over NTP.
type Syncer struct {
	run   command.Runner
	query func(host string) (*ntp.Response, error)
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRunner substitutes the process runner.
func WithRunner(r command.Runner) Option {
	return func(s *Syncer) { s.run = r }
}

// WithQuery substitutes the NTP query used by Offset.
func WithQuery(q func(host string) (*ntp.Response, error)) Option {
	return func(s *Syncer) { s.query = q }
}

// New creates a chrony-backed time sync forcer.
func New(opts ...Option) *Syncer {
	s := &Syncer{run: command.System, query: ntp.Query}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step requests an immediate clock step, abandoning the slow slew. Boards
// without a hardware clock boot years in the past; slewing that away would
// take weeks.
func (s *Syncer) Step(ctx context.Context) error {
	if _, err := s.run(ctx, "chronyc", "-a", "makestep"); err != nil {
		return fmt.Errorf("step clock: %w", err)
	}
	return nil
}

// Burst requests a short burst of NTP exchanges to tighten the estimate.
func (s *Syncer) Burst(ctx context.Context) error {
	if _, err := s.run(ctx, "chronyc", "-a", "burst", "4/4"); err != nil {
		return fmt.Errorf("burst sync: %w", err)
	}
	return nil
}

// Tracking returns chrony's tracking report as raw key-value text for the
// run log. Not parsed here.
func (s *Syncer) Tracking(ctx context.Context) (string, error) {
	out, err := s.run(ctx, "chronyc", "tracking")
	if err != nil {
		return "", fmt.Errorf("read tracking state: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Offset samples the clock offset against an NTP server directly, bypassing
// chrony. Used after a forced sync to record how far off the node still is
// from the supervisor's clock.
func (s *Syncer) Offset(host string) (time.Duration, error) {
	resp, err := s.query(host)
	if err != nil {
		return 0, fmt.Errorf("query ntp server %s: %w", host, err)
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("ntp response from %s: %w", host, err)
	}
	return resp.ClockOffset, nil
}
