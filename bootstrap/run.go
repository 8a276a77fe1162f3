package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"meshup"
	"meshup/internal/netif"
)

// Stage names as they appear in run logs and stored history.
const (
	StageRadioUnblock    = "radio-unblock"
	StageInterfaceWait   = "interface-wait"
	StageInterfaceUp     = "interface-up"
	StageStaleClient     = "stale-client-cleanup"
	StageDhcpAcquire     = "dhcp-acquire"
	StageDnsPin          = "dns-pin"
	StageSupervisorReach = "supervisor-reachability"
	StageTimeSync        = "time-sync"
	StageInternetCheck   = "internet-check"
)

// LeaseRecord notes the address observed on the interface after a
// successful acquisition. Held for the duration of the run, never persisted.
type LeaseRecord struct {
	Interface  string
	Address    netip.Prefix
	AcquiredAt time.Time
}

func (s *Sequencer) stages() []meshup.Stage {
	return []meshup.Stage{
		{Name: StageRadioUnblock, Run: s.radioUnblock},
		{Name: StageInterfaceWait, Fatal: true, Run: s.interfaceWait},
		{Name: StageInterfaceUp, Run: s.interfaceUp},
		{Name: StageStaleClient, Run: s.staleClientCleanup},
		{Name: StageDhcpAcquire, Fatal: true, Run: s.dhcpAcquire},
		{Name: StageDnsPin, Run: s.dnsPin},
		{Name: StageSupervisorReach, Run: s.supervisorReachability},
		{Name: StageTimeSync, Run: s.timeSyncAll},
		{Name: StageInternetCheck, Run: s.internetCheck},
	}
}

// Run executes the bring-up sequence and returns the finalized record.
// Only interface-wait and dhcp-acquire halt the sequence when they fail.
func (s *Sequencer) Run(ctx context.Context) *meshup.Run {
	s.haveLease = false
	s.log.Printf("node bootstrap starting on %s", s.cfg.MeshInterface)
	run := meshup.Execute(ctx, meshup.RoleNode, s.now, s.log, s.stages())
	s.log.Printf("node bootstrap finished: %s", run.Status)
	return run
}

func (s *Sequencer) radioUnblock(ctx context.Context) (string, error) {
	if err := s.radio.Unblock(ctx); err != nil {
		return "", fmt.Errorf("unblock wireless radio: %w", err)
	}
	return "wireless radio unblocked", nil
}

func (s *Sequencer) interfaceWait(ctx context.Context) (string, error) {
	iface := s.cfg.MeshInterface
	polls := 0
	err := s.cfg.InterfaceWait.Policy().Do(ctx, func(ctx context.Context) error {
		polls++
		present, err := s.links.Exists(ctx, iface)
		if err != nil {
			return err
		}
		if !present {
			return netif.ErrAbsent
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("interface %q never appeared: %w", iface, err)
	}
	return fmt.Sprintf("interface %s present after %d poll(s)", iface, polls), nil
}

func (s *Sequencer) interfaceUp(ctx context.Context) (string, error) {
	if err := s.links.Up(ctx, s.cfg.MeshInterface); err != nil {
		return "", fmt.Errorf("bring %s up: %w", s.cfg.MeshInterface, err)
	}
	return fmt.Sprintf("interface %s up", s.cfg.MeshInterface), nil
}

func (s *Sequencer) staleClientCleanup(ctx context.Context) (string, error) {
	if err := s.leases.Stop(ctx, s.cfg.MeshInterface); err != nil {
		return "", fmt.Errorf("stop stale client: %w", err)
	}
	return "stale client processes stopped", nil
}

func (s *Sequencer) dhcpAcquire(ctx context.Context) (string, error) {
	iface := s.cfg.MeshInterface

	// Expected to fail when no lease is held.
	if err := s.leases.Release(ctx, iface); err != nil {
		s.log.Printf("lease release on %s failed, continuing: %v", iface, err)
	}

	attempts := 0
	err := s.cfg.Dhcp.Policy().Do(ctx, func(ctx context.Context) error {
		attempts++
		if err := s.leases.Acquire(ctx, iface); err != nil {
			return err
		}
		// The client exiting zero does not prove a lease; the address
		// bound on the interface is the ground truth.
		addrs, err := s.links.Addresses(ctx, iface)
		if err != nil {
			return err
		}
		if len(addrs) == 0 {
			return fmt.Errorf("client exited clean but %s holds no address", iface)
		}
		s.lease = LeaseRecord{Interface: iface, Address: addrs[0], AcquiredAt: s.now()}
		s.haveLease = true
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("no lease on %q: %w", iface, err)
	}
	return fmt.Sprintf("lease %s on attempt %d", s.lease.Address, attempts), nil
}

func (s *Sequencer) dnsPin(ctx context.Context) (string, error) {
	addr := s.cfg.SupervisorAddr
	fallback, err := s.resolver.Pin(ctx, s.cfg.MeshInterface, addr)
	if err != nil {
		return "", fmt.Errorf("pin resolver to %s: %w", addr, err)
	}
	if fallback {
		// The live resolver control was unavailable; the node still resolves
		// but the run must say so.
		return "", fmt.Errorf("resolver pinned to %s via resolver file, live resolver control unavailable", addr)
	}
	return fmt.Sprintf("resolver pinned to %s", addr), nil
}

func (s *Sequencer) supervisorReachability(ctx context.Context) (string, error) {
	addr := s.cfg.SupervisorAddr
	err := s.cfg.Ping.Policy().Do(ctx, func(ctx context.Context) error {
		return s.pinger.Ping(ctx, addr, s.cfg.PingTimeout.Std())
	})
	if err != nil {
		return "", fmt.Errorf("supervisor %s unreachable: %w", addr, err)
	}
	return fmt.Sprintf("supervisor %s reachable", addr), nil
}

// timeSyncAll runs step, burst, and tracking as independent best-effort
// calls; their failures are collected on one line so the run log stays
// greppable. The offset sample against the supervisor is advisory only —
// it lands in the detail either way and never degrades the stage.
func (s *Sequencer) timeSyncAll(ctx context.Context) (string, error) {
	var failures []string
	if err := s.timeSync.Step(ctx); err != nil {
		failures = append(failures, fmt.Sprintf("step: %v", err))
	}
	if err := s.timeSync.Burst(ctx); err != nil {
		failures = append(failures, fmt.Sprintf("burst: %v", err))
	}
	tracking, err := s.timeSync.Tracking(ctx)
	if err != nil {
		failures = append(failures, fmt.Sprintf("tracking: %v", err))
	}

	offsetNote := ""
	if offset, err := s.timeSync.Offset(s.cfg.SupervisorAddr.String()); err != nil {
		offsetNote = fmt.Sprintf("offset vs supervisor unavailable: %v", err)
	} else {
		offsetNote = fmt.Sprintf("offset vs supervisor %s", offset.Round(time.Millisecond))
	}

	if len(failures) > 0 {
		s.log.Printf("%s", offsetNote)
		return "", errors.New(strings.Join(failures, "; "))
	}
	return fmt.Sprintf("%s; %s", firstLine(tracking), offsetNote), nil
}

// internetCheck is informational: an isolated mesh is still a working mesh,
// so an unreachable internet never degrades the run.
func (s *Sequencer) internetCheck(ctx context.Context) (string, error) {
	addr := s.cfg.InternetAddr
	err := s.cfg.Ping.Policy().Do(ctx, func(ctx context.Context) error {
		return s.pinger.Ping(ctx, addr, s.cfg.PingTimeout.Std())
	})
	if err != nil {
		return fmt.Sprintf("internet unreachable via %s: %v", addr, err), nil
	}
	return fmt.Sprintf("internet reachable via %s", addr), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
