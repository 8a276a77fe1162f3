package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"meshup"
	"meshup/internal/atomicfile"
	"meshup/internal/firewall"
	"meshup/internal/netif"
	"meshup/internal/runlog"
	"meshup/internal/sysctl"
)

// Stage names as they appear in run logs and stored history.
const (
	StageInterfaceWait = "interface-wait"
	StageInterfaceUp   = "interface-up"
	StageAddressFlush  = "address-flush"
	StageAddressAssign = "address-assign"
	StageForwarding    = "ip-forwarding"
	StageFirewall      = "firewall-rules"
	StageServerConfigs = "server-configs"
	StageRulePersist   = "rule-persist"
)

// Applier converges the gateway host toward cfg. Only the interface wait
// is fatal; every other stage is best-effort and recorded.
//
// Applier is a concrete struct, not an interface. Tests construct a real
// Applier with fake leaf deps injected via With* options.
type Applier struct {
	cfg Config

	links   Links
	rules   Rules
	sysctls Sysctls
	log     meshup.Printer
	now     func() time.Time
}

// Option configures an Applier.
type Option func(*Applier)

// WithLinks injects a link controller.
func WithLinks(l Links) Option {
	return func(a *Applier) { a.links = l }
}

// WithRules injects a firewall controller.
func WithRules(r Rules) Option {
	return func(a *Applier) { a.rules = r }
}

// WithSysctls injects a sysctl controller.
func WithSysctls(s Sysctls) Option {
	return func(a *Applier) { a.sysctls = s }
}

// WithRunLog injects the run log sink.
func WithRunLog(l meshup.Printer) Option {
	return func(a *Applier) { a.log = l }
}

// WithClock injects the time source used for stage timing.
func WithClock(now func() time.Time) Option {
	return func(a *Applier) { a.now = now }
}

// New creates an Applier over the production adapters for cfg. Options
// replace individual dependencies; the firewall controller is constructed
// only when none is injected, so tests never touch iptables.
func New(cfg Config, opts ...Option) (*Applier, error) {
	a := &Applier{
		cfg:     cfg,
		links:   netif.New(),
		sysctls: sysctl.New(),
		log:     runlog.New(io.Discard, time.Now),
		now:     time.Now,
	}
	if cfg.SysctlDropIn != "" {
		a.sysctls = sysctl.New(sysctl.WithDropIn(cfg.SysctlDropIn))
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rules == nil {
		var fopts []firewall.Option
		if cfg.RulesPath != "" {
			fopts = append(fopts, firewall.WithRulesPath(cfg.RulesPath))
		}
		fw, err := firewall.New(fopts...)
		if err != nil {
			return nil, fmt.Errorf("firewall controller: %w", err)
		}
		a.rules = fw
	}
	return a, nil
}

func (a *Applier) stages() []meshup.Stage {
	return []meshup.Stage{
		{Name: StageInterfaceWait, Fatal: true, Run: a.interfaceWait},
		{Name: StageInterfaceUp, Run: a.interfaceUp},
		{Name: StageAddressFlush, Run: a.addressFlush},
		{Name: StageAddressAssign, Run: a.addressAssign},
		{Name: StageForwarding, Run: a.enableForwarding},
		{Name: StageFirewall, Run: a.ensureRules},
		{Name: StageServerConfigs, Run: a.writeServerConfigs},
		{Name: StageRulePersist, Run: a.persistRules},
	}
}

// Apply converges the host and returns the finalized record. Failure to
// find the mesh interface within the wait budget is fatal; everything else
// is recorded and the run continues. Persisting the rule set is the final
// stage, after all rules are in place.
func (a *Applier) Apply(ctx context.Context) *meshup.Run {
	a.log.Printf("gateway convergence starting on %s (uplink %s)", a.cfg.MeshInterface, a.cfg.Uplink)
	run := meshup.Execute(ctx, meshup.RoleGateway, a.now, a.log, a.stages())
	a.log.Printf("gateway convergence finished: %s", run.Status)
	return run
}

func (a *Applier) interfaceWait(ctx context.Context) (string, error) {
	iface := a.cfg.MeshInterface
	polls := 0
	err := a.cfg.Wait.Do(ctx, func(ctx context.Context) error {
		polls++
		present, err := a.links.Exists(ctx, iface)
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

func (a *Applier) interfaceUp(ctx context.Context) (string, error) {
	if err := a.links.Up(ctx, a.cfg.MeshInterface); err != nil {
		return "", fmt.Errorf("bring %s up: %w", a.cfg.MeshInterface, err)
	}
	return fmt.Sprintf("interface %s up", a.cfg.MeshInterface), nil
}

func (a *Applier) addressFlush(ctx context.Context) (string, error) {
	if err := a.links.Flush(ctx, a.cfg.MeshInterface); err != nil {
		return "", fmt.Errorf("flush %s: %w", a.cfg.MeshInterface, err)
	}
	return "stale addresses flushed", nil
}

func (a *Applier) addressAssign(ctx context.Context) (string, error) {
	if err := a.links.Assign(ctx, a.cfg.MeshInterface, a.cfg.Address); err != nil {
		return "", fmt.Errorf("assign %s: %w", a.cfg.Address, err)
	}
	return fmt.Sprintf("%s assigned to %s", a.cfg.Address, a.cfg.MeshInterface), nil
}

func (a *Applier) enableForwarding(ctx context.Context) (string, error) {
	if err := a.sysctls.Set(ctx, sysctl.ForwardingKey, "1"); err != nil {
		return "", fmt.Errorf("enable forwarding: %w", err)
	}
	changed, err := a.sysctls.Persist(sysctl.ForwardingKey, "1")
	if err != nil {
		return "", fmt.Errorf("persist forwarding: %w", err)
	}
	if changed {
		return "forwarding enabled and persisted", nil
	}
	return "forwarding enabled, already persistent", nil
}

func (a *Applier) ensureRules(ctx context.Context) (string, error) {
	rules := a.cfg.Rules()
	added := 0
	for _, r := range rules {
		inserted, err := a.rules.Ensure(ctx, r)
		if err != nil {
			return "", fmt.Errorf("ensure rule [%s]: %w", r, err)
		}
		if inserted {
			added++
		}
	}
	return fmt.Sprintf("%d rule(s) added, %d already present", added, len(rules)-added), nil
}

func (a *Applier) writeServerConfigs(_ context.Context) (string, error) {
	var wrote []string
	changed, err := atomicfile.WriteIfChanged(a.cfg.DnsmasqPath, a.cfg.DnsmasqConf(), 0o644)
	if err != nil {
		return "", fmt.Errorf("dnsmasq config: %w", err)
	}
	if changed {
		wrote = append(wrote, "dnsmasq")
	}
	changed, err = atomicfile.WriteIfChanged(a.cfg.ChronyPath, a.cfg.ChronyConf(), 0o644)
	if err != nil {
		return "", fmt.Errorf("chrony config: %w", err)
	}
	if changed {
		wrote = append(wrote, "chrony")
	}
	if len(wrote) == 0 {
		return "server configs unchanged", nil
	}
	return "wrote " + strings.Join(wrote, " and ") + " config", nil
}

func (a *Applier) persistRules(ctx context.Context) (string, error) {
	if err := a.rules.Save(ctx); err != nil {
		return "", fmt.Errorf("save rule store: %w", err)
	}
	return fmt.Sprintf("rule store saved to %s", a.cfg.RulesPath), nil
}
