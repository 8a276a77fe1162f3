package firewall

import (
	"context"
	"fmt"

	"meshup/internal/atomicfile"
	"meshup/internal/command"

	"github.com/coreos/go-iptables/iptables"
)

const defaultRulesPath = "/etc/iptables/rules.v4"

// ipTables is the subset of go-iptables this package uses, narrowed so
// tests can substitute a fake.
type ipTables interface {
	Exists(table, chain string, rulespec ...string) (bool, error)
	Append(table, chain string, rulespec ...string) error
}

var _ ipTables = (*iptables.IPTables)(nil)

// Controller installs rules convergently and persists the resulting rule
// set across reboots.
type Controller struct {
	ipt       ipTables
	run       command.Runner
	rulesPath string
}

// Option configures a Controller.
type Option func(*Controller)

// WithIPTables substitutes the iptables handle. Tests use a fake.
func WithIPTables(ipt ipTables) Option {
	return func(c *Controller) { c.ipt = ipt }
}

// WithRunner substitutes the process runner used for iptables-save.
func WithRunner(r command.Runner) Option {
	return func(c *Controller) { c.run = r }
}

// WithRulesPath overrides the persisted rule store location.
func WithRulesPath(path string) Option {
	return func(c *Controller) { c.rulesPath = path }
}

// New creates an iptables-backed firewall controller.
func New(opts ...Option) (*Controller, error) {
	c := &Controller{run: command.System, rulesPath: defaultRulesPath}
	for _, opt := range opts {
		opt(c)
	}
	if c.ipt == nil {
		ipt, err := iptables.New()
		if err != nil {
			return nil, fmt.Errorf("create iptables handle: %w", err)
		}
		c.ipt = ipt
	}
	return c, nil
}

// Ensure installs the rule unless an equivalent rule already exists,
// reporting whether anything was added. The existence check is an
// exact-match list operation on the rule's spec, never a blind append.
func (c *Controller) Ensure(_ context.Context, r Rule) (bool, error) {
	exists, err := c.ipt.Exists(r.Table, r.Chain, r.Spec()...)
	if err != nil {
		return false, fmt.Errorf("check rule %s: %w", r, err)
	}
	if exists {
		return false, nil
	}
	if err := c.ipt.Append(r.Table, r.Chain, r.Spec()...); err != nil {
		return false, fmt.Errorf("append rule %s: %w", r, err)
	}
	return true, nil
}

// Save dumps the live rule set and writes it atomically to the platform
// rule store read at boot.
func (c *Controller) Save(ctx context.Context) error {
	out, err := c.run(ctx, "iptables-save")
	if err != nil {
		return fmt.Errorf("dump rules: %w", err)
	}
	if err := atomicfile.WriteFile(c.rulesPath, out, 0o640); err != nil {
		return fmt.Errorf("persist rules: %w", err)
	}
	return nil
}
