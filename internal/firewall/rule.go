// Package firewall holds the convergent firewall rule model. Every rule has
// an idempotency key and every insertion is preceded by an exact-match
// existence check, so repeated convergence runs never duplicate kernel
// state.
package firewall

import (
	"fmt"
	"strings"
)

// Rule is one iptables rule: table, chain, match predicate, action.
type Rule struct {
	Table  string
	Chain  string
	Match  []string // match tokens, e.g. -i wlan0 -o eth0
	Action string   // jump target, e.g. ACCEPT, MASQUERADE
}

// Key is the rule's idempotency key: table, chain, match, and action joined
// in order. Two rules with equal keys are the same rule as far as
// convergence is concerned.
func (r Rule) Key() string {
	parts := make([]string, 0, len(r.Match)+3)
	parts = append(parts, r.Table, r.Chain)
	parts = append(parts, r.Match...)
	parts = append(parts, r.Action)
	return strings.Join(parts, "|")
}

// Spec is the rulespec handed to iptables: match tokens then the jump.
func (r Rule) Spec() []string {
	spec := make([]string, 0, len(r.Match)+2)
	spec = append(spec, r.Match...)
	spec = append(spec, "-j", r.Action)
	return spec
}

// String renders the rule the way an operator would type it.
func (r Rule) String() string {
	return fmt.Sprintf("-t %s -A %s %s -j %s", r.Table, r.Chain, strings.Join(r.Match, " "), r.Action)
}
