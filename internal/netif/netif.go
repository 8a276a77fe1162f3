// Package netif queries and mutates link state for named network
// interfaces: existence, bringing links up, address assignment, flush, and
// address listing. It is the only component that touches kernel link state;
// everything above it works through capability interfaces so the sequencers
// stay testable without netlink access.
package netif

import "errors"

// ErrAbsent marks an operation attempted against an interface that does not
// exist. Callers test with errors.Is: the bootstrap sequencer polls
// existence until this clears, the convergence applier treats it as its one
// fatal condition.
var ErrAbsent = errors.New("interface absent")
