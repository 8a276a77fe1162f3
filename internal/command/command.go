// Package command runs the external helper programs this system drives
// (dhclient, resolvectl, ping, chronyc, rfkill, sysctl, iptables-save) as
// bounded child processes.
package command

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a program and returns its combined output. Adapters hold
// a Runner field so tests can substitute a recording implementation.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// System is the production Runner. Failures carry the trimmed process
// output, which is usually the only diagnostic these tools emit.
func System(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w (output: %q)", commandLine(name, args), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Available reports whether a program resolves on PATH. Adapters with a
// fallback path (resolvectl vs. resolver file) use this to pick a branch
// before spending a child process on it.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
