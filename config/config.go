// Package config loads the deployment configuration for both roles. Nodes
// read node.yaml, the gateway reads gateway.yaml, both under /etc/meshup by
// default. Values are provided at deployment time and normalized once;
// nothing is re-derived interactively at runtime.
package config

import (
	"fmt"
	"time"

	"meshup/internal/retry"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDir is where deployment drops the role configs.
	DefaultDir = "/etc/meshup"

	DefaultNodePath    = DefaultDir + "/node.yaml"
	DefaultGatewayPath = DefaultDir + "/gateway.yaml"

	// DefaultHistoryDB also serves commands that read history without
	// loading a role config.
	DefaultHistoryDB = "/var/lib/meshup/history.db"

	defaultRunLog = "/var/log/meshup/run.log"

	maxInterfaceNameLength = 15 // Linux kernel IFNAMSIZ limit
)

// ValidationError indicates an invalid or missing configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// Duration reads Go duration strings ("3s", "500ms") from YAML.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"3s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Retry bounds one polling loop.
type Retry struct {
	Attempts int      `yaml:"attempts"`
	Delay    Duration `yaml:"delay"`
}

// Policy converts the bounds into an executable retry policy.
func (r Retry) Policy() retry.Policy {
	return retry.Policy{Attempts: r.Attempts, Delay: r.Delay.Std()}
}

func validInterfaceName(name string) bool {
	return name != "" && len(name) <= maxInterfaceNameLength
}
