package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"meshup/internal/atomicfile"

	"gopkg.in/yaml.v3"
)

const (
	defaultInternetProbe = "8.8.8.8"

	defaultWaitAttempts = 10
	defaultWaitDelay    = Duration(3 * time.Second)

	defaultPingProbes  = 3
	defaultPingDelay   = Duration(time.Second)
	defaultPingTimeout = Duration(time.Second)
)

// Node configures the bootstrap sequencer on a mesh member.
type Node struct {
	MeshInterface string `yaml:"mesh_interface"`
	Supervisor    string `yaml:"supervisor"`
	InternetProbe string `yaml:"internet_probe,omitempty"`

	InterfaceWait Retry    `yaml:"interface_wait"`
	Dhcp          Retry    `yaml:"dhcp"`
	Ping          Retry    `yaml:"ping"`
	PingTimeout   Duration `yaml:"ping_timeout,omitempty"`

	RunLog     string `yaml:"run_log,omitempty"`
	HistoryDB  string `yaml:"history_db,omitempty"`
	ResolvConf string `yaml:"resolv_conf,omitempty"`

	// Parsed by NormalizeNode.
	SupervisorAddr netip.Addr `yaml:"-"`
	InternetAddr   netip.Addr `yaml:"-"`
}

// NormalizeNode fills defaults and parses address fields. It returns the
// normalized copy, leaving the input untouched.
func NormalizeNode(cfg Node) (Node, error) {
	cfg.MeshInterface = strings.TrimSpace(cfg.MeshInterface)
	if !validInterfaceName(cfg.MeshInterface) {
		return Node{}, &ValidationError{Field: "mesh_interface", Message: "must name an interface (1-15 characters)"}
	}

	cfg.Supervisor = strings.TrimSpace(cfg.Supervisor)
	if cfg.Supervisor == "" {
		return Node{}, &ValidationError{Field: "supervisor", Message: "supervisor address is required"}
	}
	addr, err := netip.ParseAddr(cfg.Supervisor)
	if err != nil {
		return Node{}, &ValidationError{Field: "supervisor", Message: fmt.Sprintf("invalid address %q", cfg.Supervisor)}
	}
	cfg.SupervisorAddr = addr

	cfg.InternetProbe = strings.TrimSpace(cfg.InternetProbe)
	if cfg.InternetProbe == "" {
		cfg.InternetProbe = defaultInternetProbe
	}
	probe, err := netip.ParseAddr(cfg.InternetProbe)
	if err != nil {
		return Node{}, &ValidationError{Field: "internet_probe", Message: fmt.Sprintf("invalid address %q", cfg.InternetProbe)}
	}
	cfg.InternetAddr = probe

	if cfg.InterfaceWait.Attempts <= 0 {
		cfg.InterfaceWait.Attempts = defaultWaitAttempts
	}
	if cfg.InterfaceWait.Delay <= 0 {
		cfg.InterfaceWait.Delay = defaultWaitDelay
	}
	if cfg.Dhcp.Attempts <= 0 {
		cfg.Dhcp.Attempts = defaultWaitAttempts
	}
	if cfg.Dhcp.Delay <= 0 {
		cfg.Dhcp.Delay = defaultWaitDelay
	}
	if cfg.Ping.Attempts <= 0 {
		cfg.Ping.Attempts = defaultPingProbes
	}
	if cfg.Ping.Delay <= 0 {
		cfg.Ping.Delay = defaultPingDelay
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = defaultPingTimeout
	}

	if cfg.RunLog == "" {
		cfg.RunLog = defaultRunLog
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = DefaultHistoryDB
	}
	return cfg, nil
}

// LoadNode reads and normalizes a node config.
func LoadNode(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Node{}, fmt.Errorf("read node config: %w", err)
	}
	var cfg Node
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Node{}, fmt.Errorf("parse node config: %w", err)
	}
	return NormalizeNode(cfg)
}

// Save writes the config to disk, creating directories as needed.
func (n Node) Save(path string) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal node config: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write node config: %w", err)
	}
	return nil
}
