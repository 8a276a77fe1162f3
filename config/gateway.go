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
	defaultDomain    = "mesh"
	defaultLeaseTime = Duration(12 * time.Hour)

	defaultRulesPath    = "/etc/iptables/rules.v4"
	defaultSysctlDropIn = "/etc/sysctl.d/99-meshup.conf"
	defaultDnsmasqConf  = "/etc/dnsmasq.d/meshup.conf"
	defaultChronyConf   = "/etc/chrony/conf.d/meshup.conf"
)

// Gateway configures the convergence applier on the uplink host.
type Gateway struct {
	MeshInterface string `yaml:"mesh_interface"`
	Uplink        string `yaml:"uplink_interface"`
	MeshCIDR      string `yaml:"mesh_cidr"`

	Domain    string   `yaml:"domain,omitempty"`
	LeaseTime Duration `yaml:"lease_time,omitempty"`

	InterfaceWait Retry `yaml:"interface_wait"`

	RulesPath    string `yaml:"rules_path,omitempty"`
	SysctlDropIn string `yaml:"sysctl_drop_in,omitempty"`
	DnsmasqConf  string `yaml:"dnsmasq_conf,omitempty"`
	ChronyConf   string `yaml:"chrony_conf,omitempty"`

	RunLog    string `yaml:"run_log,omitempty"`
	HistoryDB string `yaml:"history_db,omitempty"`

	// Parsed by NormalizeGateway. Keeps the host bits, so both the gateway
	// address and the masked subnet can be derived from it.
	Address netip.Prefix `yaml:"-"`
}

// NormalizeGateway fills defaults and parses the mesh CIDR. It returns the
// normalized copy, leaving the input untouched.
func NormalizeGateway(cfg Gateway) (Gateway, error) {
	cfg.MeshInterface = strings.TrimSpace(cfg.MeshInterface)
	if !validInterfaceName(cfg.MeshInterface) {
		return Gateway{}, &ValidationError{Field: "mesh_interface", Message: "must name an interface (1-15 characters)"}
	}
	cfg.Uplink = strings.TrimSpace(cfg.Uplink)
	if !validInterfaceName(cfg.Uplink) {
		return Gateway{}, &ValidationError{Field: "uplink_interface", Message: "must name an interface (1-15 characters)"}
	}
	if cfg.Uplink == cfg.MeshInterface {
		return Gateway{}, &ValidationError{Field: "uplink_interface", Message: "must differ from mesh_interface"}
	}

	cfg.MeshCIDR = strings.TrimSpace(cfg.MeshCIDR)
	if cfg.MeshCIDR == "" {
		return Gateway{}, &ValidationError{Field: "mesh_cidr", Message: "gateway address in CIDR form is required"}
	}
	prefix, err := netip.ParsePrefix(cfg.MeshCIDR)
	if err != nil {
		return Gateway{}, &ValidationError{Field: "mesh_cidr", Message: fmt.Sprintf("invalid CIDR %q", cfg.MeshCIDR)}
	}
	if !prefix.Addr().Is4() {
		return Gateway{}, &ValidationError{Field: "mesh_cidr", Message: "mesh address must be IPv4"}
	}
	cfg.Address = prefix

	if cfg.Domain == "" {
		cfg.Domain = defaultDomain
	}
	if cfg.LeaseTime <= 0 {
		cfg.LeaseTime = defaultLeaseTime
	}
	if cfg.InterfaceWait.Attempts <= 0 {
		cfg.InterfaceWait.Attempts = defaultWaitAttempts
	}
	if cfg.InterfaceWait.Delay <= 0 {
		cfg.InterfaceWait.Delay = defaultWaitDelay
	}

	if cfg.RulesPath == "" {
		cfg.RulesPath = defaultRulesPath
	}
	if cfg.SysctlDropIn == "" {
		cfg.SysctlDropIn = defaultSysctlDropIn
	}
	if cfg.DnsmasqConf == "" {
		cfg.DnsmasqConf = defaultDnsmasqConf
	}
	if cfg.ChronyConf == "" {
		cfg.ChronyConf = defaultChronyConf
	}
	if cfg.RunLog == "" {
		cfg.RunLog = defaultRunLog
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = DefaultHistoryDB
	}
	return cfg, nil
}

// LoadGateway reads and normalizes a gateway config.
func LoadGateway(path string) (Gateway, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Gateway{}, fmt.Errorf("read gateway config: %w", err)
	}
	var cfg Gateway
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Gateway{}, fmt.Errorf("parse gateway config: %w", err)
	}
	return NormalizeGateway(cfg)
}

// Save writes the config to disk, creating directories as needed.
func (g Gateway) Save(path string) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal gateway config: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write gateway config: %w", err)
	}
	return nil
}
