// Package config loads medkit-proxy configuration.
//
// Precedence, highest first: MEDKIT_* environment variables, the YAML file,
// compiled defaults. Environment keys map "_" to nesting, so
// MEDKIT_LOG_LEVEL sets log.level. Devices are only read from the file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "MEDKIT_"

// ErrInvalid indicates a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all proxy configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" koanf:"log"`
	Discovery DiscoveryConfig `yaml:"discovery" koanf:"discovery"`
	Probe     ProbeConfig     `yaml:"probe" koanf:"probe"`
	Transport TransportConfig `yaml:"transport" koanf:"transport"`
	OTEL      OTELConfig      `yaml:"otel" koanf:"otel"`
	Devices   []DeviceConfig  `yaml:"devices" koanf:"-"`
}

// LogConfig configures operational and protocol logging.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" koanf:"format"` // "json" or "text"

	// Protocol is the path of a protocol capture file. Empty disables capture.
	Protocol string `yaml:"protocol" koanf:"protocol"`
}

// DiscoveryConfig configures mDNS discovery.
type DiscoveryConfig struct {
	Enabled   bool   `yaml:"enabled" koanf:"enabled"`
	Interface string `yaml:"interface" koanf:"interface"`
}

// ProbeConfig configures reachability probing.
type ProbeConfig struct {
	Interval time.Duration `yaml:"interval" koanf:"interval"`
	Timeout  time.Duration `yaml:"timeout" koanf:"timeout"`
}

// TransportConfig configures TCP ports.
type TransportConfig struct {
	Timeout  time.Duration `yaml:"timeout" koanf:"timeout"`
	MaxFrame uint32        `yaml:"maxframe" koanf:"maxframe"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint string `yaml:"endpoint" koanf:"endpoint"` // Empty disables OTLP export
	Service  string `yaml:"service" koanf:"service"`
}

// DeviceConfig declares a statically known device.
type DeviceConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Protocol string         `yaml:"protocol"`
	Children []DeviceConfig `yaml:"children"`
	Ports    []PortConfig   `yaml:"ports"`
}

// PortConfig declares one path to a device.
type PortConfig struct {
	Name      string `yaml:"name"`
	Address   string `yaml:"address"`
	Priority  int    `yaml:"priority"`
	Reachable bool   `yaml:"reachable"`
}

// Defaults returns a Config with compiled default values.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Probe: ProbeConfig{
			Interval: 10 * time.Second,
			Timeout:  2 * time.Second,
		},
		Transport: TransportConfig{
			Timeout:  10 * time.Second,
			MaxFrame: 65536,
		},
		OTEL: OTELConfig{
			Service: "medkit-proxy",
		},
	}
}

// Load reads the YAML file at path (optional when empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	if c.Probe.Interval <= 0 || c.Probe.Timeout <= 0 {
		return fmt.Errorf("%w: probe interval and timeout must be positive", ErrInvalid)
	}

	seen := make(map[string]bool)
	return validateDevices(c.Devices, seen)
}

func validateDevices(devices []DeviceConfig, seen map[string]bool) error {
	for i, d := range devices {
		if d.ID == "" {
			return fmt.Errorf("%w: devices[%d]: missing id", ErrInvalid, i)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate device id %q", ErrInvalid, d.ID)
		}
		seen[d.ID] = true

		for j, p := range d.Ports {
			if p.Address == "" {
				return fmt.Errorf("%w: device %q ports[%d]: missing address", ErrInvalid, d.ID, j)
			}
			if _, _, err := net.SplitHostPort(p.Address); err != nil {
				return fmt.Errorf("%w: device %q ports[%d]: %v", ErrInvalid, d.ID, j, err)
			}
		}
		if err := validateDevices(d.Children, seen); err != nil {
			return err
		}
	}
	return nil
}

// PortName returns the configured port name or one derived from the address.
func (p PortConfig) PortName() string {
	if p.Name != "" {
		return p.Name
	}
	return "tcp:" + p.Address
}
