package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version         int               `yaml:"version"`
	Mode            *Mode             `yaml:"mode,omitempty"` // nil = derive from sweep.enabled
	Posture         Posture           `yaml:"posture"`
	Behavior        *BehaviorOverride `yaml:"behavior,omitempty"`
	DefaultEndpoint string            `yaml:"default_endpoint"`
	ForcedEndpoint  string            `yaml:"forced_endpoint,omitempty"`
	HealthPath      string            `yaml:"health_path"`
	StaticHosts     []string          `yaml:"static_hosts,omitempty"`
	Database        DatabaseConfig    `yaml:"database"`
	Sweep           SweepConfig       `yaml:"sweep"`
	API             APIConfig         `yaml:"api"`
}

// BehaviorOverride allows overriding posture defaults
type BehaviorOverride struct {
	ProbeTimeout        *Duration `yaml:"probe_timeout,omitempty"`
	MaxConcurrentProbes *int      `yaml:"max_concurrent_probes,omitempty"`
	SequentialScan      *int      `yaml:"sequential_scan,omitempty"`
	SweepTimeout        *Duration `yaml:"sweep_timeout,omitempty"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SweepConfig controls the nmap live-host sweep of the device subnet
type SweepConfig struct {
	Enabled bool      `yaml:"enabled"`
	Timeout *Duration `yaml:"timeout,omitempty"`
	// Port restricts the sweep to hosts with this TCP port open
	Port int `yaml:"port,omitempty"`
}

// APIConfig holds operator API settings
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
