// Package config provides configuration management for waypoint.
//
// The config file describes where the backend might live (hard default,
// forced endpoint, static hosts) and how hard to look for it (posture). What
// the client has learned at runtime lives in the database and can be reset
// without touching the config.
//
// Config file locations (priority order):
//  1. $WAYPOINT_CONFIG
//  2. ./waypoint.yaml
//  3. $XDG_CONFIG_HOME/waypoint/config.yaml
//  4. ~/.config/waypoint/config.yaml
//  5. /etc/waypoint/config.yaml
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"waypoint/internal/domain"
)

const (
	DefaultEndpoint   = "http://127.0.0.1:5000/api/"
	DefaultHealthPath = "health"
	DefaultDBPath     = "./waypoint.db"
	DefaultAPIAddr    = "127.0.0.1:7400"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:         1,
		Posture:         PostureBalanced,
		DefaultEndpoint: DefaultEndpoint,
		HealthPath:      DefaultHealthPath,
		Database:        DatabaseConfig{Path: DefaultDBPath},
		API:             APIConfig{Addr: DefaultAPIAddr},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	c.Posture = ParsePosture(string(c.Posture))
	if c.DefaultEndpoint == "" {
		c.DefaultEndpoint = DefaultEndpoint
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDBPath
	}
	if c.API.Addr == "" {
		c.API.Addr = DefaultAPIAddr
	}
}

// Validate checks endpoint fields and the static host list
func (c *Config) Validate() error {
	def, err := c.Default()
	if err != nil {
		return err
	}
	if _, err := c.Forced(); err != nil {
		return err
	}
	for _, h := range c.StaticHosts {
		if _, err := domain.ParseOverride(h, def); err != nil {
			return fmt.Errorf("static_hosts: %w", err)
		}
	}
	if c.Mode != nil && !c.Mode.Valid() {
		return fmt.Errorf("mode: unknown value %q", *c.Mode)
	}
	return nil
}

// Default returns the hard-default endpoint
func (c *Config) Default() (domain.Endpoint, error) {
	ep, err := domain.ParseEndpoint(c.DefaultEndpoint)
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("default_endpoint: %w", err)
	}
	return ep, nil
}

// Forced returns the forced endpoint, or nil when none is configured
func (c *Config) Forced() (*domain.Endpoint, error) {
	if strings.TrimSpace(c.ForcedEndpoint) == "" {
		return nil, nil
	}
	ep, err := domain.ParseEndpoint(c.ForcedEndpoint)
	if err != nil {
		return nil, fmt.Errorf("forced_endpoint: %w", err)
	}
	return &ep, nil
}

// EffectiveMode returns the mode to use (explicit > sweep flag > probe)
func (c *Config) EffectiveMode() Mode {
	if c.Mode != nil {
		return *c.Mode
	}
	if c.Sweep.Enabled {
		return ModeSweep
	}
	return ModeProbe
}

// EffectiveBehavior returns behavior profile with overrides applied
func (c *Config) EffectiveBehavior() BehaviorProfile {
	base := c.Posture.GetProfile()

	if c.Sweep.Timeout != nil {
		base.SweepTimeout = c.Sweep.Timeout.Duration()
	}

	if c.Behavior == nil {
		return base
	}

	// Apply overrides
	if c.Behavior.ProbeTimeout != nil {
		base.ProbeTimeout = c.Behavior.ProbeTimeout.Duration()
	}
	if c.Behavior.MaxConcurrentProbes != nil {
		base.MaxConcurrentProbes = *c.Behavior.MaxConcurrentProbes
	}
	if c.Behavior.SequentialScan != nil {
		base.SequentialScan = *c.Behavior.SequentialScan
	}
	if c.Behavior.SweepTimeout != nil {
		base.SweepTimeout = c.Behavior.SweepTimeout.Duration()
	}

	return base
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	behavior := c.EffectiveBehavior()

	summary := fmt.Sprintf("Mode: %s, Posture: %s\n", c.EffectiveMode(), c.Posture)
	summary += fmt.Sprintf("Default: %s", c.DefaultEndpoint)
	if c.ForcedEndpoint != "" {
		summary += fmt.Sprintf(", Forced: %s", c.ForcedEndpoint)
	}
	summary += fmt.Sprintf("\nProbe timeout: %s, Concurrency: %d, Sequential scan: %d, Static hosts: %d",
		behavior.ProbeTimeout, behavior.MaxConcurrentProbes, behavior.SequentialScan, len(c.StaticHosts))

	return summary
}
