// Package config loads the daemon's YAML configuration file, grounded on
// the example pack's settings-file conventions: plain structs tagged for
// gopkg.in/yaml.v3, defaults applied for anything the file leaves zero.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's top-level configuration. FlowControlLimit is
// parsed and defaulted but not applied; queues park at pty.FlowControlLimit.
type Config struct {
	Socket           string `yaml:"socket,omitempty"`
	TickInterval     string `yaml:"tickInterval,omitempty"`
	FlowControlLimit int    `yaml:"flowControlLimit,omitempty"`
	Bridge           bool   `yaml:"bridge,omitempty"`
	LogLevel         string `yaml:"logLevel,omitempty"`
}

const (
	defaultSocket           = "/run/ptyd.sock"
	defaultTickInterval     = "100ms"
	defaultFlowControlLimit = 64
	defaultLogLevel         = "info"
)

// Default returns the configuration a daemon launched with no file at all
// should use.
func Default() *Config {
	return &Config{
		Socket:           defaultSocket,
		TickInterval:     defaultTickInterval,
		FlowControlLimit: defaultFlowControlLimit,
		LogLevel:         defaultLogLevel,
	}
}

// Load reads and parses a YAML config file at path, filling in defaults for
// any field the file leaves unset. A missing file is not an error: it
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, err
	}
	applyOverrides(cfg, &fromFile)
	return cfg, nil
}

func applyOverrides(cfg, override *Config) {
	if override.Socket != "" {
		cfg.Socket = override.Socket
	}
	if override.TickInterval != "" {
		cfg.TickInterval = override.TickInterval
	}
	if override.FlowControlLimit != 0 {
		cfg.FlowControlLimit = override.FlowControlLimit
	}
	if override.LogLevel != "" {
		cfg.LogLevel = override.LogLevel
	}
	cfg.Bridge = override.Bridge
}

// Tick parses TickInterval, falling back to the daemon default on a bad or
// empty value.
func (c *Config) Tick() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(defaultTickInterval)
	}
	return d
}
