// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Trident components.
//
// Configuration is loaded from a single file specified by:
//   - TRIDENT_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections
// (development, production) that override base values when the
// environment matches.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for a Trident deployment.
type Config struct {
	// Environment identifies the deployment type (development, production).
	Environment Environment `yaml:"environment"`

	// Encoder configures the stage-0 encoder.
	Encoder EncoderConfig `yaml:"encoder"`

	// Relay configures the stage-1 relay.
	Relay RelayConfig `yaml:"relay"`

	// Arbiter configures the stage-2 arbiter.
	Arbiter ArbiterConfig `yaml:"arbiter"`

	// Bridge configures the client observation bridge.
	Bridge BridgeConfig `yaml:"bridge"`

	// EnvironmentOverrides contains per-environment overrides. These
	// are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Encoder *EncoderConfig `yaml:"encoder,omitempty"`
	Relay   *RelayConfig   `yaml:"relay,omitempty"`
	Arbiter *ArbiterConfig `yaml:"arbiter,omitempty"`
	Bridge  *BridgeConfig  `yaml:"bridge,omitempty"`
}

// EncoderConfig configures the encoder stage.
type EncoderConfig struct {
	// RelayAddress is where encoded packets are sent.
	// Default: 127.0.0.1:8002
	RelayAddress string `yaml:"relay_address"`

	// QueueCapacity bounds the transmit buffer. A full buffer rejects
	// new content rather than blocking the producer.
	// Default: 256
	QueueCapacity int `yaml:"queue_capacity"`
}

// RelayConfig configures the relay stage.
type RelayConfig struct {
	// ListenAddress is where the relay accepts packets from encoders.
	// Default: 127.0.0.1:8002
	ListenAddress string `yaml:"listen_address"`

	// ArbiterAddress is where re-verified packets are forwarded.
	// Default: 127.0.0.1:8003
	ArbiterAddress string `yaml:"arbiter_address"`
}

// ArbiterConfig configures the arbiter stage.
type ArbiterConfig struct {
	// ListenAddress is where the arbiter accepts packets from relays.
	// Default: 127.0.0.1:8003
	ListenAddress string `yaml:"listen_address"`

	// BridgeAddress is where sealed packets and verdicts are
	// republished. Default: 127.0.0.1:8081
	BridgeAddress string `yaml:"bridge_address"`

	// KeyFile is the path to the 32-byte consensus signing secret. If
	// empty, the arbiter generates an ephemeral secret at startup, so
	// signatures do not survive a restart.
	KeyFile string `yaml:"key_file"`
}

// BridgeConfig configures the client observation bridge.
type BridgeConfig struct {
	// IngestAddress is where the bridge accepts republished packets
	// and verdicts from the arbiter. Default: 127.0.0.1:8081
	IngestAddress string `yaml:"ingest_address"`

	// HTTPAddress is where the bridge serves websocket upgrades and
	// the static observer page. Default: 127.0.0.1:8080
	HTTPAddress string `yaml:"http_address"`

	// StaticRoot is the directory served to plain HTTP requests. If
	// empty, non-upgrade requests get a minimal built-in status page.
	StaticRoot string `yaml:"static_root"`

	// MaxClients bounds concurrent websocket observers. Connections
	// over the limit are refused with 503. Default: 10
	MaxClients int `yaml:"max_clients"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file; commands that run without
// a file (local demos) use them directly.
func Default() *Config {
	return &Config{
		Environment: Development,
		Encoder: EncoderConfig{
			RelayAddress:  "127.0.0.1:8002",
			QueueCapacity: 256,
		},
		Relay: RelayConfig{
			ListenAddress:  "127.0.0.1:8002",
			ArbiterAddress: "127.0.0.1:8003",
		},
		Arbiter: ArbiterConfig{
			ListenAddress: "127.0.0.1:8003",
			BridgeAddress: "127.0.0.1:8081",
		},
		Bridge: BridgeConfig{
			IngestAddress: "127.0.0.1:8081",
			HTTPAddress:   "127.0.0.1:8080",
			MaxClients:    10,
		},
	}
}

// Load loads configuration from the TRIDENT_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit path.
// If TRIDENT_CONFIG is not set, this fails: there are no fallbacks or
// discovery.
func Load() (*Config, error) {
	configPath := os.Getenv("TRIDENT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TRIDENT_CONFIG environment variable not set; " +
			"set it to the path of your trident.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Encoder != nil {
		if overrides.Encoder.RelayAddress != "" {
			c.Encoder.RelayAddress = overrides.Encoder.RelayAddress
		}
		if overrides.Encoder.QueueCapacity != 0 {
			c.Encoder.QueueCapacity = overrides.Encoder.QueueCapacity
		}
	}

	if overrides.Relay != nil {
		if overrides.Relay.ListenAddress != "" {
			c.Relay.ListenAddress = overrides.Relay.ListenAddress
		}
		if overrides.Relay.ArbiterAddress != "" {
			c.Relay.ArbiterAddress = overrides.Relay.ArbiterAddress
		}
	}

	if overrides.Arbiter != nil {
		if overrides.Arbiter.ListenAddress != "" {
			c.Arbiter.ListenAddress = overrides.Arbiter.ListenAddress
		}
		if overrides.Arbiter.BridgeAddress != "" {
			c.Arbiter.BridgeAddress = overrides.Arbiter.BridgeAddress
		}
		if overrides.Arbiter.KeyFile != "" {
			c.Arbiter.KeyFile = overrides.Arbiter.KeyFile
		}
	}

	if overrides.Bridge != nil {
		if overrides.Bridge.IngestAddress != "" {
			c.Bridge.IngestAddress = overrides.Bridge.IngestAddress
		}
		if overrides.Bridge.HTTPAddress != "" {
			c.Bridge.HTTPAddress = overrides.Bridge.HTTPAddress
		}
		if overrides.Bridge.StaticRoot != "" {
			c.Bridge.StaticRoot = overrides.Bridge.StaticRoot
		}
		if overrides.Bridge.MaxClients != 0 {
			c.Bridge.MaxClients = overrides.Bridge.MaxClients
		}
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Production:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Encoder.QueueCapacity < 1 {
		return fmt.Errorf("encoder queue_capacity %d, must be at least 1", c.Encoder.QueueCapacity)
	}
	if c.Bridge.MaxClients < 1 {
		return fmt.Errorf("bridge max_clients %d, must be at least 1", c.Bridge.MaxClients)
	}
	for name, address := range map[string]string{
		"encoder.relay_address":  c.Encoder.RelayAddress,
		"relay.listen_address":   c.Relay.ListenAddress,
		"relay.arbiter_address":  c.Relay.ArbiterAddress,
		"arbiter.listen_address": c.Arbiter.ListenAddress,
		"arbiter.bridge_address": c.Arbiter.BridgeAddress,
		"bridge.ingest_address":  c.Bridge.IngestAddress,
		"bridge.http_address":    c.Bridge.HTTPAddress,
	} {
		if address == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}
