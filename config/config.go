// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the transport daemon configuration from YAML or
// TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/newsgate/rpc"
	"github.com/newsgate/rpc/logging"
	"github.com/newsgate/rpc/segmentation"
)

var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Config is the daemon configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
	Moderation ModerationConfig `yaml:"moderation" toml:"moderation"`
	Logging    logging.Config   `yaml:"logging" toml:"logging"`

	// Segmentation lists the segmenter plugins applied to search
	// expressions, in order.
	Segmentation []segmentation.Spec `yaml:"segmentation" toml:"segmentation"`
}

// ServerConfig selects where and how entities are served.
type ServerConfig struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	Transport       string        `yaml:"transport" toml:"transport"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
	Path string `yaml:"path" toml:"path"`
}

// ModerationConfig points at the moderation change log. An empty path
// disables it.
type ModerationConfig struct {
	Path     string `yaml:"path" toml:"path"`
	PoolSize int    `yaml:"pool_size" toml:"pool_size"`
}

// Default returns the configuration used for every unset field.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":9000",
			Transport:       rpc.DefaultTransport,
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Moderation: ModerationConfig{
			PoolSize: 4,
		},
		Logging: logging.Config{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. The format follows the extension: .yaml, .yml or
// .toml.
func Load(path string) (Config, error) {
	cfg := Default()

	// #nosec G304 -- path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		_, err = toml.Decode(string(data), &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("NEWSGATE_ADDR"); val != "" {
		cfg.Server.Addr = val
	}
	if val := os.Getenv("NEWSGATE_TRANSPORT"); val != "" {
		cfg.Server.Transport = val
	}
	if val := os.Getenv("NEWSGATE_METRICS_ADDR"); val != "" {
		cfg.Metrics.Addr = val
	}
	if val := os.Getenv("NEWSGATE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration: %w", err)
	}
	if c.Moderation.Path != "" && c.Moderation.PoolSize < 1 {
		return fmt.Errorf("moderation configuration: pool_size must be positive, got %d", c.Moderation.PoolSize)
	}
	for i, spec := range c.Segmentation {
		if strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("segmentation configuration: plugin %d has no name", i)
		}
	}
	return nil
}

// Validate checks the server section.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr is required")
	}
	if !rpc.HasTransport(c.Transport) {
		return fmt.Errorf("unknown transport %q (available: %s)",
			c.Transport, strings.Join(rpc.AvailableTransports(), ", "))
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

// Validate checks the metrics section.
func (c *MetricsConfig) Validate() error {
	if c.Addr != "" && !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with '/', got %q", c.Path)
	}
	return nil
}
