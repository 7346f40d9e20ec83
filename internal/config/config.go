// Package config loads cansock settings with koanf/v2.
//
// Layers, lowest precedence first: built-in defaults, an optional YAML file,
// CANSOCK_* environment variables, then explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kstaniek/go-cansock/internal/logging"
)

const envPrefix = "CANSOCK_"

// Config holds the complete cansock configuration.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	MDNS    MDNSConfig    `koanf:"mdns"`
	Dump    DumpConfig    `koanf:"dump"`
	TX      TXConfig      `koanf:"tx"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is text or json.
	Format string `koanf:"format"`
}

type MetricsConfig struct {
	// Addr is the Prometheus listen address; empty disables the exporter.
	Addr string `koanf:"addr"`
	// Interval between metrics_snapshot log lines; zero disables them.
	Interval time.Duration `koanf:"interval"`
}

type MDNSConfig struct {
	Enable bool   `koanf:"enable"`
	Name   string `koanf:"name"`
}

// DumpConfig tunes the receive loop of the dump command.
type DumpConfig struct {
	Loopback bool          `koanf:"loopback"`
	Own      bool          `koanf:"own"`
	Timeout  time.Duration `koanf:"timeout"`
	Buffer   int           `koanf:"buffer"`
	// Policy is what happens to a subscriber whose queue is full: drop or kick.
	Policy string `koanf:"policy"`
}

type TXConfig struct {
	// Queue is the TX writer buffer in frames.
	Queue int `koanf:"queue"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{},
		MDNS:    MDNSConfig{},
		Dump:    DumpConfig{Loopback: true, Timeout: 250 * time.Millisecond, Buffer: 256, Policy: "drop"},
		TX:      TXConfig{Queue: 64},
	}
}

// Load builds the configuration. path may be empty to skip the file layer;
// flags holds koanf keys for flags the user set explicitly.
func Load(path string, flags map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}
	// CANSOCK_DUMP_TIMEOUT -> dump.timeout
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}
	for key, val := range flags {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("set flag %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKeyMapper strips the prefix, lowercases, and maps _ to the key delimiter.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

func loadDefaults(k *koanf.Koanf, d *Config) error {
	defaultMap := map[string]any{
		"log.level":        d.Log.Level,
		"log.format":       d.Log.Format,
		"metrics.addr":     d.Metrics.Addr,
		"metrics.interval": d.Metrics.Interval.String(),
		"mdns.enable":      d.MDNS.Enable,
		"mdns.name":        d.MDNS.Name,
		"dump.loopback":    d.Dump.Loopback,
		"dump.own":         d.Dump.Own,
		"dump.timeout":     d.Dump.Timeout.String(),
		"dump.buffer":      d.Dump.Buffer,
		"dump.policy":      d.Dump.Policy,
		"tx.queue":         d.TX.Queue,
	}
	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

// Validation errors.
var (
	ErrInvalidLogLevel  = errors.New("log.level must be debug, info, warn or error")
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
	ErrInvalidTimeout   = errors.New("dump.timeout must be >= 0")
	ErrInvalidBuffer    = errors.New("dump.buffer must be >= 1")
	ErrInvalidPolicy    = errors.New("dump.policy must be drop or kick")
	ErrInvalidQueue     = errors.New("tx.queue must be >= 1")
	ErrInvalidInterval  = errors.New("metrics.interval must be >= 0")
	ErrMDNSNeedsMetrics = errors.New("mdns.enable requires metrics.addr")
)

// Validate returns the first logical error in cfg.
func Validate(cfg *Config) error {
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return ErrInvalidLogLevel
	}
	if !logging.ValidFormat(cfg.Log.Format) {
		return ErrInvalidLogFormat
	}
	if cfg.Metrics.Interval < 0 {
		return ErrInvalidInterval
	}
	if cfg.MDNS.Enable && cfg.Metrics.Addr == "" {
		return ErrMDNSNeedsMetrics
	}
	if cfg.Dump.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if cfg.Dump.Buffer < 1 {
		return ErrInvalidBuffer
	}
	if cfg.Dump.Policy != "drop" && cfg.Dump.Policy != "kick" {
		return ErrInvalidPolicy
	}
	if cfg.TX.Queue < 1 {
		return ErrInvalidQueue
	}
	return nil
}
