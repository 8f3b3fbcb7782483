// Package common provides shared utilities for the CLI commands.
//
// It contains the YAML configuration shared by the standalone service
// binaries (holder, coordinator, registry) plus logger construction, to
// reduce duplication across cmd/ packages.
package common

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/TianCal/secure-aggregation-tutorial/protocol"
	"github.com/TianCal/secure-aggregation-tutorial/services"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration shared by all service binaries.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	PublicURL   string `yaml:"public_url"`
	MetricsAddr string `yaml:"metrics_addr"`
	RegistryURL string `yaml:"registry_url"`
	LogJSON     bool   `yaml:"log_json"`
	EnablePprof bool   `yaml:"pprof"`

	Protocol ProtocolConfig `yaml:"protocol"`
	Holder   HolderConfig   `yaml:"holder"`
	Registry RegistryConfig `yaml:"registry"`
}

// ProtocolConfig mirrors protocol.AggregationConfig in YAML form.
type ProtocolConfig struct {
	ValueMin       uint32 `yaml:"value_min"`
	ValueMax       uint32 `yaml:"value_max"`
	RequestTimeout string `yaml:"request_timeout"`
}

// HolderConfig contains holder-only settings.
type HolderConfig struct {
	// Value fixes the holder's private value. Nil draws one uniformly
	// from the protocol value range at startup.
	Value *uint32 `yaml:"value"`
}

// RegistryConfig contains registry-only settings.
type RegistryConfig struct {
	// Postgres enables the persistent roster store when Host is set;
	// otherwise the registry keeps the roster in memory.
	Postgres services.PostgresConfig `yaml:"postgres"`
}

// DefaultConfig returns the demo defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Protocol: ProtocolConfig{
			ValueMin:       5,
			ValueMax:       12,
			RequestTimeout: "10s",
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// AggregationConfig converts the YAML protocol section.
func (c *Config) AggregationConfig() (*protocol.AggregationConfig, error) {
	out := protocol.DefaultAggregationConfig()
	if c.Protocol.ValueMin != 0 || c.Protocol.ValueMax != 0 {
		out.ValueMin = protocol.Value(c.Protocol.ValueMin)
		out.ValueMax = protocol.Value(c.Protocol.ValueMax)
	}
	if c.Protocol.RequestTimeout != "" {
		d, err := time.ParseDuration(c.Protocol.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid request_timeout: %w", err)
		}
		out.RequestTimeout = d
	}
	return out, nil
}

// ServiceConfig builds the services-layer config from this binary
// config.
func (c *Config) ServiceConfig() (*services.ServiceConfig, error) {
	aggConfig, err := c.AggregationConfig()
	if err != nil {
		return nil, err
	}
	return &services.ServiceConfig{
		AggregationConfig: aggConfig,
		HTTPAddr:          c.HTTPAddr,
		PublicURL:         c.PublicURL,
		RegistryURL:       c.RegistryURL,
	}, nil
}

// HolderValue resolves the holder's private value: the configured one,
// or a uniform draw from the protocol value range.
func (c *Config) HolderValue() (protocol.Value, error) {
	if c.Holder.Value != nil {
		return protocol.Value(*c.Holder.Value), nil
	}
	aggConfig, err := c.AggregationConfig()
	if err != nil {
		return 0, err
	}
	return protocol.RandomValueIn(aggConfig.ValueMin, aggConfig.ValueMax)
}

// NewRosterStore builds the registry's store from configuration:
// Postgres when a host is configured, in-memory otherwise.
func (c *Config) NewRosterStore() (services.RosterStore, error) {
	if c.Registry.Postgres.Host != "" {
		return services.NewPostgresStore(&c.Registry.Postgres)
	}
	return services.NewInMemoryStore(), nil
}

// NewLogger builds the process logger: text for terminals, JSON when
// configured for log shipping.
func NewLogger(jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
