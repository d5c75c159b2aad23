// Package config provides configuration management for cohortkeeper commands.
package config

import (
	"time"

	"github.com/solatis/cohortkeeper/internal/export"
	"github.com/solatis/cohortkeeper/internal/segment"
)

// EnvPrefix is prepended to every environment override (CK_ENGINE_WORKERS, ...).
const EnvPrefix = "CK"

// TokenEnv is the only place the export bearer token may come from.
const TokenEnv = EnvPrefix + "_EXPORT_TOKEN"

// Config is the merged configuration for every command.
type Config struct {
	Engine   EngineConfig
	Export   ExportConfig
	Server   ServerConfig
	Database DatabaseConfig
}

// EngineConfig tunes the segment executor.
type EngineConfig struct {
	InactivityGap     time.Duration
	ExplicitThreshold float64
	Workers           int
}

// ExportConfig configures cohort delivery. An empty URL disables delivery.
type ExportConfig struct {
	URL        string
	Token      string
	Timeout    time.Duration
	CohortName string
}

// ServerConfig holds the gRPC listener and the metrics endpoint.
// An empty MetricsAddr disables the metrics endpoint.
type ServerConfig struct {
	Host        string
	Port        int
	MetricsAddr string
}

// DatabaseConfig points at the event store.
type DatabaseConfig struct {
	URL string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			InactivityGap:     segment.DefaultInactivityGap,
			ExplicitThreshold: 0,
			Workers:           segment.DefaultWorkers,
		},
		Export: ExportConfig{
			Timeout:    export.DefaultTimeout,
			CohortName: "cohort",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        50061,
			MetricsAddr: ":9090",
		},
	}
}

// SessionConfig converts the engine section for the sessionizer.
func (c *Config) SessionConfig() segment.SessionConfig {
	return segment.SessionConfig{
		InactivityGap:     c.Engine.InactivityGap,
		ExplicitThreshold: c.Engine.ExplicitThreshold,
	}
}

// ExporterConfig converts the export section for the exporter.
func (c *Config) ExporterConfig() export.Config {
	return export.Config{
		URL:     c.Export.URL,
		Token:   c.Export.Token,
		Timeout: c.Export.Timeout,
	}
}
