package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flag names onto configuration keys. Only flags
// present on the given FlagSet are bound; a flag overrides the other sources
// only when the user actually set it.
var flagKeys = map[string]string{
	"inactivity-gap":    "engine.inactivity_gap",
	"session-threshold": "engine.explicit_session_threshold",
	"workers":           "engine.workers",
	"export-url":        "export.url",
	"export-timeout":    "export.timeout",
	"cohort-name":       "export.cohort_name",
	"host":              "server.host",
	"port":              "server.port",
	"metrics-addr":      "server.metrics_addr",
	"db-url":            "database.url",
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence.
// flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("engine.inactivity_gap", d.Engine.InactivityGap.String())
	v.SetDefault("engine.explicit_session_threshold", d.Engine.ExplicitThreshold)
	v.SetDefault("engine.workers", d.Engine.Workers)
	v.SetDefault("export.url", "")
	v.SetDefault("export.timeout", d.Export.Timeout.String())
	v.SetDefault("export.cohort_name", d.Export.CohortName)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)
	v.SetDefault("database.url", "")

	// Bind environment variables with CK_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("export.token", TokenEnv); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", TokenEnv, err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		Engine: EngineConfig{
			InactivityGap:     v.GetDuration("engine.inactivity_gap"),
			ExplicitThreshold: v.GetFloat64("engine.explicit_session_threshold"),
			Workers:           v.GetInt("engine.workers"),
		},
		Export: ExportConfig{
			URL:        v.GetString("export.url"),
			Token:      v.GetString("export.token"),
			Timeout:    v.GetDuration("export.timeout"),
			CohortName: v.GetString("export.cohort_name"),
		},
		Server: ServerConfig{
			Host:        v.GetString("server.host"),
			Port:        v.GetInt("server.port"),
			MetricsAddr: v.GetString("server.metrics_addr"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks durations, worker count, threshold and port range.
func validateConfig(cfg *Config) error {
	if cfg.Engine.InactivityGap <= 0 {
		return fmt.Errorf("inactivity_gap must be positive, got %v", cfg.Engine.InactivityGap)
	}
	if cfg.Engine.ExplicitThreshold < 0 || cfg.Engine.ExplicitThreshold >= 1 {
		return fmt.Errorf("explicit_session_threshold must be in [0, 1), got %v", cfg.Engine.ExplicitThreshold)
	}
	if cfg.Engine.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Engine.Workers)
	}
	if cfg.Export.Timeout <= 0 {
		return fmt.Errorf("export timeout must be positive, got %v", cfg.Export.Timeout)
	}
	if cfg.Export.CohortName == "" {
		return fmt.Errorf("cohort_name must not be empty")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
// InConfig looks at the file only, so CK_EXPORT_TOKEN is still accepted.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("export.token") || v.InConfig("token") {
		return fmt.Errorf("export token not allowed in config files (use %s environment variable)", TokenEnv)
	}
	return nil
}
