package config

import (
	"os"
	"testing"
	"time"
)

// writeConfig writes content to a temporary YAML file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	tmpfile.Close()
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Engine.InactivityGap != 30*time.Minute {
			t.Errorf("expected inactivity gap 30m, got %v", cfg.Engine.InactivityGap)
		}
		if cfg.Engine.ExplicitThreshold != 0 {
			t.Errorf("expected threshold 0, got %v", cfg.Engine.ExplicitThreshold)
		}
		if cfg.Engine.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", cfg.Engine.Workers)
		}
		if cfg.Export.URL != "" {
			t.Errorf("expected no export url, got %s", cfg.Export.URL)
		}
		if cfg.Export.Timeout != 10*time.Second {
			t.Errorf("expected export timeout 10s, got %v", cfg.Export.Timeout)
		}
		if cfg.Export.CohortName != "cohort" {
			t.Errorf("expected cohort name cohort, got %s", cfg.Export.CohortName)
		}
		if cfg.Server.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
		}
		if cfg.Server.Port != 50061 {
			t.Errorf("expected port 50061, got %d", cfg.Server.Port)
		}
		if cfg.Server.MetricsAddr != ":9090" {
			t.Errorf("expected metrics addr :9090, got %s", cfg.Server.MetricsAddr)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("CK_SERVER_PORT", "9999")
		t.Setenv("CK_ENGINE_INACTIVITY_GAP", "45m")
		t.Setenv("CK_ENGINE_EXPLICIT_SESSION_THRESHOLD", "0.5")
		t.Setenv("CK_DATABASE_URL", "sqlite://events.db")

		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Engine.InactivityGap != 45*time.Minute {
			t.Errorf("expected gap 45m, got %v", cfg.Engine.InactivityGap)
		}
		if cfg.Engine.ExplicitThreshold != 0.5 {
			t.Errorf("expected threshold 0.5, got %v", cfg.Engine.ExplicitThreshold)
		}
		if cfg.Database.URL != "sqlite://events.db" {
			t.Errorf("expected database url, got %q", cfg.Database.URL)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `engine:
  workers: 2
export:
  url: "https://cohorts.example.com/api"
  cohort_name: "reactivation"
`)
		cfg, err := LoadConfig(path, nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Engine.Workers != 2 {
			t.Errorf("expected 2 workers, got %d", cfg.Engine.Workers)
		}
		if cfg.Export.URL != "https://cohorts.example.com/api" {
			t.Errorf("unexpected export url %q", cfg.Export.URL)
		}
		if cfg.Export.CohortName != "reactivation" {
			t.Errorf("unexpected cohort name %q", cfg.Export.CohortName)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/cohortkeeper.yaml", nil); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"port above range", "CK_SERVER_PORT", "70000"},
		{"port zero", "CK_SERVER_PORT", "0"},
		{"zero inactivity gap", "CK_ENGINE_INACTIVITY_GAP", "0s"},
		{"negative inactivity gap", "CK_ENGINE_INACTIVITY_GAP", "-5m"},
		{"threshold of one", "CK_ENGINE_EXPLICIT_SESSION_THRESHOLD", "1"},
		{"negative threshold", "CK_ENGINE_EXPLICIT_SESSION_THRESHOLD", "-0.1"},
		{"zero workers", "CK_ENGINE_WORKERS", "0"},
		{"zero export timeout", "CK_EXPORT_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			if _, err := LoadConfig("", nil); err == nil {
				t.Errorf("expected error for %s=%s", tt.env, tt.val)
			}
		})
	}
}

func TestConfigConversions(t *testing.T) {
	cfg := Default()
	cfg.Engine.ExplicitThreshold = 0.25
	cfg.Export.URL = "https://cohorts.example.com"
	cfg.Export.Token = "secret"

	sc := cfg.SessionConfig()
	if sc.InactivityGap != cfg.Engine.InactivityGap || sc.ExplicitThreshold != 0.25 {
		t.Errorf("SessionConfig() = %+v", sc)
	}

	ec := cfg.ExporterConfig()
	if ec.URL != cfg.Export.URL || ec.Token != "secret" || ec.Timeout != cfg.Export.Timeout {
		t.Errorf("ExporterConfig() = %+v", ec)
	}
}
