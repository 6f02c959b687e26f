package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/eugenenazirov/gearsolver/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "PLANET_COUNT", "TOLERANCE", "BATCH_LIMIT", "LOG_LEVEL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
		t.Fatalf("unexpected defaults (-want +got):\n%s", diff)
	}
	if cfg.Solver.PlanetCount != 3 {
		t.Fatalf("expected three planets by default, got %d", cfg.Solver.PlanetCount)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("PLANET_COUNT", "4")
	t.Setenv("TOLERANCE", "1e-9")
	t.Setenv("BATCH_LIMIT", "10")
	t.Setenv("RATE_LIMIT_RPS", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(&CLIOverrides{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if want := (storage.Settings{PlanetCount: 4, Tolerance: 1e-9}); cfg.Solver != want {
		t.Fatalf("expected solver settings %+v, got %+v", want, cfg.Solver)
	}
	if cfg.BatchLimit != 10 {
		t.Fatalf("expected batch limit 10, got %d", cfg.BatchLimit)
	}
	if cfg.RateLimitRPS != 5 {
		t.Fatalf("expected rate limit 5, got %v", cfg.RateLimitRPS)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %s", cfg.LogLevel)
	}
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	tests := map[string]string{
		"PLANET_COUNT":     "three",
		"TOLERANCE":        "tiny",
		"BATCH_LIMIT":      "many",
		"RATE_LIMIT_RPS":   "fast",
		"RATE_LIMIT_BURST": "1.5",
	}

	for key, value := range tests {
		key, value := key, value
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			if _, err := Load(nil); err == nil {
				t.Fatalf("expected error for malformed %s=%q", key, value)
			}
		})
	}
}

func TestLoadRejectsNegativeRateLimitEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_BURST", "-1")

	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error for negative RATE_LIMIT_BURST")
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("PLANET_COUNT", "5")

	path := writeConfigFile(t, `
port: "7100"
planet_count: 4
tolerance: 0.000001
batch_limit: 20
write_timeout: 2s
enable_request_logging: false
rate_limit:
  rps: 0
  burst: 0
`)

	planets := 6
	port := "7200"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port, PlanetCount: &planets})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7200" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.Solver.PlanetCount != 6 {
		t.Fatalf("expected CLI planet count to win, got %d", cfg.Solver.PlanetCount)
	}
	if cfg.Solver.Tolerance != 1e-6 {
		t.Fatalf("expected YAML tolerance, got %v", cfg.Solver.Tolerance)
	}
	if cfg.BatchLimit != 20 {
		t.Fatalf("expected YAML batch limit, got %d", cfg.BatchLimit)
	}
	if cfg.WriteTimeout != 2*time.Second {
		t.Fatalf("expected YAML write timeout, got %s", cfg.WriteTimeout)
	}
	if cfg.EnableRequestLogging {
		t.Fatalf("expected YAML to disable request logging")
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 0 {
		t.Fatalf("expected YAML to disable rate limiting, got %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadYAMLOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLANET_COUNT", "5")

	path := writeConfigFile(t, "planet_count: 4\n")
	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Solver.PlanetCount != 4 {
		t.Fatalf("expected YAML planet count to override env, got %d", cfg.Solver.PlanetCount)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
			t.Fatalf("expected error for missing file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfigFile(t, "port: [")
		if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected error for invalid YAML")
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := writeConfigFile(t, "idle_timeout: soon\n")
		if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected error for invalid duration")
		}
	})

	t.Run("invalid solver settings", func(t *testing.T) {
		planets := 0
		_, err := Load(&CLIOverrides{PlanetCount: &planets})
		if !errors.Is(err, storage.ErrInvalidSettings) {
			t.Fatalf("expected ErrInvalidSettings, got %v", err)
		}
	})

	t.Run("unknown log level", func(t *testing.T) {
		level := "chatty"
		if _, err := Load(&CLIOverrides{LogLevel: &level}); err == nil {
			t.Fatalf("expected error for unknown log level")
		}
	})

	t.Run("negative rate limit", func(t *testing.T) {
		path := writeConfigFile(t, "rate_limit:\n  rps: -1\n")
		if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected error for negative rate limit")
		}
	})

	t.Run("non-positive batch limit", func(t *testing.T) {
		t.Setenv("BATCH_LIMIT", "-3")
		if _, err := Load(nil); err == nil {
			t.Fatalf("expected error for negative batch limit")
		}
	})
}
