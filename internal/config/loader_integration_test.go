package config

import (
	"os"
	"path/filepath"
	"testing"
)

// Integration tests that exercise the full LoadFrom pipeline:
// defaults < YAML < environment variables.

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	yamlPath := writeYAML(t, `
server:
  port: "9090"
logging:
  level: "debug"
`)
	t.Setenv("COUNCIL_PORT", "7070")
	t.Setenv("COUNCIL_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override YAML: got level %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadFrom_YAMLPartialOverride(t *testing.T) {
	yamlPath := writeYAML(t, `
logging:
  level: "error"
`)
	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("got level %q, want error", cfg.Logging.Level)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("default port should be 8080, got %q", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("default max_conns should be 15, got %d", cfg.Postgres.MaxConns)
	}
}

func TestLoadFrom_EnvInvalidValues(t *testing.T) {
	t.Setenv("COUNCIL_PG_MAX_CONNS", "notanumber")
	t.Setenv("COUNCIL_BREAKER_TIMEOUT", "invalid-duration")
	t.Setenv("COUNCIL_RATE_RPS", "abc")
	t.Setenv("COUNCIL_NATS_ENABLED", "maybe")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("invalid int env should be ignored: got max_conns %d, want 15", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout.String() != "30s" {
		t.Errorf("invalid duration env should be ignored: got %v, want 30s", cfg.Breaker.Timeout)
	}
	if cfg.Rate.RequestsPerSecond != 10 {
		t.Errorf("invalid float env should be ignored: got %v, want 10", cfg.Rate.RequestsPerSecond)
	}
	if cfg.NATS.Enabled {
		t.Error("invalid bool env should be ignored")
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	yamlPath := writeYAML(t, "server:\n  port: [1, 2\n")
	if _, err := LoadFrom(yamlPath); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadFrom_ValidationAfterOverride(t *testing.T) {
	yamlPath := writeYAML(t, `
storage:
  driver: "memory"
`)
	t.Setenv("COUNCIL_RATE_BURST", "0")

	if _, err := LoadFrom(yamlPath); err == nil {
		t.Fatal("expected validation error for zero burst from env")
	}
}

func TestLoadFrom_ScoringAndLimits(t *testing.T) {
	yamlPath := writeYAML(t, `
scoring:
  participation: 1
  win: 2
  critique_bonus: 3
limits:
  proposal_chars: 500
  activity_max: 50
`)
	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Scoring != (Scoring{Participation: 1, Win: 2, CritiqueBonus: 3}) {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
	if cfg.Limits.ProposalChars != 500 || cfg.Limits.ActivityMax != 50 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if cfg.Limits.CritiqueChars != 2000 {
		t.Errorf("critique limit should keep default, got %d", cfg.Limits.CritiqueChars)
	}
}
