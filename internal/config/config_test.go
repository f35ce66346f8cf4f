package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: "9090"
log:
  level: debug
postgres:
  url: postgres://quiz@localhost/quizdb
cache:
  ttl: 2m
enhance:
  parallelism: 4
report:
  timezone: Europe/Paris
auth:
  superTokens: [root]
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Level != "debug" || cfg.Enhance.Parallelism != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Auth.SuperTokens) != 1 || cfg.Auth.SuperTokens[0] != "root" {
		t.Fatalf("unexpected super tokens: %v", cfg.Auth.SuperTokens)
	}
	if got := TTLDuration(cfg.Cache.TTL, time.Minute); got != 2*time.Minute {
		t.Fatalf("unexpected cache ttl %v", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUIZ_SERVER_PORT", "7070")
	t.Setenv("QUIZ_AUTH_SUPER_TOKENS", "a,b")

	cfg, err := Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("env should override yaml, got %q", cfg.Server.Port)
	}
	if len(cfg.Auth.SuperTokens) != 2 {
		t.Fatalf("unexpected super tokens: %v", cfg.Auth.SuperTokens)
	}
	if cfg.Postgres.URL == "" {
		t.Fatalf("yaml values without env should survive")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(""); err != nil {
		t.Fatalf("empty path should load env only: %v", err)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Second); got != time.Second {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
}

func TestLocation(t *testing.T) {
	var cfg Config
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC default, got %v %v", loc, err)
	}
	cfg.Report.Timezone = "Not/AZone"
	if _, err := cfg.Location(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
