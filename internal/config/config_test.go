package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`env: production
appId: study
server:
  port: "9090"
redis:
  addr: localhost:6379
catalog:
  ttl: 2m
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvAppID, "")
	t.Setenv(EnvBackendConfig, "")
	t.Setenv(EnvAuthToken, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "production" || cfg.AppID != "study" || cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := TTLDuration(cfg.Catalog.TTL, time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m ttl, got %s", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAppID, "")
	t.Setenv(EnvBackendConfig, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppID != DefaultAppID {
		t.Fatalf("expected default app id, got %q", cfg.AppID)
	}
}

func TestApplyEmbedding(t *testing.T) {
	env := map[string]string{
		EnvAppID:         "embedded-app",
		EnvAuthToken:     "tok",
		EnvBackendConfig: `{"redis":{"addr":"cache:6379","db":2},"postgres":{"url":"postgres://x"},"authSecret":"s3cret"}`,
	}
	var cfg Config
	cfg.Redis.Addr = "ignored:6379"
	if err := cfg.ApplyEmbedding(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.AppID != "embedded-app" || cfg.Auth.InitialToken != "tok" || cfg.Auth.Secret != "s3cret" {
		t.Fatalf("unexpected embedding values %+v", cfg)
	}
	if cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 2 || cfg.Postgres.URL != "postgres://x" {
		t.Fatalf("backend blob not applied %+v", cfg)
	}

	env[EnvBackendConfig] = "{broken"
	if err := cfg.ApplyEmbedding(func(k string) string { return env[k] }); err == nil {
		t.Fatalf("expected error for malformed backend blob")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback for empty, got %s", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for invalid, got %s", got)
	}
}
