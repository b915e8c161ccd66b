package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() of a missing file error = %v", err)
	}
	if cfg.Pop3.Implementation != "maildrop" {
		t.Errorf("missing file did not yield defaults: %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	content := `
[maildrop]
log_level = "warn"

[pop3]
implementation = "lab-pop3"

[pop3.auth]
type = "static"
username = "alice"
password = "secret"

[watcher]
log_level = "debug"

[watcher.metrics]
enabled = true
address = ":9200"
`
	path := filepath.Join(t.TempDir(), "maildrop.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Maildrop.LogLevel != "warn" {
		t.Errorf("shared log level = %q, want warn", cfg.Maildrop.LogLevel)
	}
	if cfg.Pop3.Implementation != "lab-pop3" {
		t.Errorf("implementation = %q, want lab-pop3", cfg.Pop3.Implementation)
	}
	if cfg.Pop3.Auth.Type != "static" || cfg.Pop3.Auth.Username != "alice" {
		t.Errorf("auth = %+v, want static alice", cfg.Pop3.Auth)
	}
	if cfg.Watcher.LogLevel != "debug" {
		t.Errorf("watcher log level = %q, want debug", cfg.Watcher.LogLevel)
	}
	if !cfg.Watcher.Metrics.Enabled {
		t.Error("metrics not enabled")
	}
	if cfg.Watcher.Metrics.Address != ":9200" {
		t.Errorf("metrics address = %q, want :9200", cfg.Watcher.Metrics.Address)
	}
	// Unset values keep their defaults.
	if cfg.Watcher.Metrics.Path != "/metrics" {
		t.Errorf("metrics path = %q, want default /metrics", cfg.Watcher.Metrics.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config is invalid: %v", err)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maildrop.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() of invalid TOML succeeded, want error")
	}
}
