package config

import (
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Maildrop.LogLevel != "info" {
		t.Errorf("default log level = %q, want info", cfg.Maildrop.LogLevel)
	}
	if cfg.Pop3.Implementation != "maildrop" {
		t.Errorf("default implementation = %q, want maildrop", cfg.Pop3.Implementation)
	}
	if cfg.Pop3.Auth.Type != "none" {
		t.Errorf("default auth type = %q, want none", cfg.Pop3.Auth.Type)
	}
	if cfg.Watcher.Metrics.Enabled {
		t.Error("metrics enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FileConfig)
		wantErr bool
	}{
		{
			name:   "defaults",
			mutate: func(c *FileConfig) {},
		},
		{
			name: "static with password",
			mutate: func(c *FileConfig) {
				c.Pop3.Auth = AuthConfig{Type: "static", Username: "a", Password: "p"}
			},
		},
		{
			name: "static with hash",
			mutate: func(c *FileConfig) {
				c.Pop3.Auth = AuthConfig{Type: "static", Username: "a", PasswordHash: "h"}
			},
		},
		{
			name: "static without username",
			mutate: func(c *FileConfig) {
				c.Pop3.Auth = AuthConfig{Type: "static", Password: "p"}
			},
			wantErr: true,
		},
		{
			name: "static without secret",
			mutate: func(c *FileConfig) {
				c.Pop3.Auth = AuthConfig{Type: "static", Username: "a"}
			},
			wantErr: true,
		},
		{
			name: "unknown auth type",
			mutate: func(c *FileConfig) {
				c.Pop3.Auth.Type = "ldap"
			},
			wantErr: true,
		},
		{
			name: "metrics enabled without address",
			mutate: func(c *FileConfig) {
				c.Watcher.Metrics = MetricsConfig{Enabled: true, Path: "/metrics"}
			},
			wantErr: true,
		},
		{
			name: "metrics enabled without path",
			mutate: func(c *FileConfig) {
				c.Watcher.Metrics = MetricsConfig{Enabled: true, Address: ":9101"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogLevelPrecedence(t *testing.T) {
	cfg := Default()
	cfg.Maildrop.LogLevel = "warn"

	if got := cfg.Pop3LogLevel(); got != "warn" {
		t.Errorf("Pop3LogLevel() = %q, want shared warn", got)
	}

	cfg.Pop3.LogLevel = "debug"
	if got := cfg.Pop3LogLevel(); got != "debug" {
		t.Errorf("Pop3LogLevel() = %q, want pop3 debug", got)
	}

	if got := cfg.WatcherLogLevel(); got != "warn" {
		t.Errorf("WatcherLogLevel() = %q, want shared warn", got)
	}
}
