// Package config provides configuration management for the maildrop tools.
package config

import (
	"errors"
	"fmt"
)

// FileConfig is the top-level wrapper for the shared configuration file.
// This allows the POP3 engine and the watcher supervisor to share a single
// config file.
type FileConfig struct {
	Maildrop SharedConfig  `toml:"maildrop"`
	Pop3     Pop3Config    `toml:"pop3"`
	Watcher  WatcherConfig `toml:"watcher"`
}

// SharedConfig holds settings used by all tools.
type SharedConfig struct {
	LogLevel string `toml:"log_level"`
}

// Pop3Config holds the POP3-specific settings.
type Pop3Config struct {
	LogLevel string `toml:"log_level"`

	// Implementation is the tag advertised by CAPA.
	Implementation string `toml:"implementation"`

	Auth AuthConfig `toml:"auth"`
}

// AuthConfig selects the credential predicate.
type AuthConfig struct {
	// Type is "none" (accept everything, the default) or "static".
	Type string `toml:"type"`

	// Username, with either Password or PasswordHash, backs the static
	// predicate. PasswordHash is a bcrypt hash and wins when both are
	// set.
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	PasswordHash string `toml:"password_hash"`
}

// WatcherConfig holds the watcher supervisor settings.
type WatcherConfig struct {
	LogLevel string        `toml:"log_level"`
	Metrics  MetricsConfig `toml:"metrics"`
}

// MetricsConfig holds configuration for the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Path    string `toml:"path"`
}

// Default returns a FileConfig with sensible default values.
func Default() FileConfig {
	return FileConfig{
		Maildrop: SharedConfig{
			LogLevel: "info",
		},
		Pop3: Pop3Config{
			Implementation: "maildrop",
			Auth: AuthConfig{
				Type: "none",
			},
		},
		Watcher: WatcherConfig{
			Metrics: MetricsConfig{
				Enabled: false,
				Address: ":9101",
				Path:    "/metrics",
			},
		},
	}
}

// Validate checks that the configuration is usable.
func (c *FileConfig) Validate() error {
	switch c.Pop3.Auth.Type {
	case "", "none":
	case "static":
		if c.Pop3.Auth.Username == "" {
			return errors.New("static auth requires a username")
		}
		if c.Pop3.Auth.Password == "" && c.Pop3.Auth.PasswordHash == "" {
			return errors.New("static auth requires a password or password_hash")
		}
	default:
		return fmt.Errorf("invalid auth type %q (valid: none, static)", c.Pop3.Auth.Type)
	}

	if c.Watcher.Metrics.Enabled {
		if c.Watcher.Metrics.Address == "" {
			return errors.New("metrics address is required when metrics are enabled")
		}
		if c.Watcher.Metrics.Path == "" {
			return errors.New("metrics path is required when metrics are enabled")
		}
	}
	return nil
}

// Pop3LogLevel returns the effective log level for the POP3 engine.
func (c *FileConfig) Pop3LogLevel() string {
	if c.Pop3.LogLevel != "" {
		return c.Pop3.LogLevel
	}
	return c.Maildrop.LogLevel
}

// WatcherLogLevel returns the effective log level for the watcher.
func (c *FileConfig) WatcherLogLevel() string {
	if c.Watcher.LogLevel != "" {
		return c.Watcher.LogLevel
	}
	return c.Maildrop.LogLevel
}
