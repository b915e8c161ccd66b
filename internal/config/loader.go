package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Load parses a TOML configuration file. A missing file yields the default
// configuration so every tool runs without one.
func Load(path string) (FileConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig FileConfig
	if err := toml.Unmarshal(data, &fileConfig); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	return merge(cfg, fileConfig), nil
}

// merge overlays non-zero values from src onto dst.
func merge(dst, src FileConfig) FileConfig {
	if src.Maildrop.LogLevel != "" {
		dst.Maildrop.LogLevel = src.Maildrop.LogLevel
	}

	if src.Pop3.LogLevel != "" {
		dst.Pop3.LogLevel = src.Pop3.LogLevel
	}
	if src.Pop3.Implementation != "" {
		dst.Pop3.Implementation = src.Pop3.Implementation
	}
	if src.Pop3.Auth.Type != "" {
		dst.Pop3.Auth.Type = src.Pop3.Auth.Type
	}
	if src.Pop3.Auth.Username != "" {
		dst.Pop3.Auth.Username = src.Pop3.Auth.Username
	}
	if src.Pop3.Auth.Password != "" {
		dst.Pop3.Auth.Password = src.Pop3.Auth.Password
	}
	if src.Pop3.Auth.PasswordHash != "" {
		dst.Pop3.Auth.PasswordHash = src.Pop3.Auth.PasswordHash
	}

	if src.Watcher.LogLevel != "" {
		dst.Watcher.LogLevel = src.Watcher.LogLevel
	}
	if src.Watcher.Metrics.Enabled {
		dst.Watcher.Metrics.Enabled = true
	}
	if src.Watcher.Metrics.Address != "" {
		dst.Watcher.Metrics.Address = src.Watcher.Metrics.Address
	}
	if src.Watcher.Metrics.Path != "" {
		dst.Watcher.Metrics.Path = src.Watcher.Metrics.Path
	}

	return dst
}
