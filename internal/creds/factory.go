package creds

import (
	"fmt"

	"github.com/infodancer/maildrop/internal/config"
)

// FromConfig builds the Checker selected by the auth configuration.
func FromConfig(cfg config.AuthConfig) (Checker, error) {
	switch cfg.Type {
	case "", "none":
		return AllowAny{}, nil
	case "static":
		if cfg.PasswordHash != "" {
			return StaticHash{Username: cfg.Username, PasswordHash: cfg.PasswordHash}, nil
		}
		return Static{Username: cfg.Username, Password: cfg.Password}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}
