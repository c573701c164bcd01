package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if CALLSIGHT_CONFIG is set
//  3. env (prefix CALLSIGHT_)
func Load(ctx context.Context) (*Config, error) {
	_ = ctx

	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CALLSIGHT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CALLSIGHT_ADDR, CALLSIGHT_WEBHOOK_SECRET, ...
	// Map env keys like CALLSIGHT_WEBHOOK_SECRET -> webhook_secret (flat
	// keys). Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CALLSIGHT_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "callsight_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.ReplayWindowMin <= 0 {
		return nil, fmt.Errorf("%w: replay_window_min must be positive", ErrInvalidConfig)
	}
	if cfg.TokenTTLMin <= 0 {
		return nil, fmt.Errorf("%w: token_ttl_min must be positive", ErrInvalidConfig)
	}
	if (cfg.TokenPrivateKey == "") != (cfg.TokenPublicKey == "") {
		return nil, fmt.Errorf("%w: token keys must be set together", ErrInvalidConfig)
	}
	return &cfg, nil
}
