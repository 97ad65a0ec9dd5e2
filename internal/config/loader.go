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
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CONVERGE_CONFIG is set
//  3. env (prefix CONVERGE_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CONVERGE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CONVERGE_ADDR, CONVERGE_QUEUE_SIZE, ...
	// Map env keys like CONVERGE_QUEUE_SIZE -> queue_size (flat keys).
	// Underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider("CONVERGE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "converge_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.DefaultTopN < 1 {
		return fmt.Errorf("%w: default_top_n must be positive", ErrInvalidConfig)
	}
	if cfg.MaxTopN < cfg.DefaultTopN {
		return fmt.Errorf("%w: max_top_n must be >= default_top_n", ErrInvalidConfig)
	}
	switch cfg.EmbeddingProvider {
	case ProviderHash, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown embedding_provider %q", ErrInvalidConfig, cfg.EmbeddingProvider)
	}
	if cfg.EmbeddingProvider == ProviderGemini && cfg.GeminiAPIKey == "" {
		return fmt.Errorf("%w: gemini_api_key required for the gemini provider", ErrInvalidConfig)
	}
	return nil
}
