// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
)

// Embedding provider names accepted in EmbeddingProvider.
const (
	ProviderHash   = "hash"
	ProviderGemini = "gemini"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory match job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of match workers.
	WorkerCount int `koanf:"worker_count"`

	// DefaultTopN is the result count when a match request does not ask
	// for one.
	DefaultTopN int `koanf:"default_top_n"`

	// MaxTopN caps the requested result count.
	MaxTopN int `koanf:"max_top_n"`

	// EmbeddingProvider selects the embedder: "hash" or "gemini".
	EmbeddingProvider string `koanf:"embedding_provider"`

	// EmbeddingDim sets the vector length of the hash embedder.
	EmbeddingDim int `koanf:"embedding_dim"`

	// GeminiAPIKey authenticates against the Gemini embedding API.
	GeminiAPIKey string `koanf:"gemini_api_key"`

	// GeminiModel overrides the Gemini embedding model name.
	GeminiModel string `koanf:"gemini_model"`

	// RatingsPath points at the rating snapshot file. Empty disables
	// persistence.
	RatingsPath string `koanf:"ratings_path"`

	// ProfilesPath points at the profile snapshot file. Empty disables
	// persistence.
	ProfilesPath string `koanf:"profiles_path"`

	// MatchTimeoutMS bounds how long a match run may take end to end.
	MatchTimeoutMS int `koanf:"match_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueSize:         100_000,
		WorkerCount:       runtime.NumCPU() * 4,
		DefaultTopN:       5,
		MaxTopN:           100,
		EmbeddingProvider: ProviderHash,
		EmbeddingDim:      256,
		MatchTimeoutMS:    30_000,
	}
}
