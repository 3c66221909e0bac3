// Package config loads application configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Storage
	DatabasePath string `envconfig:"DATABASE_PATH" default:"forge.db"`

	// AI gateway (OpenAI-compatible chat completions endpoint)
	GatewayBaseURL string `envconfig:"AI_GATEWAY_URL" default:"https://ai.gateway.lovable.dev/v1"`
	GatewayAPIKey  string `envconfig:"AI_GATEWAY_KEY"`
	DefaultModel   string `envconfig:"DEFAULT_MODEL" default:"google/gemini-2.5-flash"`

	// Optional YAML model catalog. Empty = built-in catalog.
	ModelCatalogPath string `envconfig:"MODEL_CATALOG_PATH"`

	// Sessions: HS256 secret for bearer tokens. Empty disables session
	// verification; requests are treated as anonymous and history
	// persistence is skipped.
	SessionSecret string `envconfig:"SESSION_SECRET"`

	// HTTP
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	// Streaming: chunk size (chars) and inter-chunk delay used when
	// re-streaming generated files as SSE.
	StreamChunkSize int `envconfig:"STREAM_CHUNK_SIZE" default:"50"`
	StreamDelayMS   int `envconfig:"STREAM_DELAY_MS" default:"30"`

	// Background generation workers.
	JobWorkers int `envconfig:"JOB_WORKERS" default:"2"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.StreamChunkSize <= 0 {
		return nil, fmt.Errorf("config: STREAM_CHUNK_SIZE must be positive")
	}
	return &cfg, nil
}

// SessionsEnabled returns true if bearer-session verification is configured.
func (c *Config) SessionsEnabled() bool {
	return c.SessionSecret != ""
}
