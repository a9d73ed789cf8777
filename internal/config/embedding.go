package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/diirlab/xrlia/pkg/log"
)

type EmbeddingConfig struct {
	APIKey  string `env:"MISTRAL_EMBED_API_KEY,required"`
	BaseURL string `env:"MISTRAL_EMBED_BASE_URL" envDefault:"https://api.mistral.ai"`
	Model   string `env:"XRLIA_EMBED_MODEL" envDefault:"mistral-embed"`

	// BatchSize is the provider's maximum inputs per request.
	BatchSize int `env:"XRLIA_EMBED_BATCH_SIZE" envDefault:"128"`

	// BatchPause is the fixed pause after each batch request. Rate
	// shaping, not a retry policy.
	BatchPause time.Duration `env:"XRLIA_EMBED_BATCH_PAUSE" envDefault:"1600ms"`
}

func NewEmbeddingConfig(ctx context.Context) *EmbeddingConfig {
	cfg := &EmbeddingConfig{}
	if err := env.Parse(cfg); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse embedding config")
	}
	return cfg
}
