package config

import (
	"context"

	"github.com/caarlos0/env/v11"

	"github.com/diirlab/xrlia/pkg/log"
)

type LLMConfig struct {
	APIKey      string  `env:"MISTRAL_API_KEY,required"`
	BaseURL     string  `env:"MISTRAL_BASE_URL" envDefault:"https://api.mistral.ai"`
	Model       string  `env:"XRLIA_CHAT_MODEL" envDefault:"ministral-8b-latest"`
	Temperature float64 `env:"XRLIA_CHAT_TEMPERATURE" envDefault:"0.63"`

	// Token-bucket limiter shared by every chat completion call.
	RateLimitRPS   float64 `env:"XRLIA_CHAT_RPS" envDefault:"1"`
	RateLimitBurst float64 `env:"XRLIA_CHAT_BURST" envDefault:"10"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	cfg := &LLMConfig{}
	if err := env.Parse(cfg); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return cfg
}
