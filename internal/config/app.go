package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/diirlab/xrlia/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"XRLIA_RUNTIME_PATH" envDefault:".xrlia"`
	ListenAddr  string `env:"XRLIA_LISTEN_ADDR" envDefault:":8080"`

	// Store selects the thread checkpoint backend: "sqlite" or "memory".
	Store string `env:"XRLIA_STORE" envDefault:"sqlite"`

	CasesPath        string `env:"XRLIA_CASES_PATH" envDefault:"data/cases"`
	SystemPromptPath string `env:"XRLIA_SYSTEM_PROMPT_PATH" envDefault:"data/prompts/system.md"`

	// StreamDelay paces outbound SSE chunks. Zero disables pacing.
	StreamDelayMs int `env:"XRLIA_STREAM_DELAY_MS" envDefault:"0"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse app config")
	}
	return c
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "xrlia.db")
}

// SystemPrompt reads the grounding directive installed as every thread's
// seed message. Missing file returns an empty string; the orchestrator
// falls back to its built-in directive.
func (c AppConfig) SystemPrompt() string {
	content, err := os.ReadFile(c.SystemPromptPath)
	if err != nil {
		return ""
	}
	return string(content)
}

func IsDebug() bool {
	return os.Getenv("XRLIA_DEBUG") == "true"
}

// LoadEnvFile loads a .env file from the runtime path when present.
func LoadEnvFile(ctx context.Context, runtimePath string) error {
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	log.FromCtx(ctx).Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
