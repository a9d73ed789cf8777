package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/diirlab/xrlia/pkg/log"
)

type VectorConfig struct {
	APIKey string `env:"PINECONE_API_KEY,required"`

	// IndexHost is the data-plane URL of the index, e.g.
	// https://diircb-lntguides-xxxx.svc.aped-4627-b74a.pinecone.io
	IndexHost string `env:"PINECONE_INDEX_HOST,required"`
	Namespace string `env:"PINECONE_NAMESPACE" envDefault:""`

	// ContentKey is the metadata field carrying the chunk text.
	ContentKey string `env:"PINECONE_CONTENT_KEY" envDefault:"text"`

	// TopK is how many neighbours the retrieval tool asks for.
	TopK int `env:"XRLIA_RETRIEVAL_TOP_K" envDefault:"3"`

	// RetrievalDelay is a fixed pause before each retrieval, on top of
	// the embedding batch pause. Rate shaping, not a retry policy.
	RetrievalDelay time.Duration `env:"XRLIA_RETRIEVAL_DELAY" envDefault:"1s"`
}

func NewVectorConfig(ctx context.Context) *VectorConfig {
	cfg := &VectorConfig{}
	if err := env.Parse(cfg); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse vector index config")
	}
	return cfg
}
