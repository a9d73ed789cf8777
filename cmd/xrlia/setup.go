package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/diirlab/xrlia/internal/config"
	"github.com/diirlab/xrlia/internal/core"
	"github.com/diirlab/xrlia/internal/providers/embedding"
	"github.com/diirlab/xrlia/internal/providers/llm"
	"github.com/diirlab/xrlia/internal/providers/pinecone"
	"github.com/diirlab/xrlia/internal/service/cases"
	"github.com/diirlab/xrlia/internal/service/chat"
	"github.com/diirlab/xrlia/internal/service/retrieval"
	"github.com/diirlab/xrlia/internal/storage/memory"
	"github.com/diirlab/xrlia/internal/storage/sqlite"
	xhttp "github.com/diirlab/xrlia/internal/transport/http"
	"github.com/diirlab/xrlia/pkg/log"
	"github.com/diirlab/xrlia/pkg/ratelimit"
	"github.com/diirlab/xrlia/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)

	if err := config.LoadEnvFile(ctx, appCfg.RuntimePath); err != nil {
		logger.Fatal().Err(err).Msg("failed to load env file")
	}

	llmCfg := config.NewLLMConfig(ctx)
	embedCfg := config.NewEmbeddingConfig(ctx)
	vectorCfg := config.NewVectorConfig(ctx)

	// 2. Checkpoint storage
	db, threadsRepo, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	if db != nil {
		services = append(services, srv.NewCleanup(db.Close))
	}

	// 3. Model providers
	provider := llm.NewMistral(llmCfg)
	embedder := embedding.NewClient(embedCfg)
	index := pinecone.NewClient(vectorCfg)

	// 4. Retrieval
	store := retrieval.NewStore(embedder, index)
	tool := retrieval.NewTool(store, vectorCfg.TopK, vectorCfg.RetrievalDelay)

	// 5. Conversation orchestrator
	limiter := ratelimit.NewBucket(ratelimit.Config{
		RequestsPerSecond: llmCfg.RateLimitRPS,
		Burst:             llmCfg.RateLimitBurst,
		CheckEvery:        500 * time.Millisecond,
	})

	orchestrator := chat.NewOrchestrator(provider, threadsRepo, tool, limiter, chat.Config{
		SystemPrompt: appCfg.SystemPrompt(),
	})

	// 6. Teaching cases
	loader, err := cases.NewLoader(ctx, appCfg.CasesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", appCfg.CasesPath).Msg("failed to load cases")
	}

	// 7. HTTP transport
	streamDelay := time.Duration(appCfg.StreamDelayMs) * time.Millisecond
	router := xhttp.SetupRouter(orchestrator, loader, streamDelay)
	services = append(services, xhttp.NewServer(appCfg.ListenAddr, router))

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, core.ThreadRepository, error) {
	if cfg.Store == "memory" {
		return nil, memory.NewThreadsRepo(), nil
	}

	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return db, sqlite.NewThreadsRepo(db), nil
}
