package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shoplens/searchcore/internal/config"
	"github.com/shoplens/searchcore/internal/core/ports"
	"github.com/shoplens/searchcore/internal/core/usecase"
	"github.com/shoplens/searchcore/internal/infrastructure/cache"
	"github.com/shoplens/searchcore/internal/infrastructure/keyword/postgres"
	"github.com/shoplens/searchcore/internal/infrastructure/llm/ollama"
	logstore "github.com/shoplens/searchcore/internal/infrastructure/logstore/nats"
	"github.com/shoplens/searchcore/internal/infrastructure/resilience"
	"github.com/shoplens/searchcore/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	SearchUC ports.SearchService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	keywordIndex := postgres.NewStore(db)
	if !cfg.SchemaBootstrapSkip {
		if err := keywordIndex.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel).WithExecutor(executor)

	var embedder ports.Embedder = ollama.NewEmbedder(ollamaClient)
	embedder = cache.NewCachedEmbedder(embedder, cfg.EmbeddingCacheSize)

	var rewriter ports.QueryRewriter
	if cfg.RewriteEnabled {
		rewriter = ollama.NewRewriter(ollamaClient)
	}
	reranker := ollama.NewReranker(ollamaClient)

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection).WithExecutor(executor)

	var outcomeLog ports.OutcomeLog
	var natsLog *logstore.Log
	if cfg.OutcomeLogEnabled {
		natsLog, err = logstore.New(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			// Outcome logging is an observability concern, never a reason to
			// refuse to serve traffic.
			slog.Warn("outcome_log_disabled", "error", err)
		} else {
			outcomeLog = natsLog
		}
	}

	searchUC := usecase.NewSearchUseCase(
		embedder,
		vectorIndex,
		keywordIndex,
		reranker,
		rewriter,
		outcomeLog,
		usecase.PipelineConfig{
			DenseWeight:     cfg.SearchDenseWeight,
			SparseWeight:    cfg.SearchSparseWeight,
			KPerChannel:     cfg.SearchKPerChannel,
			RerankPoolSize:  cfg.SearchRerankPoolSize,
			DefaultK:        cfg.SearchDefaultK,
			DefaultDeadline: time.Duration(cfg.SearchDeadlineMS) * time.Millisecond,
			FusionStrategy:  cfg.SearchFusionStrategy,
			FusionRRFK:      cfg.SearchFusionRRFK,
			RewriteHeadroom: time.Duration(cfg.RewriteHeadroomMS) * time.Millisecond,
		},
	)

	return &App{
		Config:   cfg,
		SearchUC: searchUC,

		closeFn: func() {
			if natsLog != nil {
				natsLog.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
