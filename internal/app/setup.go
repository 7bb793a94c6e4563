package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bytecraft/aira/db"
	"github.com/bytecraft/aira/internal/agent"
	"github.com/bytecraft/aira/internal/chat"
	"github.com/bytecraft/aira/internal/config"
	"github.com/bytecraft/aira/internal/history"
	"github.com/bytecraft/aira/internal/observability"
	"github.com/bytecraft/aira/internal/retrieval"
	"github.com/bytecraft/aira/internal/toolsource"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be wired before Genkit initialization so the span
	// processor is registered when Genkit starts emitting.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.History = history.New(pool, cfg.MaxHistory, logger)
	a.Knowledge = retrieval.New(pool, embedder, logger)

	registry, err := toolsource.New(ctx, g, toolsource.Config{
		Toolset: cfg.Toolset,
		Command: cfg.ToolSourceCommand,
		Args:    cfg.ToolSourceArgs,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating tool registry: %w", err)
	}
	a.Tools = registry

	ag, err := agent.New(g, agent.Config{
		ModelName: cfg.FullModelName(),
		MaxTurns:  cfg.MaxTurns,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	a.Agent = ag

	svc, err := chat.New(a.History, a.Knowledge, a.Tools, ag, chat.Config{
		RetrievalTopK:   cfg.RetrievalTopK,
		ContextMaxBytes: cfg.ContextMaxBytes,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	a.Chat = svc

	return a, nil
}

// provideOtelShutdown wires the OTLP exporter when tracing is configured.
// Returns a no-op cleanup when the endpoint is empty.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if cfg.Tracing.Endpoint == "" {
		logger.Debug("tracing disabled, no endpoint configured")
		return func() {}
	}

	shutdown, err := observability.SetupTracing(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		logger.Warn("setting up tracing", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin.
// GEMINI_API_KEY is read by the plugin itself.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}

	logger.Info("initialized Genkit", "provider", cfg.Provider, "model", cfg.ModelName)
	return g, nil
}

// provideEmbedder looks up the embedder registered by the Google AI plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}
