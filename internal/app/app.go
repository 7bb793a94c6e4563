// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: Genkit, the
// database pool, the history and knowledge stores, the tool registry, and
// the chat service. Setup builds them in dependency order; Close releases
// them in reverse.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bytecraft/aira/internal/agent"
	"github.com/bytecraft/aira/internal/chat"
	"github.com/bytecraft/aira/internal/config"
	"github.com/bytecraft/aira/internal/history"
	"github.com/bytecraft/aira/internal/retrieval"
	"github.com/bytecraft/aira/internal/toolsource"
)

// App is the core application container.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	History   *history.Store
	Knowledge *retrieval.Store
	Tools     *toolsource.Registry
	Agent     *agent.Agent
	Chat      *chat.Service

	logger      *slog.Logger
	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.logger.Info("shutting down application")

	if a.Tools != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Tools.Disconnect(ctx); err != nil {
			a.logger.Warn("disconnecting tool source", "error", err)
		}
		cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.logger.Info("database pool closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
