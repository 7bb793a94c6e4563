package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/bytecraft/aira/db"
	"github.com/bytecraft/aira/internal/config"
	"github.com/bytecraft/aira/internal/storefront"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the storefront tool server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// runMCP starts the storefront MCP server on stdio transport.
//
// This command is spawned as a subprocess by `aira serve`, so it wires only
// the database and the storefront store. Full app setup would recurse: the
// tool registry launches this very command.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logs go to stderr; stdout carries the MCP protocol.
	logger := slog.Default()
	logger.Info("starting MCP server", "version", Version)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()

	store := storefront.New(pool, logger)
	if err := store.Seed(ctx); err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}

	mcpServer, err := storefront.NewServer(storefront.ServerConfig{
		Name:    cfg.Toolset,
		Version: Version,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "name", cfg.Toolset, "transport", "stdio")

	if err := mcpServer.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	logger.Info("MCP server shut down gracefully")
	return nil
}
