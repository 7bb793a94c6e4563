// Package cmd provides CLI commands for Aira.
//
// Commands:
//   - serve: HTTP API server exposing the chat endpoint
//   - mcp: Model Context Protocol server exposing the storefront tools
//   - ask: One-shot question from the terminal
//   - index: Load documents into the knowledge base
//   - version: Show version information
//
// Signal handling and graceful shutdown are implemented for the long-running
// commands via context cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bytecraft/aira/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "aira",
	Short: "Aira - the Bytecraft shopping assistant",
	Long: `Aira is a conversational shopping assistant for the Bytecraft store.

It remembers each user's conversation, augments replies with knowledge-base
retrieval, and acts on the catalog and carts through its tool server.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Aira CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	return rootCmd.Execute()
}
