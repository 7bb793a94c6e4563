package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bytecraft/aira/internal/app"
	"github.com/bytecraft/aira/internal/config"
	"github.com/bytecraft/aira/internal/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index [file...]",
	Short: "Index documents into the knowledge base",
	Long: `Index reads text files and stores them in the knowledge base for
retrieval augmentation. With no arguments it reads one document per line
from stdin.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	if len(args) == 0 {
		return indexStdin(ctx, a.Knowledge)
	}

	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		doc := retrieval.Document{
			Content:  string(content),
			Metadata: map[string]any{"source": filepath.Base(path)},
		}
		if err := a.Knowledge.Add(ctx, doc); err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		fmt.Printf("indexed %s (%d bytes)\n", path, len(content))
	}

	return nil
}

// indexStdin reads one document per line until EOF.
func indexStdin(ctx context.Context, store *retrieval.Store) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := store.Add(ctx, retrieval.Document{Content: line}); err != nil {
			return fmt.Errorf("indexing line %d: %w", count+1, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	fmt.Printf("indexed %d documents\n", count)
	return nil
}
