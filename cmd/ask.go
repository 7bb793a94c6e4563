package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/bytecraft/aira/internal/app"
	"github.com/bytecraft/aira/internal/config"
)

var askUserID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask Aira a one-shot question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUserID, "user", "local", "user ID for conversation history")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	question := strings.TrimSpace(strings.Join(args, " "))
	reply, err := a.Chat.Handle(ctx, askUserID, question)
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}

	fmt.Println(renderMarkdown(reply))
	return nil
}

// renderMarkdown converts the reply to styled terminal output.
// Falls back to plain text if the renderer cannot be created.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}

	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(rendered)
}
