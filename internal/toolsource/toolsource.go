// Package toolsource discovers the agent's toolset from an MCP server.
//
// The registry connects to the configured server over stdio and exposes the
// discovered tools as Genkit ai.Tool values. Discovery failure is fatal for
// the request that triggered it: an agent reasoning without its toolset
// would hallucinate capabilities it does not have.
package toolsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/mcp"
)

// ErrUnavailable indicates the tool source could not be reached or refused
// tool discovery.
var ErrUnavailable = errors.New("tool source unavailable")

// Config describes the MCP server the registry connects to.
type Config struct {
	// Toolset is the logical server name used in tool registration.
	Toolset string
	// Command and Args launch the stdio MCP server process.
	Command string
	Args    []string
	// Env holds extra KEY=value pairs for the server process.
	Env []string
}

// Registry manages the MCP connection and tool discovery.
//
// Registry is safe for concurrent use; the underlying MCP host serializes
// transport access.
type Registry struct {
	host    *mcp.MCPHost
	g       *genkit.Genkit
	toolset string
	logger  *slog.Logger
}

// New creates a Registry connected to the configured MCP server.
func New(ctx context.Context, g *genkit.Genkit, cfg Config, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	host, err := mcp.NewMCPHost(g, mcp.MCPHostOptions{
		Name:    "aira-mcp",
		Version: "1.0.0",
		MCPServers: []mcp.MCPServerConfig{
			{
				Name: cfg.Toolset,
				Config: mcp.MCPClientOptions{
					Name: cfg.Toolset,
					Stdio: &mcp.StdioConfig{
						Command: cfg.Command,
						Args:    cfg.Args,
						Env:     cfg.Env,
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %v", ErrUnavailable, cfg.Toolset, err)
	}

	logger.Info("tool source connected", "toolset", cfg.Toolset, "command", cfg.Command)
	return &Registry{host: host, g: g, toolset: cfg.Toolset, logger: logger}, nil
}

// Tools returns the toolset discovered from the active MCP server.
// Discovery runs per call so a restarted server surfaces its current tools.
func (r *Registry) Tools(ctx context.Context) ([]ai.Tool, error) {
	tools, err := r.host.GetActiveTools(ctx, r.g)
	if err != nil {
		return nil, fmt.Errorf("%w: discovering tools: %v", ErrUnavailable, err)
	}

	r.logger.Debug("discovered tools", "count", len(tools))
	return tools, nil
}

// Disconnect tears down the MCP server connection.
func (r *Registry) Disconnect(ctx context.Context) error {
	if err := r.host.Disconnect(ctx, r.toolset); err != nil {
		return fmt.Errorf("disconnecting %s: %w", r.toolset, err)
	}
	return nil
}
