// Package agent runs the bounded reasoning and tool-execution loop.
//
// Each Run is an explicit state machine: generate, execute any requested
// tools, feed the results back, repeat. The loop is capped; a model that
// keeps requesting tools past the cap gets cut off with ErrLoopExceeded
// instead of spinning.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Sentinel errors for agent operations.
// Only errors that are checked with errors.Is() are defined here.
var (
	// ErrLoopExceeded indicates the model was still requesting tools when
	// the cycle cap was reached.
	ErrLoopExceeded = errors.New("agent loop exceeded")

	// ErrBackend indicates the reasoning backend failed or returned an
	// unusable response.
	ErrBackend = errors.New("reasoning backend error")
)

// fallbackResponse is returned when the model produces neither text nor
// tool requests.
const fallbackResponse = "I'm sorry, I couldn't generate a response. Please try again."

// Agent drives the reasoning loop against a Genkit model.
//
// Agent is stateless across calls and safe for concurrent use; conversation
// state lives entirely in the message slices passed to Run.
type Agent struct {
	g         *genkit.Genkit
	modelName string
	maxTurns  int
	logger    *slog.Logger
}

// Config configures an Agent.
type Config struct {
	// ModelName is the provider-qualified model, e.g. "googleai/gemini-2.5-flash".
	ModelName string
	// MaxTurns caps reasoning/tool cycles per Run. Must be >= 1.
	MaxTurns int
	// Logger for debugging (nil = slog.Default()).
	Logger *slog.Logger
}

func (c Config) validate() error {
	if c.ModelName == "" {
		return errors.New("model name is required")
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max turns must be >= 1, got %d", c.MaxTurns)
	}
	return nil
}

// New creates an Agent.
func New(g *genkit.Genkit, cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		g:         g,
		modelName: cfg.ModelName,
		maxTurns:  cfg.MaxTurns,
		logger:    logger,
	}, nil
}

// Run executes the reasoning loop over the given conversation and returns
// the model's final text.
//
// messages must already contain the current user query as the last entry.
// The slice is deep copied before use; callers may reuse it freely.
//
// Each cycle the model either answers with text, which ends the loop, or
// requests tools, which are executed and fed back as tool-role messages.
// Reaching the cycle cap with tools still pending returns ErrLoopExceeded.
func (a *Agent) Run(ctx context.Context, systemPrompt string, tools []ai.Tool, messages []*ai.Message) (string, error) {
	conversation := deepCopyMessages(messages)

	toolRefs := make([]ai.ToolRef, 0, len(tools))
	for _, t := range tools {
		toolRefs = append(toolRefs, t)
	}

	for cycle := 0; cycle < a.maxTurns; cycle++ {
		resp, err := genkit.Generate(ctx, a.g,
			ai.WithModelName(a.modelName),
			ai.WithSystem(systemPrompt),
			ai.WithMessages(conversation...),
			ai.WithTools(toolRefs...),
			// Tool execution stays in this loop so the cycle cap is enforced
			// here, not inside Genkit
			ai.WithReturnToolRequests(true),
		)
		if err != nil {
			return "", fmt.Errorf("%w: generate: %v", ErrBackend, err)
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			text := resp.Text()
			if strings.TrimSpace(text) == "" {
				a.logger.Warn("model returned empty response with no tool requests")
				return fallbackResponse, nil
			}
			a.logger.Debug("reasoning complete", "cycles", cycle+1)
			return text, nil
		}

		a.logger.Debug("executing tool requests", "cycle", cycle+1, "count", len(requests))

		toolMsg, err := a.executeTools(ctx, requests)
		if err != nil {
			return "", err
		}

		conversation = append(resp.History(), toolMsg)
	}

	return "", fmt.Errorf("%w: still requesting tools after %d cycles", ErrLoopExceeded, a.maxTurns)
}

// executeTools runs each requested tool and collects the outputs into a
// single tool-role message for the next cycle.
func (a *Agent) executeTools(ctx context.Context, requests []*ai.ToolRequest) (*ai.Message, error) {
	parts := make([]*ai.Part, 0, len(requests))
	for _, req := range requests {
		tool := genkit.LookupTool(a.g, req.Name)
		if tool == nil {
			return nil, fmt.Errorf("%w: model requested unknown tool %q", ErrBackend, req.Name)
		}

		output, err := tool.RunRaw(ctx, req.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: running tool %q: %v", ErrBackend, req.Name, err)
		}

		a.logger.Debug("tool executed", "tool", req.Name)
		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: output,
		}))
	}

	return ai.NewMessage(ai.RoleTool, nil, parts...), nil
}

// deepCopyMessages copies messages and their content slices.
// Genkit modifies message content in place during rendering, so sharing
// message objects across concurrent executions would race.
func deepCopyMessages(messages []*ai.Message) []*ai.Message {
	copied := make([]*ai.Message, len(messages))
	for i, msg := range messages {
		content := make([]*ai.Part, len(msg.Content))
		copy(content, msg.Content)
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  content,
			Metadata: msg.Metadata,
		}
	}
	return copied
}
