// Package chat orchestrates a single conversational exchange: bounded
// history, context augmentation from the knowledge base, tool discovery,
// and the reasoning loop.
//
// The pipeline for one request is fixed: validate, persist the user turn,
// read the transcript, search the knowledge base (best-effort), fold hits
// into the history view, discover tools, run the agent, persist the reply.
// Steps touching a user's transcript run under that user's lock so
// concurrent requests from the same user cannot interleave their
// append-read-append sequences.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"

	"github.com/bytecraft/aira/internal/agent"
	"github.com/bytecraft/aira/internal/history"
	"github.com/bytecraft/aira/internal/retrieval"
)

// ErrInvalidRequest indicates a missing userId or query. Rejected before
// any side effects.
var ErrInvalidRequest = errors.New("invalid request")

// Replies used when the pipeline cannot produce a real answer. Both are
// persisted as model turns so every user turn keeps a counterpart.
const (
	// apologyReply is returned when the agent loop hits its cycle cap.
	apologyReply = "I'm sorry, I couldn't complete that request. Could you rephrase or break it into smaller steps?"

	// failureReply is appended best-effort when a fatal error strikes after
	// the user turn was already persisted.
	failureReply = "I ran into a problem handling that request. Please try again."
)

// HistoryStore is the transcript persistence the orchestrator depends on.
type HistoryStore interface {
	Read(ctx context.Context, userID string) ([]history.Turn, error)
	Append(ctx context.Context, userID, role, content string) error
}

// Retriever searches the knowledge base. Best-effort from the
// orchestrator's perspective.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...retrieval.SearchOption) ([]retrieval.Hit, error)
}

// ToolSource discovers the agent's toolset.
type ToolSource interface {
	Tools(ctx context.Context) ([]ai.Tool, error)
}

// Reasoner runs the bounded reasoning loop and returns the final reply.
type Reasoner interface {
	Run(ctx context.Context, systemPrompt string, tools []ai.Tool, messages []*ai.Message) (string, error)
}

// Config configures a Service.
type Config struct {
	// RetrievalTopK is the knowledge search fan-out per request.
	RetrievalTopK int
	// ContextMaxBytes bounds the serialized retrieval payload folded into
	// the history view.
	ContextMaxBytes int
	// Logger for request-level events (nil = slog.Default()).
	Logger *slog.Logger
}

// Service orchestrates conversational exchanges.
//
// Service is safe for concurrent use. Requests for distinct users proceed
// in parallel; requests for the same user serialize.
type Service struct {
	store     HistoryStore
	retriever Retriever
	tools     ToolSource
	reasoner  Reasoner
	cfg       Config
	logger    *slog.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New creates a Service.
func New(store HistoryStore, retriever Retriever, tools ToolSource, reasoner Reasoner, cfg Config) (*Service, error) {
	if store == nil || tools == nil || reasoner == nil {
		return nil, errors.New("chat: store, tools, and reasoner are required")
	}
	if cfg.RetrievalTopK < 1 {
		cfg.RetrievalTopK = 3
	}
	if cfg.ContextMaxBytes < 1 {
		cfg.ContextMaxBytes = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		store:     store,
		retriever: retriever,
		tools:     tools,
		reasoner:  reasoner,
		cfg:       cfg,
		logger:    cfg.Logger,
		userLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Handle processes one exchange and returns the final reply.
//
// Fatal failures after the user turn is persisted leave an asymmetric
// transcript; a failure reply is appended best-effort so the next read
// still sees a paired model turn.
func (s *Service) Handle(ctx context.Context, userID, query string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}

	// One request per user at a time: the append-read-append sequence must
	// not interleave across concurrent requests for the same user
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.Append(ctx, userID, history.RoleUser, query); err != nil {
		return "", fmt.Errorf("persisting user turn: %w", err)
	}

	turns, err := s.store.Read(ctx, userID)
	if err != nil {
		s.appendFailureReply(ctx, userID)
		return "", fmt.Errorf("reading history: %w", err)
	}
	view := viewFromTurns(turns)

	// Knowledge search degrades, never fails the request
	hits := s.search(ctx, query)
	view = augmentView(view, userID, hits, s.cfg.ContextMaxBytes)

	tools, err := s.tools.Tools(ctx)
	if err != nil {
		s.appendFailureReply(ctx, userID)
		return "", fmt.Errorf("discovering tools: %w", err)
	}

	prompt, err := systemPrompt(userID, view)
	if err != nil {
		s.appendFailureReply(ctx, userID)
		return "", fmt.Errorf("building prompt: %w", err)
	}

	reply, err := s.reasoner.Run(ctx, prompt, tools,
		[]*ai.Message{ai.NewUserMessage(ai.NewTextPart(query))})
	if err != nil {
		if errors.Is(err, agent.ErrLoopExceeded) {
			// The loop cap is a product decision, not an outage: answer with
			// the apology and keep the transcript paired
			s.logger.Warn("agent loop exceeded", "user_id", userID)
			reply = apologyReply
		} else {
			s.appendFailureReply(ctx, userID)
			return "", fmt.Errorf("running agent: %w", err)
		}
	}

	if err := s.store.Append(ctx, userID, history.RoleModel, reply); err != nil {
		return "", fmt.Errorf("persisting model turn: %w", err)
	}

	s.logger.Info("exchange complete",
		"user_id", userID,
		"query_length", len(query),
		"reply_length", len(reply),
		"context_hits", len(hits))
	return reply, nil
}

// search runs the best-effort knowledge lookup.
func (s *Service) search(ctx context.Context, query string) []retrieval.Hit {
	if s.retriever == nil {
		return nil
	}
	hits, err := s.retriever.Search(ctx, query, retrieval.WithTopK(s.cfg.RetrievalTopK))
	if err != nil {
		s.logger.Warn("knowledge search failed, proceeding without context", "error", err)
		return nil
	}
	return hits
}

// appendFailureReply pairs the already-persisted user turn with a failure
// model turn. Best-effort: if the store is down this fails too, and the
// transcript stays asymmetric until the next successful exchange.
func (s *Service) appendFailureReply(ctx context.Context, userID string) {
	if err := s.store.Append(ctx, userID, history.RoleModel, failureReply); err != nil {
		s.logger.Warn("could not persist failure reply", "user_id", userID, "error", err)
	}
}

// userLock returns the mutex for userID, creating it on first use.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}
