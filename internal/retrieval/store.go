package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the database operations Store depends on.
// Following Go best practices: interfaces are defined by the consumer, not
// the provider. *pgxpool.Pool satisfies it in production.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store manages knowledge documents with vector search capabilities.
// It handles embedding generation and cosine similarity search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	q        Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a new Store instance.
func New(q Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{q: q, embedder: embedder, logger: logger}
}

// Add embeds and persists a document in the knowledge base.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if doc.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	if _, err := s.q.Exec(ctx,
		`INSERT INTO knowledge (content, metadata, embedding) VALUES ($1, $2, $3)`,
		doc.Content, metadataJSON, embedding); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	s.logger.Debug("indexed document", "content_length", len(doc.Content))
	return nil
}

// Search returns the documents most similar to query, ordered by descending
// similarity. Scores are cosine similarity in [0, 1]. Failures wrap
// ErrRetrieval so callers can degrade gracefully.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Hit, error) {
	cfg := buildSearchConfig(opts)

	// Bound the embed-and-search round trip so a slow vector scan cannot
	// stall the request path
	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", ErrRetrieval, err)
	}

	// <=> is pgvector cosine distance; similarity = 1 - distance
	rows, err := s.q.Query(queryCtx,
		`SELECT content, metadata, 1 - (embedding <=> $1) AS score
		 FROM knowledge
		 ORDER BY embedding <=> $1
		 LIMIT $2`, embedding, cfg.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: searching: %v", ErrRetrieval, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var metadataJSON []byte
		if err := rows.Scan(&h.Content, &metadataJSON, &h.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning hit: %v", ErrRetrieval, err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &h.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decoding metadata: %v", ErrRetrieval, err)
			}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating hits: %v", ErrRetrieval, err)
	}

	s.logger.Debug("search complete", "query_length", len(query), "hits", len(hits))
	return hits, nil
}

// embed generates the embedding vector for content.
func (s *Store) embed(ctx context.Context, content string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(content)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
