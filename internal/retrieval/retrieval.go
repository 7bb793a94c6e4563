// Package retrieval provides semantic search over the knowledge base using
// PostgreSQL + pgvector.
//
// Documents are embedded on write and searched by cosine distance. The
// orchestrator treats this layer as advisory: a failed search degrades the
// response, it never fails the request.
package retrieval

import (
	"errors"
	"time"
)

// ErrRetrieval indicates the retrieval layer could not serve a search.
// Callers degrade gracefully rather than failing the request.
var ErrRetrieval = errors.New("retrieval failure")

// Document is a knowledge base entry to be indexed.
type Document struct {
	Content  string
	Metadata map[string]any
}

// Hit is a single search result, ordered by descending similarity.
type Hit struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// searchConfig holds resolved search parameters.
type searchConfig struct {
	topK    int
	timeout time.Duration
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

// WithTopK sets the maximum number of hits returned. Default 3.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithTimeout bounds the combined embed-and-search duration. Default 10s.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{topK: 3, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
