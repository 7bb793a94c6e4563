package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier defines the database operations Store depends on.
// Following Go best practices: interfaces are defined by the consumer, not
// the provider. *pgxpool.Pool satisfies it in production; tests provide a
// mock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store manages bounded per-user transcripts with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines; serialization of
// read-modify-write cycles across a request is the orchestrator's concern.
type Store struct {
	q      Querier
	limit  int
	logger *slog.Logger
}

// New creates a Store retaining at most limit turns per user.
func New(q Querier, limit int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{q: q, limit: limit, logger: logger}
}

// Read returns the retained turns for userID in ascending order, with roles
// normalized. A user with no history yields an empty slice, not an error.
func (s *Store) Read(ctx context.Context, userID string) ([]Turn, error) {
	rows, err := s.q.Query(ctx,
		`SELECT seq, user_id, role, content, created_at
		 FROM turns WHERE user_id = $1 ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading turns for %s: %v", ErrUnavailable, userID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Seq, &t.UserID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning turn: %v", ErrUnavailable, err)
		}
		t.Role = NormalizeRole(t.Role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating turns: %v", ErrUnavailable, err)
	}

	s.logger.Debug("read history", "user_id", userID, "turns", len(turns))
	return turns, nil
}

// Append persists one turn at the end of the user's transcript and evicts
// turns beyond the retention limit. The two statements are deliberately
// separate: a failed eviction leaves a slightly oversized transcript that
// the next append repairs.
func (s *Store) Append(ctx context.Context, userID, role, content string) error {
	if _, err := s.q.Exec(ctx,
		`INSERT INTO turns (user_id, role, content) VALUES ($1, $2, $3)`,
		userID, role, content); err != nil {
		return fmt.Errorf("%w: appending turn for %s: %v", ErrUnavailable, userID, err)
	}

	if err := s.trim(ctx, userID); err != nil {
		s.logger.Warn("history eviction failed, will retry on next append",
			"user_id", userID, "error", err)
	}
	return nil
}

// trim deletes the oldest turns beyond the retention limit. Idempotent.
func (s *Store) trim(ctx context.Context, userID string) error {
	tag, err := s.q.Exec(ctx,
		`DELETE FROM turns
		 WHERE user_id = $1 AND seq NOT IN (
		     SELECT seq FROM turns WHERE user_id = $1
		     ORDER BY seq DESC LIMIT $2
		 )`, userID, s.limit)
	if err != nil {
		return fmt.Errorf("evicting turns for %s: %w", userID, err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.Debug("evicted old turns", "user_id", userID, "evicted", n)
	}
	return nil
}

// Clear removes a user's entire transcript.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM turns WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: clearing turns for %s: %v", ErrUnavailable, userID, err)
	}
	return nil
}
