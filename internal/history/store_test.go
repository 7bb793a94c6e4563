package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bytecraft/aira/internal/log"
)

// mockQuerier is a hand-rolled Querier for unit tests.
// Each function field can be set per test; unset fields fail the test.
type mockQuerier struct {
	t         *testing.T
	execFunc  func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFunc func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc == nil {
		m.t.Fatal("unexpected Exec call")
	}
	return m.execFunc(ctx, sql, args...)
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc == nil {
		m.t.Fatal("unexpected Query call")
	}
	return m.queryFunc(ctx, sql, args...)
}

// mockRows implements pgx.Rows over a fixed slice of turns.
type mockRows struct {
	turns []Turn
	idx   int
	err   error
}

func (r *mockRows) Next() bool {
	if r.err != nil || r.idx >= len(r.turns) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	t := r.turns[r.idx-1]
	*(dest[0].(*int64)) = t.Seq
	*(dest[1].(*string)) = t.UserID
	*(dest[2].(*string)) = t.Role
	*(dest[3].(*string)) = t.Content
	*(dest[4].(*time.Time)) = t.CreatedAt
	return nil
}

func (r *mockRows) Close()                                       {}
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

// TestReadNormalizesRoles tests that legacy role labels collapse into "model" on read.
func TestReadNormalizesRoles(t *testing.T) {
	mock := &mockQuerier{
		t: t,
		queryFunc: func(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
			if args[0] != "alice" {
				t.Errorf("expected user_id 'alice', got %v", args[0])
			}
			return &mockRows{turns: []Turn{
				{Seq: 1, UserID: "alice", Role: "user", Content: "hi"},
				{Seq: 2, UserID: "alice", Role: "assistant", Content: "hello"},
				{Seq: 3, UserID: "alice", Role: "tool", Content: `{"ok":true}`},
				{Seq: 4, UserID: "alice", Role: "model", Content: "done"},
			}}, nil
		},
	}

	store := New(mock, 50, log.NewNop())
	turns, err := store.Read(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	wantRoles := []string{RoleUser, RoleModel, RoleModel, RoleModel}
	if len(turns) != len(wantRoles) {
		t.Fatalf("expected %d turns, got %d", len(wantRoles), len(turns))
	}
	for i, want := range wantRoles {
		if turns[i].Role != want {
			t.Errorf("turn %d: role = %q, want %q", i, turns[i].Role, want)
		}
	}
}

// TestReadEmptyHistory tests that a new user yields an empty slice, not an error.
func TestReadEmptyHistory(t *testing.T) {
	mock := &mockQuerier{
		t: t,
		queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
			return &mockRows{}, nil
		},
	}

	store := New(mock, 50, log.NewNop())
	turns, err := store.Read(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty history, got %d turns", len(turns))
	}
}

// TestReadStoreDown tests that query failures map to ErrUnavailable.
func TestReadStoreDown(t *testing.T) {
	mock := &mockQuerier{
		t: t,
		queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
			return nil, errors.New("connection refused")
		},
	}

	store := New(mock, 50, log.NewNop())
	_, err := store.Read(context.Background(), "alice")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got: %v", err)
	}
}

// TestAppendRunsEviction tests that Append inserts then evicts with the limit.
func TestAppendRunsEviction(t *testing.T) {
	var gotSQL []string
	mock := &mockQuerier{
		t: t,
		execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL = append(gotSQL, sql)
			if strings.Contains(sql, "DELETE") {
				if args[1] != 50 {
					t.Errorf("eviction limit = %v, want 50", args[1])
				}
				return pgconn.NewCommandTag("DELETE 1"), nil
			}
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	store := New(mock, 50, log.NewNop())
	if err := store.Append(context.Background(), "alice", RoleUser, "hi"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	if len(gotSQL) != 2 {
		t.Fatalf("expected insert + eviction, got %d statements", len(gotSQL))
	}
	if !strings.Contains(gotSQL[0], "INSERT") {
		t.Errorf("first statement should be INSERT, got: %s", gotSQL[0])
	}
	if !strings.Contains(gotSQL[1], "DELETE") {
		t.Errorf("second statement should be DELETE, got: %s", gotSQL[1])
	}
}

// TestAppendInsertFailure tests that a failed insert maps to ErrUnavailable.
func TestAppendInsertFailure(t *testing.T) {
	mock := &mockQuerier{
		t: t,
		execFunc: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errors.New("connection refused")
		},
	}

	store := New(mock, 50, log.NewNop())
	err := store.Append(context.Background(), "alice", RoleUser, "hi")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got: %v", err)
	}
}

// TestAppendEvictionFailureIsNonFatal tests that a failed eviction does not
// fail the append. The next append retries it.
func TestAppendEvictionFailureIsNonFatal(t *testing.T) {
	calls := 0
	mock := &mockQuerier{
		t: t,
		execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			calls++
			if strings.Contains(sql, "DELETE") {
				return pgconn.CommandTag{}, errors.New("deadlock detected")
			}
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	store := New(mock, 50, log.NewNop())
	if err := store.Append(context.Background(), "alice", RoleUser, "hi"); err != nil {
		t.Errorf("Append() should tolerate eviction failure, got: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 statements, got %d", calls)
	}
}

// TestNormalizeRole tests the role mapping table.
func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user", RoleUser},
		{"model", RoleModel},
		{"assistant", RoleModel},
		{"tool", RoleModel},
		{"system", RoleModel},
		{"", RoleModel},
	}

	for _, tt := range tests {
		if got := NormalizeRole(tt.in); got != tt.want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
