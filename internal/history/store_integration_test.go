package history_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/bytecraft/aira/internal/history"
	"github.com/bytecraft/aira/internal/log"
	"github.com/bytecraft/aira/internal/testutil"
)

// TestStoreRoundTrip tests append, read, and eviction against real PostgreSQL.
func TestStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := history.New(db.Pool, 5, log.NewNop())

	// New user reads empty
	turns, err := store.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(turns))
	}

	// Append beyond the retention limit
	for i := 0; i < 8; i++ {
		role := history.RoleUser
		if i%2 == 1 {
			role = history.RoleModel
		}
		if err := store.Append(ctx, "alice", role, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("Append() failed at %d: %v", i, err)
		}
	}

	turns, err = store.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	// Only the newest 5 survive, in ascending order
	if len(turns) != 5 {
		t.Fatalf("expected 5 retained turns, got %d", len(turns))
	}
	if turns[0].Content != "message 3" {
		t.Errorf("oldest retained turn = %q, want 'message 3'", turns[0].Content)
	}
	if turns[4].Content != "message 7" {
		t.Errorf("newest turn = %q, want 'message 7'", turns[4].Content)
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Seq <= turns[i-1].Seq {
			t.Errorf("turns out of order at %d: seq %d <= %d", i, turns[i].Seq, turns[i-1].Seq)
		}
	}
}

// TestStoreUserIsolation tests that eviction and reads never cross users.
func TestStoreUserIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := history.New(db.Pool, 3, log.NewNop())

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, "alice", history.RoleUser, fmt.Sprintf("alice %d", i)); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}
	if err := store.Append(ctx, "bob", history.RoleUser, "bob 0"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	bobTurns, err := store.Read(ctx, "bob")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(bobTurns) != 1 || bobTurns[0].Content != "bob 0" {
		t.Errorf("bob's history affected by alice's eviction: %+v", bobTurns)
	}

	aliceTurns, err := store.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(aliceTurns) != 3 {
		t.Errorf("expected 3 retained turns for alice, got %d", len(aliceTurns))
	}
}

// TestStoreLegacyRoleNormalization tests reads over rows written with
// pre-normalization role labels.
func TestStoreLegacyRoleNormalization(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// Simulate rows written by an older deployment
	for _, row := range []struct{ role, content string }{
		{"user", "q"},
		{"assistant", "a"},
		{"tool", "t"},
	} {
		if _, err := db.Pool.Exec(ctx,
			`INSERT INTO turns (user_id, role, content) VALUES ($1, $2, $3)`,
			"legacy", row.role, row.content); err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
	}

	store := history.New(db.Pool, 50, log.NewNop())
	turns, err := store.Read(ctx, "legacy")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	wantRoles := []string{history.RoleUser, history.RoleModel, history.RoleModel}
	for i, want := range wantRoles {
		if turns[i].Role != want {
			t.Errorf("turn %d: role = %q, want %q", i, turns[i].Role, want)
		}
	}
}
