// Package history persists per-user conversation transcripts in PostgreSQL.
//
// Each user owns an append-only sequence of turns. The store keeps the
// transcript bounded: after every append the oldest turns beyond the
// configured limit are evicted, so a user's history never grows without
// bound.
//
// Stored roles are normalized on read, not on write. Rows written by older
// deployments may carry "assistant" or "tool" roles; NormalizeRole folds
// both into "model" so downstream consumers only ever see "user" and
// "model" turns.
package history

import (
	"errors"
	"time"
)

// Roles a turn can carry after normalization.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrUnavailable indicates the backing store could not serve the operation.
// Callers treat it as fatal for the current request.
var ErrUnavailable = errors.New("history store unavailable")

// Turn is a single message in a user's transcript.
type Turn struct {
	Seq       int64
	UserID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// NormalizeRole maps stored role labels onto the two-role scheme consumed
// by the agent. "assistant" and "tool" rows collapse into RoleModel;
// unknown labels also collapse into RoleModel rather than leaking through.
func NormalizeRole(role string) string {
	if role == RoleUser {
		return RoleUser
	}
	return RoleModel
}
