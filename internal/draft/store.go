package draft

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a user has no draft.
var ErrNotFound = errors.New("draft not found")

// Store is the durable per-user draft store. Put replaces the whole document
// atomically; the wizard serializes access per user, so implementations only
// need per-key atomic replace.
type Store interface {
	Get(ctx context.Context, userID int64) (*Draft, error)
	Put(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, userID int64) error
}

// Sweepable is implemented by stores that support the optional idle-expiry
// sweep. DeleteIdle removes drafts not updated since cutoff and returns how
// many were removed.
type Sweepable interface {
	DeleteIdle(ctx context.Context, cutoff time.Time) (int, error)
}
