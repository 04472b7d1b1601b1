package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PalmaOG/barbersmap/internal/draft"
)

func TestSweep_RemovesOnlyIdleDrafts(t *testing.T) {
	ctx := context.Background()
	drafts := draft.NewMemoryStore()

	stale := draft.New(1, draft.StepDescription)
	stale.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	fresh := draft.New(2, draft.StepDescription)

	for _, d := range []*draft.Draft{stale, fresh} {
		if err := drafts.Put(ctx, d); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	s := New(drafts, 24*time.Hour, 6)
	s.sweep(ctx)

	if _, err := drafts.Get(ctx, 1); !errors.Is(err, draft.ErrNotFound) {
		t.Error("idle draft survived the sweep")
	}
	if _, err := drafts.Get(ctx, 2); err != nil {
		t.Errorf("fresh draft was swept: %v", err)
	}
}

func TestStart_DisabledWithoutTTL(t *testing.T) {
	s := New(draft.NewMemoryStore(), 0, 6)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start with zero ttl: %v", err)
	}
	s.Stop()
}
