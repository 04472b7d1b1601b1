// Package sweeper wires up the cron job that expires idle onboarding drafts.
// Drafts persist indefinitely by default; the sweep runs only when a TTL is
// configured.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/PalmaOG/barbersmap/internal/draft"
)

// Sweeper periodically removes drafts idle for longer than ttl.
type Sweeper struct {
	cron   *cron.Cron
	drafts draft.Sweepable
	ttl    time.Duration
	spec   string // cron spec, e.g. "@every 6h"
}

// New creates a Sweeper that fires every intervalHours hours and removes
// drafts not updated for ttl.
func New(drafts draft.Sweepable, ttl time.Duration, intervalHours int) *Sweeper {
	return &Sweeper{
		cron:   cron.New(),
		drafts: drafts,
		ttl:    ttl,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. A zero or negative ttl
// disables the sweep entirely.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.ttl <= 0 {
		slog.Info("draft expiry disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	slog.Info("draft expiry enabled", "ttl", s.ttl, "interval", s.spec)
	return nil
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.ttl)
	removed, err := s.drafts.DeleteIdle(ctx, cutoff)
	if err != nil {
		slog.Warn("draft sweep failed", "err", err)
		return
	}
	if removed > 0 {
		slog.Info("idle drafts removed", "count", removed)
	}
}
