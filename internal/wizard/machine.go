package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PalmaOG/barbersmap/internal/catalog"
	"github.com/PalmaOG/barbersmap/internal/draft"
)

// EventProfileSubmitted is published to Redis after every successful commit
// so the moderation pipeline can pick the profile up.
const EventProfileSubmitted = "EVENT_PROFILE_SUBMITTED"

// Machine orchestrates the onboarding interview. All operations for one user
// serialize on a per-user mutex: a later answer is never applied to a draft
// snapshot older than the one an earlier acknowledged answer produced.
// Different users proceed in parallel.
type Machine struct {
	drafts draft.Store
	cat    catalog.Store
	events *redis.Client // nil disables moderation events

	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

// New returns a Machine using the injected draft store and catalogue. events
// may be nil (tests run without Redis).
func New(drafts draft.Store, cat catalog.Store, events *redis.Client) *Machine {
	return &Machine{
		drafts: drafts,
		cat:    cat,
		events: events,
		users:  make(map[int64]*sync.Mutex),
	}
}

func (m *Machine) userLock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.users[userID]
	if !ok {
		l = &sync.Mutex{}
		m.users[userID] = l
	}
	return l
}

// Prompt returns the question text for a step, or "" for virtual states.
func (m *Machine) Prompt(k draft.StepKey) string {
	if s := graph.get(k); s != nil {
		return s.Prompt
	}
	return ""
}

// ─── Interview operations ────────────────────────────────────────────────────

// StartOrResume loads the user's draft, creating an empty one at the first
// step when absent, and returns the outcome describing the step to ask.
func (m *Machine) StartOrResume(ctx context.Context, userID int64) (*Outcome, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	d, err := m.drafts.Get(ctx, userID)
	if errors.Is(err, draft.ErrNotFound) {
		d = draft.New(userID, graph.first())
		if err := m.drafts.Put(ctx, d); err != nil {
			return nil, err
		}
		return m.askOutcome(OutcomeAdvance, d), nil
	}
	if err != nil {
		return nil, err
	}
	return m.askOutcome(OutcomeAdvance, d), nil
}

// SubmitAnswer validates raw input against the current step. On success the
// typed value is merged, the interview advances past any non-applicable
// steps, and the new draft is persisted before the outcome is returned. On a
// validation failure the draft is unchanged and the same step is re-asked.
func (m *Machine) SubmitAnswer(ctx context.Context, userID int64, raw string) (*Outcome, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	d, err := m.drafts.Get(ctx, userID)
	if errors.Is(err, draft.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	if d.Step == draft.StepReady {
		return m.askOutcome(OutcomeReadyToCommit, d), nil
	}

	step := graph.get(d.Step)
	if step == nil {
		return nil, fmt.Errorf("draft for user %d points at unknown step %q", userID, d.Step)
	}

	work := d.Clone()
	if err := step.Validate(ctx, m.cat, raw, work); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			out := m.askOutcome(OutcomeReprompt, d)
			out.Hint = ve.Msg
			return out, nil
		}
		return nil, err
	}

	return m.advance(ctx, work, step)
}

// AddPhoto appends a media reference while the interview is at the photo
// collection step. The sixth and later photos are rejected: the collection is
// capped and the interview just re-signals the move to the next step.
func (m *Machine) AddPhoto(ctx context.Context, userID int64, mediaRef string) (*Outcome, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	d, err := m.drafts.Get(ctx, userID)
	if errors.Is(err, draft.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	if d.Step != draft.StepWorkPhotos {
		out := m.askOutcome(OutcomeReprompt, d)
		out.Hint = "Photos are not expected right now."
		return out, nil
	}

	if len(d.Photos) >= draft.PortfolioSize {
		// Already full: no mutation, just re-signal the advance.
		return m.advance(ctx, d.Clone(), graph.get(draft.StepWorkPhotos))
	}

	work := d.Clone()
	work.Photos = append(work.Photos, mediaRef)

	if len(work.Photos) < draft.PortfolioSize {
		work.UpdatedAt = time.Now().UTC()
		if err := m.drafts.Put(ctx, work); err != nil {
			return nil, err
		}
		out := m.askOutcome(OutcomeReprompt, work)
		out.Hint = fmt.Sprintf("Photo %d of %d received.", len(work.Photos), draft.PortfolioSize)
		return out, nil
	}

	return m.advance(ctx, work, graph.get(draft.StepWorkPhotos))
}

// SelectServiceCategory validates a category pick inside the services
// sub-loop and returns the price prompt for it. Nothing is persisted until
// the price itself arrives.
func (m *Machine) SelectServiceCategory(ctx context.Context, userID int64, categoryKey string) (*Outcome, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	d, err := m.drafts.Get(ctx, userID)
	if errors.Is(err, draft.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	if d.Step != draft.StepServices {
		out := m.askOutcome(OutcomeReprompt, d)
		out.Hint = "Service prices are not expected right now."
		return out, nil
	}

	c, err := catalog.ParseCategory(strings.ToLower(strings.TrimSpace(categoryKey)))
	if err != nil {
		out := m.askOutcome(OutcomeReprompt, d)
		out.Hint = "Pick one of the offered services."
		return out, nil
	}

	out := m.askOutcome(OutcomeReprompt, d)
	out.Category = c
	out.Prompt = fmt.Sprintf("What is your average price for service %q?", c)
	out.Hint = ""
	return out, nil
}

// SubmitServicePrice stores a price for one category. The price must be a
// positive integer; otherwise the same category is re-prompted. Once every
// category is priced the interview advances past the services step.
func (m *Machine) SubmitServicePrice(ctx context.Context, userID int64, categoryKey, rawPrice string) (*Outcome, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	d, err := m.drafts.Get(ctx, userID)
	if errors.Is(err, draft.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	if d.Step != draft.StepServices {
		out := m.askOutcome(OutcomeReprompt, d)
		out.Hint = "Service prices are not expected right now."
		return out, nil
	}

	c, err := catalog.ParseCategory(strings.ToLower(strings.TrimSpace(categoryKey)))
	if err != nil {
		out := m.askOutcome(OutcomeReprompt, d)
		out.Hint = "Pick one of the offered services."
		return out, nil
	}

	price, err := strconv.Atoi(strings.TrimSpace(rawPrice))
	if err != nil || price <= 0 {
		out := m.askOutcome(OutcomeReprompt, d)
		out.Category = c
		out.Prompt = fmt.Sprintf("What is your average price for service %q?", c)
		out.Hint = "The price must be a positive whole number."
		return out, nil
	}

	work := d.Clone()
	if work.Prices == nil {
		work.Prices = make(map[catalog.Category]int, len(catalog.Categories))
	}
	work.Prices[c] = price

	if missing := work.MissingCategories(); len(missing) > 0 {
		work.UpdatedAt = time.Now().UTC()
		if err := m.drafts.Put(ctx, work); err != nil {
			return nil, err
		}
		out := m.askOutcome(OutcomeReprompt, work)
		out.Hint = fmt.Sprintf("Price for %q saved: %d. Pick the next service.", c, price)
		return out, nil
	}

	return m.advance(ctx, work, graph.get(draft.StepServices))
}

// Cancel deletes the user's draft unconditionally.
func (m *Machine) Cancel(ctx context.Context, userID int64) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return m.drafts.Delete(ctx, userID)
}

// Restart clears any existing draft and re-enters the interview at the first
// step. Committed catalogue data is untouched; Commit handles its own
// replace.
func (m *Machine) Restart(ctx context.Context, userID int64) (*Outcome, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := m.drafts.Delete(ctx, userID); err != nil {
		return nil, err
	}
	d := draft.New(userID, graph.first())
	if err := m.drafts.Put(ctx, d); err != nil {
		return nil, err
	}
	return m.askOutcome(OutcomeAdvance, d), nil
}

// Commit validates the draft's completion gates and atomically writes the
// profile into the catalogue: provider record upserted with status pending,
// photos and prices replaced, draft cleared. When a gate fails the wizard
// re-enters at the corresponding step and returns *IncompleteProfileError.
func (m *Machine) Commit(ctx context.Context, userID int64) (int64, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	d, err := m.drafts.Get(ctx, userID)
	if errors.Is(err, draft.ErrNotFound) {
		return 0, ErrNoActiveSession
	}
	if err != nil {
		return 0, err
	}

	if incomplete := firstUnmetGate(d); incomplete != nil {
		work := d.Clone()
		work.Step = incomplete.Step
		work.UpdatedAt = time.Now().UTC()
		if err := m.drafts.Put(ctx, work); err != nil {
			return 0, err
		}
		return 0, incomplete
	}

	sub := catalog.Submission{
		OwnerUserID:     d.UserID,
		RegionID:        d.RegionID,
		SubRegionID:     d.SubRegionID,
		Description:     d.Description,
		ExperienceYears: d.ExperienceYears,
		Instagram:       d.Instagram,
		Whatsapp:        d.Whatsapp,
		Telegram:        d.Telegram,
		Photos:          d.Photos,
		Prices:          d.Prices,
	}
	id, err := m.cat.SubmitProfile(ctx, sub)
	if err != nil {
		// Fails closed: the draft stays authoritative, nothing was applied.
		return 0, fmt.Errorf("commit profile: %w", err)
	}

	// The catalogue write is the authoritative transition; cleanup and event
	// failures are logged, never rolled back.
	if err := m.drafts.Delete(ctx, userID); err != nil {
		slog.Warn("draft clear after commit failed", "userId", userID, "err", err)
	}
	m.publishSubmitted(ctx, id, userID)

	return id, nil
}

// firstUnmetGate checks commit preconditions in step order and returns the
// first failure, or nil when the draft is complete.
func firstUnmetGate(d *draft.Draft) *IncompleteProfileError {
	if len(d.Photos) != draft.PortfolioSize {
		return &IncompleteProfileError{
			Missing: fmt.Sprintf("exactly %d work photos", draft.PortfolioSize),
			Step:    draft.StepWorkPhotos,
		}
	}
	if d.RegionID == 0 {
		return &IncompleteProfileError{Missing: "a recognized city", Step: draft.StepCity}
	}
	if missing := d.MissingCategories(); len(missing) > 0 {
		return &IncompleteProfileError{Missing: "a price for every service", Step: draft.StepServices}
	}
	return nil
}

// ─── Transitions ─────────────────────────────────────────────────────────────

// advance computes the next applicable step after from, persists the draft,
// and returns the outcome. Steps whose precondition is false record their
// null answer and are skipped.
func (m *Machine) advance(ctx context.Context, work *draft.Draft, from *StepDefinition) (*Outcome, error) {
	next := from.Next(work)
	for next != draft.StepReady {
		s := graph.get(next)
		if s.Precondition == nil {
			break
		}
		applies, err := s.Precondition(ctx, m.cat, work)
		if err != nil {
			return nil, err
		}
		if applies {
			break
		}
		if s.Skip != nil {
			s.Skip(work)
		}
		next = s.Next(work)
	}

	work.Step = next
	work.UpdatedAt = time.Now().UTC()
	if err := m.drafts.Put(ctx, work); err != nil {
		return nil, err
	}

	if next == draft.StepReady {
		return m.askOutcome(OutcomeReadyToCommit, work), nil
	}
	return m.askOutcome(OutcomeAdvance, work), nil
}

// askOutcome builds the outcome describing the draft's current step.
func (m *Machine) askOutcome(kind OutcomeKind, d *draft.Draft) *Outcome {
	if d.Step == draft.StepReady || kind == OutcomeReadyToCommit {
		return &Outcome{Kind: OutcomeReadyToCommit, Step: draft.StepReady, Draft: d}
	}
	out := &Outcome{Kind: kind, Step: d.Step, Prompt: m.Prompt(d.Step)}
	switch d.Step {
	case draft.StepWorkPhotos:
		out.PhotosRemaining = draft.PortfolioSize - len(d.Photos)
	case draft.StepServices:
		out.PendingCategories = d.MissingCategories()
	}
	return out
}

func (m *Machine) publishSubmitted(ctx context.Context, providerID, userID int64) {
	if m.events == nil {
		return
	}
	event, _ := json.Marshal(map[string]any{
		"type":       EventProfileSubmitted,
		"providerId": providerID,
		"userId":     userID,
	})
	if err := m.events.Publish(ctx, EventProfileSubmitted, event).Err(); err != nil {
		slog.Warn("publish EVENT_PROFILE_SUBMITTED failed", "providerId", providerID, "err", err)
	}
}
