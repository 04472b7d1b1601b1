package telegram

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/PalmaOG/barbersmap/internal/catalog"
	"github.com/PalmaOG/barbersmap/internal/draft"
	"github.com/PalmaOG/barbersmap/internal/wizard"
)

// recordingMessenger collects outbound messages instead of hitting Telegram.
type recordingMessenger struct {
	prompts []string
	media   []string // captions of delivered media groups
}

func (r *recordingMessenger) SendPrompt(_ int64, text string) error {
	r.prompts = append(r.prompts, text)
	return nil
}

func (r *recordingMessenger) DeliverMedia(_ int64, _ []string, caption string) error {
	r.media = append(r.media, caption)
	return nil
}

func (r *recordingMessenger) last(t *testing.T) string {
	t.Helper()
	if len(r.prompts) == 0 {
		t.Fatal("no prompt was sent")
	}
	return r.prompts[len(r.prompts)-1]
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *recordingMessenger, *catalog.MemoryStore) {
	t.Helper()
	cat := catalog.NewMemoryStore()
	cat.AddRegion("Moscow", "Tverskaya")
	cat.AddRegion("Kazan")
	msgr := &recordingMessenger{}
	machine := wizard.New(draft.NewMemoryStore(), cat, nil)
	return NewDispatcher(nil, msgr, machine, cat), msgr, cat
}

func seedActive(t *testing.T, cat *catalog.MemoryStore, owner, regionID int64) int64 {
	t.Helper()
	id, err := cat.SubmitProfile(context.Background(), catalog.Submission{
		OwnerUserID: owner,
		RegionID:    regionID,
		Description: fmt.Sprintf("Barber %d\nsecond line", owner),
		Photos:      []string{"p1", "p2", "p3", "p4", "p5"},
		Prices: map[catalog.Category]int{
			catalog.CategoryShort: 500, catalog.CategoryLong: 700, catalog.CategoryBeard: 300,
		},
	})
	if err != nil {
		t.Fatalf("SubmitProfile: %v", err)
	}
	cat.SetStatus(id, catalog.StatusActive)
	return id
}

func TestOnboardingFlow_ServicesDisambiguation(t *testing.T) {
	d, msgr, _ := newTestDispatcher(t)
	ctx := context.Background()
	const userID = int64(1)

	d.handleCommand(ctx, userID, "start")
	d.handleText(ctx, userID, "A barber")
	for i := 0; i < 5; i++ {
		out, err := d.machine.AddPhoto(ctx, userID, fmt.Sprintf("p%d", i))
		d.finish(userID, out, err)
	}
	d.handleText(ctx, userID, "Kazan")
	d.handleText(ctx, userID, "5")
	d.handleText(ctx, userID, "beard")

	// Inside the services sub-loop: a category word selects, the next message
	// prices it, and the same word again must select rather than re-price.
	d.handleText(ctx, userID, "short")
	if s := d.session(userID); s.pending != catalog.CategoryShort {
		t.Fatalf("pending after category pick = %q, want short", s.pending)
	}
	d.handleText(ctx, userID, "500")
	if s := d.session(userID); s.pending != "" {
		t.Fatalf("pending after price = %q, want cleared", s.pending)
	}
	if !strings.Contains(msgr.last(t), "long, beard") {
		t.Errorf("prompt after first price = %q, want the unpriced list", msgr.last(t))
	}

	d.handleText(ctx, userID, "long")
	d.handleText(ctx, userID, "700")
	d.handleText(ctx, userID, "beard")
	d.handleText(ctx, userID, "300")

	d.handleText(ctx, userID, "-")
	d.handleText(ctx, userID, "-")
	d.handleText(ctx, userID, "-")

	// Completing the interview delivers the preview media group.
	if len(msgr.media) == 0 {
		t.Fatal("no preview was delivered after the last answer")
	}
	if !strings.Contains(msgr.media[len(msgr.media)-1], "A barber") {
		t.Errorf("preview caption = %q, want the description", msgr.media[len(msgr.media)-1])
	}

	d.handleCommand(ctx, userID, "done")
	if !strings.Contains(msgr.last(t), "submitted for review") {
		t.Errorf("commit reply = %q, want a submission confirmation", msgr.last(t))
	}
}

func TestCommit_IncompleteRepromptsMissingStep(t *testing.T) {
	d, msgr, _ := newTestDispatcher(t)
	ctx := context.Background()
	const userID = int64(2)

	d.handleCommand(ctx, userID, "start")
	d.handleText(ctx, userID, "A barber")
	d.handleCommand(ctx, userID, "done")

	found := false
	for _, p := range msgr.prompts {
		if strings.Contains(p, "work photos") {
			found = true
		}
	}
	if !found {
		t.Errorf("prompts %q never named the missing photos", msgr.prompts)
	}
	if s := d.session(userID); s.step != draft.StepWorkPhotos {
		t.Errorf("session step after failed commit = %q, want work_photos", s.step)
	}
}

func TestFilterFlow_NoBudgetShowsEveryone(t *testing.T) {
	d, msgr, cat := newTestDispatcher(t)
	ctx := context.Background()
	const userID = int64(3)

	kazan, err := cat.ResolveRegion(ctx, "Kazan")
	if err != nil {
		t.Fatalf("ResolveRegion: %v", err)
	}
	id := seedActive(t, cat, 50, kazan)

	d.handleCommand(ctx, userID, "find")
	d.handleText(ctx, userID, "Kazan") // no metro in Kazan: straight to budget
	d.handleText(ctx, userID, "no")    // no budget: skip specialization, show results

	last := msgr.last(t)
	if !strings.Contains(last, "Barbers found") || !strings.Contains(last, fmt.Sprintf("%d — Barber 50", id)) {
		t.Errorf("results = %q, want the seeded barber listed", last)
	}

	// A listed number opens the full profile as a media group.
	d.handleText(ctx, userID, fmt.Sprintf("%d", id))
	if len(msgr.media) == 0 || !strings.Contains(msgr.media[len(msgr.media)-1], "Barber 50") {
		t.Errorf("profile view was not delivered: %v", msgr.media)
	}
}

func TestFilterFlow_WithBudgetAsksSpecialization(t *testing.T) {
	d, msgr, cat := newTestDispatcher(t)
	ctx := context.Background()
	const userID = int64(4)

	moscow, err := cat.ResolveRegion(ctx, "Moscow")
	if err != nil {
		t.Fatalf("ResolveRegion: %v", err)
	}
	seedActive(t, cat, 60, moscow)

	d.handleCommand(ctx, userID, "find")
	d.handleText(ctx, userID, "Moscow")
	d.handleText(ctx, userID, "no") // metro does not matter
	d.handleText(ctx, userID, "1000")
	if !strings.Contains(msgr.last(t), "specialization") {
		t.Fatalf("after budget prompt = %q, want the specialization menu", msgr.last(t))
	}

	d.handleText(ctx, userID, "9")
	if !strings.Contains(msgr.last(t), "1 to 7") {
		t.Errorf("invalid choice reply = %q, want a range hint", msgr.last(t))
	}

	d.handleText(ctx, userID, "7")
	if !strings.Contains(msgr.last(t), "Barbers found") {
		t.Errorf("results = %q, want a result page", msgr.last(t))
	}
}

func TestFilterFlow_NoMatchesEndsSession(t *testing.T) {
	d, msgr, _ := newTestDispatcher(t)
	ctx := context.Background()
	const userID = int64(5)

	d.handleCommand(ctx, userID, "find")
	d.handleText(ctx, userID, "Kazan")
	d.handleText(ctx, userID, "no")

	if !strings.Contains(msgr.last(t), "No barbers match") {
		t.Errorf("empty result reply = %q", msgr.last(t))
	}
	if d.session(userID).filtering {
		t.Error("filter session should end on an empty result")
	}
}

func TestHideCommand(t *testing.T) {
	d, msgr, cat := newTestDispatcher(t)
	ctx := context.Background()
	const userID = int64(6)

	d.handleCommand(ctx, userID, "hide")
	if !strings.Contains(msgr.last(t), "no published profile") {
		t.Errorf("hide without profile = %q", msgr.last(t))
	}

	kazan, err := cat.ResolveRegion(ctx, "Kazan")
	if err != nil {
		t.Fatalf("ResolveRegion: %v", err)
	}
	seedActive(t, cat, userID, kazan)

	d.handleCommand(ctx, userID, "hide")
	if !strings.Contains(msgr.last(t), "hidden") {
		t.Errorf("hide active = %q, want hidden confirmation", msgr.last(t))
	}
	d.handleCommand(ctx, userID, "hide")
	if !strings.Contains(msgr.last(t), "visible") {
		t.Errorf("hide hidden = %q, want visible confirmation", msgr.last(t))
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("one\ntwo"); got != "one" {
		t.Errorf("firstLine = %q, want %q", got, "one")
	}
	long := strings.Repeat("x", 80)
	if got := firstLine(long); len(got) != 60 || !strings.HasSuffix(got, "...") {
		t.Errorf("firstLine long = %q, want 60 chars ending in ...", got)
	}
}
