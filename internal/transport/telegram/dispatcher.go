package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PalmaOG/barbersmap/internal/catalog"
	"github.com/PalmaOG/barbersmap/internal/draft"
	"github.com/PalmaOG/barbersmap/internal/search"
	"github.com/PalmaOG/barbersmap/internal/wizard"
)

// filterStage tracks where a seeker is inside the filter question sequence.
type filterStage int

const (
	stageRegion filterStage = iota
	stageSubRegion
	stagePrice
	stageChoice
	stageBrowse
)

// session is the dispatcher's per-user transport state: the last wizard step
// it prompted (so category picks are not confused with specialization
// answers), the category awaiting a price, and the seeker filter flow.
type session struct {
	mu sync.Mutex // serializes one user's updates; users proceed in parallel

	step    draft.StepKey
	pending catalog.Category

	filtering bool
	stage     filterStage
	criteria  search.Criteria
	page      int
}

// Dispatcher routes inbound Telegram updates onto wizard and search
// operations and sends the resulting prompts back.
type Dispatcher struct {
	api     *tgbotapi.BotAPI
	msgr    Messenger
	machine *wizard.Machine
	cat     catalog.Store

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewDispatcher wires the transport to the wizard and the catalogue.
func NewDispatcher(api *tgbotapi.BotAPI, msgr Messenger, machine *wizard.Machine, cat catalog.Store) *Dispatcher {
	return &Dispatcher{
		api:      api,
		msgr:     msgr,
		machine:  machine,
		cat:      cat,
		sessions: make(map[int64]*session),
	}
}

// Run consumes the long-poll update stream until ctx is cancelled. Each
// update is handled on its own goroutine; the wizard serializes per user.
func (d *Dispatcher) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := d.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			d.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil || upd.Message.From == nil {
				continue
			}
			go d.handleMessage(ctx, upd.Message)
		}
	}
}

func (d *Dispatcher) session(userID int64) *session {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[userID]
	if !ok {
		s = &session{}
		d.sessions[userID] = s
	}
	return s
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	s := d.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case msg.IsCommand():
		d.handleCommand(ctx, userID, msg.Command())
	case len(msg.Photo) > 0:
		// The largest rendition carries the canonical file id.
		ref := msg.Photo[len(msg.Photo)-1].FileID
		out, err := d.machine.AddPhoto(ctx, userID, ref)
		d.finish(userID, out, err)
	default:
		d.handleText(ctx, userID, msg.Text)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, userID int64, command string) {
	s := d.session(userID)

	switch command {
	case "start", "profile":
		s.filtering = false
		out, err := d.machine.StartOrResume(ctx, userID)
		d.finish(userID, out, err)
	case "cancel":
		s.filtering = false
		s.pending = ""
		if err := d.machine.Cancel(ctx, userID); err != nil {
			d.send(userID, "Something went wrong, please try again later.")
			return
		}
		d.send(userID, "Onboarding cancelled. Send /start whenever you want to begin again.")
	case "restart":
		s.filtering = false
		s.pending = ""
		out, err := d.machine.Restart(ctx, userID)
		d.finish(userID, out, err)
	case "done":
		d.commit(ctx, userID)
	case "find":
		s.filtering = true
		s.stage = stageRegion
		s.criteria = search.Criteria{}
		s.page = 0
		d.send(userID, "Which city do you want to find a barber in?")
	case "hide":
		d.toggleVisibility(ctx, userID)
	default:
		d.send(userID, "Commands: /start — fill in your profile, /done — publish it, "+
			"/restart — start over, /cancel — drop the draft, /find — find a barber, "+
			"/hide — toggle your profile's visibility.")
	}
}

func (d *Dispatcher) handleText(ctx context.Context, userID int64, text string) {
	s := d.session(userID)

	if s.filtering {
		d.handleFilter(ctx, userID, s, text)
		return
	}

	if s.step == draft.StepServices {
		var (
			out *wizard.Outcome
			err error
		)
		if s.pending != "" {
			out, err = d.machine.SubmitServicePrice(ctx, userID, string(s.pending), text)
		} else {
			out, err = d.machine.SelectServiceCategory(ctx, userID, text)
		}
		if err == nil {
			s.pending = out.Category
		}
		d.finish(userID, out, err)
		return
	}

	out, err := d.machine.SubmitAnswer(ctx, userID, text)
	d.finish(userID, out, err)
}

func (d *Dispatcher) commit(ctx context.Context, userID int64) {
	s := d.session(userID)

	id, err := d.machine.Commit(ctx, userID)
	var incomplete *wizard.IncompleteProfileError
	switch {
	case errors.As(err, &incomplete):
		s.step = incomplete.Step
		s.pending = ""
		d.send(userID, fmt.Sprintf("Your profile still needs %s.", incomplete.Missing))
		d.send(userID, d.machine.Prompt(incomplete.Step))
	case errors.Is(err, wizard.ErrNoActiveSession):
		d.send(userID, "You have no profile in progress. Send /start to begin.")
	case err != nil:
		slog.Warn("commit failed", "userId", userID, "err", err)
		d.send(userID, "Something went wrong, your draft is safe. Please try again later.")
	default:
		s.step = ""
		d.send(userID, fmt.Sprintf("Profile #%d submitted for review. You will be visible in search once approved.", id))
	}
}

func (d *Dispatcher) toggleVisibility(ctx context.Context, userID int64) {
	status, err := d.cat.ToggleVisibility(ctx, userID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		d.send(userID, "You have no published profile yet. Send /start to create one.")
	case err != nil:
		slog.Warn("visibility toggle failed", "userId", userID, "err", err)
		d.send(userID, "Something went wrong, please try again later.")
	case status == catalog.StatusHidden:
		d.send(userID, "Your profile is now hidden from search.")
	case status == catalog.StatusActive:
		d.send(userID, "Your profile is visible in search again.")
	default:
		d.send(userID, fmt.Sprintf("Your profile is %s; its visibility cannot be toggled right now.", status))
	}
}

// ─── Seeker filter flow ──────────────────────────────────────────────────────

func (d *Dispatcher) handleFilter(ctx context.Context, userID int64, s *session, text string) {
	answer := strings.TrimSpace(text)

	switch s.stage {
	case stageRegion:
		regionID, err := d.cat.ResolveRegion(ctx, answer)
		if errors.Is(err, catalog.ErrRegionNotFound) {
			d.send(userID, fmt.Sprintf("City %q was not found. Try again:", answer))
			return
		}
		if err != nil {
			d.sendFilterError(userID, err)
			return
		}
		s.criteria.RegionID = regionID
		has, err := d.cat.RegionHasSubRegions(ctx, regionID)
		if err != nil {
			d.sendFilterError(userID, err)
			return
		}
		if has {
			s.stage = stageSubRegion
			d.send(userID, `Name a metro station, or send "no" if it does not matter:`)
		} else {
			s.stage = stagePrice
			d.send(userID, `What is your budget? Send a maximum price, or "no" to see everyone:`)
		}

	case stageSubRegion:
		if strings.EqualFold(answer, "no") {
			s.criteria.SubRegionID = nil
		} else {
			id, err := d.cat.ResolveSubRegion(ctx, s.criteria.RegionID, answer)
			if errors.Is(err, catalog.ErrSubRegionNotFound) {
				d.send(userID, fmt.Sprintf(`Metro station %q was not found. Try again or send "no":`, answer))
				return
			}
			if err != nil {
				d.sendFilterError(userID, err)
				return
			}
			s.criteria.SubRegionID = &id
		}
		s.stage = stagePrice
		d.send(userID, `What is your budget? Send a maximum price, or "no" to see everyone:`)

	case stagePrice:
		if strings.EqualFold(answer, "no") {
			// No budget: the specialization filter is skipped entirely.
			s.criteria.MaxPrice = nil
			s.stage = stageBrowse
			s.page = 0
			d.showResults(ctx, userID, s)
			return
		}
		price, err := strconv.Atoi(answer)
		if err != nil || price <= 0 {
			d.send(userID, `The price must be a positive number. Try again, or send "no":`)
			return
		}
		s.criteria.MaxPrice = &price
		s.stage = stageChoice
		d.send(userID, "Pick a specialization by sending a digit:\n"+
			"1 — beard\n2 — long hair\n3 — short hair\n4 — beard and short hair\n"+
			"5 — beard and long hair\n6 — long and short hair\n7 — everything")

	case stageChoice:
		choice, err := search.ParseChoice(answer)
		if err != nil {
			d.send(userID, "Please send a digit from 1 to 7.")
			return
		}
		s.criteria.Choice = choice
		s.stage = stageBrowse
		s.page = 0
		d.showResults(ctx, userID, s)

	case stageBrowse:
		if strings.EqualFold(answer, "next") {
			s.page++
			d.showResults(ctx, userID, s)
			return
		}
		if id, err := strconv.ParseInt(answer, 10, 64); err == nil {
			d.showProvider(ctx, userID, id)
			return
		}
		s.filtering = false
		d.handleText(ctx, userID, text)
	}
}

func (d *Dispatcher) showResults(ctx context.Context, userID int64, s *session) {
	providers, more, err := search.Run(ctx, d.cat, s.criteria, s.page)
	if err != nil {
		d.sendFilterError(userID, err)
		return
	}
	if len(providers) == 0 {
		s.filtering = false
		d.send(userID, "No barbers match these filters. Send /find to search again.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Barbers found (page %d):\n", s.page+1)
	for _, p := range providers {
		fmt.Fprintf(&b, "%d — %s (%d years of experience)\n", p.ID, firstLine(p.Description), p.ExperienceYears)
	}
	b.WriteString("\nSend a barber's number to see the full profile.")
	if more {
		b.WriteString(` Send "next" for more.`)
	}
	d.send(userID, b.String())
}

func (d *Dispatcher) showProvider(ctx context.Context, userID, providerID int64) {
	prof, err := d.cat.GetProfile(ctx, providerID)
	if errors.Is(err, catalog.ErrNotFound) {
		d.send(userID, "This profile is not available.")
		return
	}
	if err != nil {
		d.sendFilterError(userID, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", prof.Description)
	fmt.Fprintf(&b, "City: %s", prof.RegionName)
	if prof.SubRegionName != nil {
		fmt.Fprintf(&b, ", metro %s", *prof.SubRegionName)
	}
	fmt.Fprintf(&b, "\nExperience: %d years\nPrices:\n", prof.ExperienceYears)
	for _, c := range catalog.Categories {
		if price, ok := prof.Prices[c]; ok {
			fmt.Fprintf(&b, "  %s — %d\n", c, price)
		}
	}
	b.WriteString("Contacts:\n")
	fmt.Fprintf(&b, "  Instagram: %s\n", orNone(prof.Instagram))
	fmt.Fprintf(&b, "  WhatsApp: %s\n", orNone(prof.Whatsapp))
	fmt.Fprintf(&b, "  Telegram: %s\n", orNone(prof.Telegram))

	if err := d.msgr.DeliverMedia(userID, prof.Photos, b.String()); err != nil {
		slog.Warn("profile delivery failed", "userId", userID, "providerId", providerID, "err", err)
	}
}

// ─── Outcome rendering ───────────────────────────────────────────────────────

// finish updates the transport session from an outcome and sends the
// corresponding prompt. The wizard has already persisted the draft, so a
// failed send loses nothing.
func (d *Dispatcher) finish(userID int64, out *wizard.Outcome, err error) {
	if errors.Is(err, wizard.ErrNoActiveSession) {
		d.send(userID, "You have no profile in progress. Send /start to begin.")
		return
	}
	if err != nil {
		slog.Warn("wizard operation failed", "userId", userID, "err", err)
		d.send(userID, "Something went wrong, your draft is safe. Please try again later.")
		return
	}

	s := d.session(userID)
	s.step = out.Step
	if out.Step != draft.StepServices {
		s.pending = ""
	}

	if out.Kind == wizard.OutcomeReadyToCommit {
		d.preview(userID, out.Draft)
		return
	}

	var b strings.Builder
	if out.Hint != "" {
		b.WriteString(out.Hint)
		b.WriteString("\n")
	}
	if out.Prompt != "" {
		b.WriteString(out.Prompt)
	}
	if out.Step == draft.StepServices && len(out.PendingCategories) > 0 && out.Category == "" {
		names := make([]string, len(out.PendingCategories))
		for i, c := range out.PendingCategories {
			names[i] = string(c)
		}
		fmt.Fprintf(&b, "\nStill unpriced: %s.", strings.Join(names, ", "))
	}
	d.send(userID, b.String())
}

// preview renders the completed draft with its media group and asks for
// confirmation.
func (d *Dispatcher) preview(userID int64, dr *draft.Draft) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", dr.Description)
	fmt.Fprintf(&b, "City: %s", dr.RegionName)
	if dr.SubRegionName != "" {
		fmt.Fprintf(&b, ", metro %s", dr.SubRegionName)
	}
	fmt.Fprintf(&b, "\nExperience: %d years\nPrices:\n", dr.ExperienceYears)
	for _, c := range catalog.Categories {
		if price, ok := dr.Prices[c]; ok {
			fmt.Fprintf(&b, "  %s — %d\n", c, price)
		}
	}
	fmt.Fprintf(&b, "Instagram: %s\nWhatsApp: %s\nTelegram: %s\n",
		orNone(dr.Instagram), orNone(dr.Whatsapp), orNone(dr.Telegram))

	if err := d.msgr.DeliverMedia(userID, dr.Photos, b.String()); err != nil {
		slog.Warn("preview delivery failed", "userId", userID, "err", err)
	}
	d.send(userID, "This is how your profile will look. Send /done to publish it, or /restart to start over.")
}

func (d *Dispatcher) send(userID int64, text string) {
	if text == "" {
		return
	}
	if err := d.msgr.SendPrompt(userID, text); err != nil {
		slog.Warn("prompt delivery failed", "userId", userID, "err", err)
	}
}

func (d *Dispatcher) sendFilterError(userID int64, err error) {
	slog.Warn("filter step failed", "userId", userID, "err", err)
	d.send(userID, "Something went wrong, please try again later.")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
