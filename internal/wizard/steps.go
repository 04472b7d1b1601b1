// Package wizard drives the provider onboarding interview: an ordered graph
// of steps with per-step validation and conditional skips, a fixed-size photo
// sub-loop, a price-per-service sub-loop, and an atomic commit into the
// catalogue.
//
// Step graph:
//
//	description → work_photos → city → [metro] → experience →
//	specialization → services(×3) → instagram → whatsapp → telegram → ready
//
// metro is asked only when the chosen city has at least one active
// sub-region; otherwise its answer is recorded as null and the step is
// skipped.
package wizard

import (
	"context"
	"errors"
	"strings"

	"github.com/PalmaOG/barbersmap/internal/catalog"
	"github.com/PalmaOG/barbersmap/internal/draft"
)

// StepDefinition is one immutable node of the step graph.
type StepDefinition struct {
	Key    draft.StepKey
	Prompt string

	// Validate parses raw input and, on success, writes the typed value into
	// d. A *ValidationError keeps the draft unchanged and re-asks the step.
	Validate func(ctx context.Context, cat catalog.Store, raw string, d *draft.Draft) error

	// Precondition reports whether the step must be asked for this draft.
	// Nil means always.
	Precondition func(ctx context.Context, cat catalog.Store, d *draft.Draft) (bool, error)

	// Skip records the null answer for a step whose precondition was false.
	Skip func(d *draft.Draft)

	// Next returns the key of the following step, or draft.StepReady after
	// the last one.
	Next func(d *draft.Draft) draft.StepKey
}

type stepGraph struct {
	order []draft.StepKey
	byKey map[draft.StepKey]*StepDefinition
}

func (g *stepGraph) first() draft.StepKey { return g.order[0] }

func (g *stepGraph) get(k draft.StepKey) *StepDefinition { return g.byKey[k] }

var graph = newStepGraph()

func newStepGraph() *stepGraph {
	defs := []*StepDefinition{
		{
			Key:      draft.StepDescription,
			Prompt:   "Introduce yourself and describe your profile in a couple of sentences.",
			Validate: validateDescription,
		},
		{
			Key:      draft.StepWorkPhotos,
			Prompt:   "Send 1 photo of yourself and 4 photos of your work, one message per photo.",
			Validate: rejectText("Please send a photo, not text."),
		},
		{
			Key:      draft.StepCity,
			Prompt:   "Which city do you work in?",
			Validate: validateCity,
		},
		{
			Key:          draft.StepMetro,
			Prompt:       "Name the nearest metro station:",
			Validate:     validateMetro,
			Precondition: metroApplies,
			Skip: func(d *draft.Draft) {
				d.SubRegionID = nil
				d.SubRegionName = ""
			},
		},
		{
			Key:      draft.StepExperience,
			Prompt:   "How many years have you worked as a barber? Send a number.",
			Validate: validateExperience,
		},
		{
			Key:      draft.StepSpecialization,
			Prompt:   "Your main specialization — short, long or beard:",
			Validate: validateSpecialization,
		},
		{
			Key:      draft.StepServices,
			Prompt:   "Set a price for each of your services. Pick a service to price first:",
			Validate: rejectText("Pick a service and send its price; prices are collected one service at a time."),
		},
		{
			Key:      draft.StepInstagram,
			Prompt:   `Your Instagram (send "-" to skip):`,
			Validate: validateContact(func(d *draft.Draft, v string) { d.Instagram = v }),
		},
		{
			Key:      draft.StepWhatsapp,
			Prompt:   `Your WhatsApp (send "-" to skip):`,
			Validate: validateContact(func(d *draft.Draft, v string) { d.Whatsapp = v }),
		},
		{
			Key:      draft.StepTelegram,
			Prompt:   `Your Telegram (send "-" to skip):`,
			Validate: validateContact(func(d *draft.Draft, v string) { d.Telegram = v }),
		},
	}

	g := &stepGraph{byKey: make(map[draft.StepKey]*StepDefinition, len(defs))}
	for i, def := range defs {
		g.order = append(g.order, def.Key)
		g.byKey[def.Key] = def
		if def.Next == nil {
			if i+1 < len(defs) {
				next := defs[i+1].Key
				def.Next = func(*draft.Draft) draft.StepKey { return next }
			} else {
				def.Next = func(*draft.Draft) draft.StepKey { return draft.StepReady }
			}
		}
	}
	return g
}

// ─── Validators ──────────────────────────────────────────────────────────────

func validateDescription(_ context.Context, _ catalog.Store, raw string, d *draft.Draft) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return failf("The description cannot be empty. Tell clients a little about yourself.")
	}
	d.Description = text
	return nil
}

// rejectText builds a validator for steps whose answers arrive through a
// dedicated sub-loop call instead of a plain text message.
func rejectText(msg string) func(context.Context, catalog.Store, string, *draft.Draft) error {
	return func(context.Context, catalog.Store, string, *draft.Draft) error {
		return failf("%s", msg)
	}
}

func validateCity(ctx context.Context, cat catalog.Store, raw string, d *draft.Draft) error {
	name := strings.TrimSpace(raw)
	if name == "" {
		return failf("Please send the city name.")
	}
	id, err := cat.ResolveRegion(ctx, name)
	if errors.Is(err, catalog.ErrRegionNotFound) {
		return failf("City %q was not found. Check the spelling and try again.", name)
	}
	if err != nil {
		return err
	}
	d.RegionID = id
	d.RegionName = name
	// A new city invalidates any previously chosen metro station.
	d.SubRegionID = nil
	d.SubRegionName = ""
	return nil
}

func metroApplies(ctx context.Context, cat catalog.Store, d *draft.Draft) (bool, error) {
	return cat.RegionHasSubRegions(ctx, d.RegionID)
}

func validateMetro(ctx context.Context, cat catalog.Store, raw string, d *draft.Draft) error {
	name := strings.TrimSpace(raw)
	if name == "" {
		return failf("Please send the metro station name.")
	}
	id, err := cat.ResolveSubRegion(ctx, d.RegionID, name)
	if errors.Is(err, catalog.ErrSubRegionNotFound) {
		return failf("Metro station %q was not found in %s. Check the spelling or pick another station.", name, d.RegionName)
	}
	if err != nil {
		return err
	}
	d.SubRegionID = &id
	d.SubRegionName = name
	return nil
}

func validateExperience(_ context.Context, _ catalog.Store, raw string, d *draft.Draft) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return failf("Please send the number of years, digits only.")
	}
	years := 0
	for _, r := range text {
		if r < '0' || r > '9' {
			return failf("Please send the number of years, digits only.")
		}
		years = years*10 + int(r-'0')
	}
	d.ExperienceYears = years
	return nil
}

func validateSpecialization(_ context.Context, _ catalog.Store, raw string, d *draft.Draft) error {
	c, err := catalog.ParseCategory(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return failf("Pick one of the offered specializations: short, long or beard.")
	}
	d.Specialization = c
	// Entering the services sub-loop starts price collection from scratch.
	d.Prices = make(map[catalog.Category]int, len(catalog.Categories))
	return nil
}

func validateContact(set func(*draft.Draft, string)) func(context.Context, catalog.Store, string, *draft.Draft) error {
	return func(_ context.Context, _ catalog.Store, raw string, d *draft.Draft) error {
		text := strings.TrimSpace(raw)
		if text == "" {
			return failf(`Send the contact, or "-" if you don't have one.`)
		}
		if text == "-" {
			text = ""
		}
		set(d, text)
		return nil
	}
}
