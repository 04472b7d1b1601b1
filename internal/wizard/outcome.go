package wizard

import (
	"github.com/PalmaOG/barbersmap/internal/catalog"
	"github.com/PalmaOG/barbersmap/internal/draft"
)

// OutcomeKind tags the result of a state transition. Callers dispatch on the
// tag instead of relying on call-stack side effects.
type OutcomeKind int

const (
	// OutcomeReprompt re-asks the current step, usually after a rejected
	// answer or inside a sub-loop.
	OutcomeReprompt OutcomeKind = iota
	// OutcomeAdvance asks the step the interview moved to.
	OutcomeAdvance
	// OutcomeReadyToCommit signals the interview is complete and the draft is
	// waiting for preview confirmation.
	OutcomeReadyToCommit
)

// Outcome is what every wizard operation returns to the transport layer. The
// draft it describes is already persisted; sending Prompt is fire-and-forget.
type Outcome struct {
	Kind   OutcomeKind
	Step   draft.StepKey
	Prompt string
	// Hint carries the validation detail on a reprompt.
	Hint string

	// PhotosRemaining is set while the photo sub-loop is collecting.
	PhotosRemaining int
	// PendingCategories lists the services still waiting for a price.
	PendingCategories []catalog.Category
	// Category is the service being priced after SelectServiceCategory.
	Category catalog.Category

	// Draft is attached on OutcomeReadyToCommit so the transport can render
	// the preview.
	Draft *draft.Draft
}
