package wizard

import (
	"errors"
	"fmt"

	"github.com/PalmaOG/barbersmap/internal/draft"
)

// ErrNoActiveSession is returned when an answer arrives for a user with no
// draft. The caller decides whether to offer starting a new session.
var ErrNoActiveSession = errors.New("no active onboarding session")

// ValidationError carries the user-facing detail for a rejected answer. The
// step is re-asked and the draft stays unchanged; retries are unbounded.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func failf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IncompleteProfileError is returned by Commit when a precondition is unmet.
// Step is the interview step the wizard re-entered, so the caller can
// re-prompt it.
type IncompleteProfileError struct {
	Missing string
	Step    draft.StepKey
}

func (e *IncompleteProfileError) Error() string {
	return fmt.Sprintf("profile incomplete: needs %s", e.Missing)
}
