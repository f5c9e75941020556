package extract

import (
	"fmt"
	"strings"

	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/core/solver"
)

// ExtractionError reports a solved assignment that does not decode into a
// valid schedule. It points at a modelling or tolerance bug and is never
// corrected silently.
type ExtractionError struct {
	PersonID   string
	Violations []string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract schedule for %s: %s", e.PersonID, strings.Join(e.Violations, "; "))
}

// OutcomeError is returned when the outcome carries no assignment. Reason
// is propagated unchanged from the solve.
type OutcomeError struct {
	PersonID string
	Status   solver.Status
	Err      error
}

func (e *OutcomeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no schedule for %s: %s: %v", e.PersonID, e.Status, e.Err)
	}
	return fmt.Sprintf("no schedule for %s: %s", e.PersonID, e.Status)
}

func (e *OutcomeError) Unwrap() error { return e.Err }

// Reason returns the failure reason of the outcome.
func (e *OutcomeError) Reason() model.FailureReason {
	return solver.Outcome{Status: e.Status}.Reason()
}
