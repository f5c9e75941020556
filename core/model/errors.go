package model

import (
	"errors"
	"fmt"
)

// FailureReason classifies why no schedule was produced for a person.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonInfeasible
	ReasonTimedOut
	ReasonSolverError
	ReasonMalformedInput
	ReasonExtractionError
	ReasonCanceled
)

// String returns the reason label used in logs, metrics and stored results.
func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonInfeasible:
		return "INFEASIBLE"
	case ReasonTimedOut:
		return "TIMED_OUT"
	case ReasonSolverError:
		return "SOLVER_ERROR"
	case ReasonMalformedInput:
		return "MALFORMED_INPUT"
	case ReasonExtractionError:
		return "EXTRACTION_ERROR"
	case ReasonCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r FailureReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *FailureReason) UnmarshalText(b []byte) error {
	for c := ReasonNone; c <= ReasonCanceled; c++ {
		if c.String() == string(b) {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("unknown failure reason %q", string(b))
}

// MalformedInputError reports an input reference that cannot be resolved,
// for instance an unknown scoring group or location.
type MalformedInputError struct {
	PersonID string
	Reason   string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input for person %s: %s", e.PersonID, e.Reason)
}

// Malformed builds a MalformedInputError with a formatted reason.
func Malformed(personID, format string, args ...any) error {
	return &MalformedInputError{PersonID: personID, Reason: fmt.Sprintf(format, args...)}
}

// IsMalformed reports whether err wraps a MalformedInputError.
func IsMalformed(err error) bool {
	var me *MalformedInputError
	return errors.As(err, &me)
}
