// Package apperr defines the error kinds shared by the quiz core and its collaborators.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrSessionClosed     = errors.New("session closed")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrIncompleteSession = errors.New("incomplete session")
	ErrConfiguration     = errors.New("configuration error")
	ErrPersistence       = errors.New("persistence error")
	ErrAnalysis          = errors.New("analysis error")
	ErrPayment           = errors.New("payment error")
	ErrReporting         = errors.New("reporting error")

	// ErrReportInProgress rejects a delivery while another one holds the session's report.
	ErrReportInProgress = fmt.Errorf("%w: report delivery already in progress", ErrInvalidTransition)
)

// TransitionError names the attempted and the current lifecycle state.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot move from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Transition returns a *TransitionError for the attempted move.
func Transition(from, to string) error {
	return &TransitionError{From: from, To: to}
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func SessionClosed(sessionID, state string) error {
	return fmt.Errorf("%w: session %s is %s", ErrSessionClosed, sessionID, state)
}

func Incomplete(sessionID string) error {
	return fmt.Errorf("%w: session %s has no answers", ErrIncompleteSession, sessionID)
}

func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Persistence wraps a store failure. Not-found errors keep their kind.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func Analysis(op string, err error) error {
	return wrap(ErrAnalysis, op, err)
}

func Payment(op string, err error) error {
	return wrap(ErrPayment, op, err)
}

func Reporting(op string, err error) error {
	return wrap(ErrReporting, op, err)
}

func wrap(kind error, op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", kind, op)
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}

// Code returns the stable API code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrSessionClosed):
		return "SESSION_CLOSED"
	case errors.Is(err, ErrReportInProgress):
		return "REPORT_IN_PROGRESS"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_STATE_TRANSITION"
	case errors.Is(err, ErrIncompleteSession):
		return "INCOMPLETE_SESSION"
	case errors.Is(err, ErrConfiguration):
		return "CONFIGURATION_ERROR"
	case errors.Is(err, ErrPersistence):
		return "PERSISTENCE_ERROR"
	case errors.Is(err, ErrAnalysis):
		return "ANALYSIS_ERROR"
	case errors.Is(err, ErrPayment):
		return "PAYMENT_ERROR"
	case errors.Is(err, ErrReporting):
		return "REPORTING_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
