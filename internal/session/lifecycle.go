// Package session owns the session lifecycle: which state changes are legal, and the
// per-session serialization of every mutation.
package session

import (
	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// transitions lists every legal move. Anything absent is rejected.
var transitions = map[models.SessionState][]models.SessionState{
	models.StateCreated:    {models.StateInProgress, models.StateAbandoned},
	models.StateInProgress: {models.StateCompleted, models.StateAbandoned},
	models.StateCompleted:  {models.StatePaid},
	models.StatePaid:       {models.StateReported},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to models.SessionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns nil for a legal move and an InvalidStateTransition error otherwise.
func Transition(from, to models.SessionState) error {
	if CanTransition(from, to) {
		return nil
	}
	return apperr.Transition(string(from), string(to))
}
