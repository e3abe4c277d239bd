// Package games runs the three cognitive mini-games and reduces their event streams
// to a score plus an open map of behavioral metrics.
//
// Every game is a single-threaded state machine. Timers are cooperative: a game
// exposes its next deadline and fires any due timer before it applies an event, so
// a driver only needs to feed choices, explicit timeouts, or Advance calls in order.
package games

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
)

// Type tags a game configuration.
type Type string

const (
	RiskAssessment   Type = "risk-assessment"
	DecisionTiming   Type = "decision-timing"
	EmotionalControl Type = "emotional-control"
)

// Config selects one game and carries its parameters. Exactly the block matching
// Type must be present.
type Config struct {
	Type      Type             `yaml:"type" json:"type"`
	Risk      *RiskConfig      `yaml:"risk,omitempty" json:"risk,omitempty"`
	Timing    *TimingConfig    `yaml:"timing,omitempty" json:"timing,omitempty"`
	Emotional *EmotionalConfig `yaml:"emotional,omitempty" json:"emotional,omitempty"`
}

type EventKind string

const (
	EventChoice  EventKind = "choice"
	EventTimeout EventKind = "timeout"
)

// Event is one discrete input: a user choice or the expiry of the current countdown.
type Event struct {
	Kind   EventKind `json:"kind"`
	Choice string    `json:"choice,omitempty"`
	At     time.Time `json:"-"`
}

// Result is the reduction of a finished game.
type Result struct {
	Score   float64            `json:"score"`
	Metrics map[string]float64 `json:"metrics"`
}

// Status is a client-facing snapshot of a running game.
type Status struct {
	Type     Type               `json:"type"`
	Step     int                `json:"step"`
	Total    int                `json:"total"`
	Prompt   string             `json:"prompt,omitempty"`
	Choices  []string           `json:"choices,omitempty"`
	Deadline *time.Time         `json:"deadline,omitempty"`
	Done     bool               `json:"done"`
	Gauges   map[string]float64 `json:"gauges,omitempty"`
}

// Game is the capability shared by all three games.
type Game interface {
	Type() Type
	// Reset (re)starts the game at now, discarding any progress.
	Reset(now time.Time)
	// Submit fires due timers and then applies ev.
	Submit(ev Event) error
	// Advance fires every timer due at or before now.
	Advance(now time.Time)
	Done() bool
	Result() (Result, error)
	Status() Status
}

// Source is the pseudo-random source used for coin flips and auto-decisions.
type Source interface {
	Float64() float64
}

var (
	ErrNotStarted   = fmt.Errorf("%w: game has not been started", apperr.ErrValidation)
	ErrGameOver     = fmt.Errorf("%w: game is already finished", apperr.ErrValidation)
	ErrNotDone      = fmt.Errorf("%w: game is still running", apperr.ErrValidation)
	ErrInvalidEvent = fmt.Errorf("%w: invalid game event", apperr.ErrValidation)
	// ErrTimerNotDue rejects a timeout event that arrives before the countdown it ends.
	ErrTimerNotDue = fmt.Errorf("%w: countdown has not expired", ErrInvalidEvent)
)

// NewSource returns a time-seeded Source.
func NewSource() Source {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>17))
}

// New builds the game selected by cfg.Type. Unknown types and malformed parameter
// blocks fail with a configuration error.
func New(cfg Config, rnd Source) (Game, error) {
	if rnd == nil {
		rnd = NewSource()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case RiskAssessment:
		return newRiskGame(*cfg.Risk, rnd), nil
	case DecisionTiming:
		return newTimingGame(*cfg.Timing, rnd), nil
	case EmotionalControl:
		return newEmotionalGame(*cfg.Emotional), nil
	}
	return nil, apperr.Configuration("unknown game type %q", cfg.Type)
}

// Validate checks cfg without building a game.
func Validate(cfg Config) error {
	switch cfg.Type {
	case RiskAssessment:
		if cfg.Risk == nil {
			return apperr.Configuration("game %q is missing its risk block", cfg.Type)
		}
		return cfg.Risk.validate()
	case DecisionTiming:
		if cfg.Timing == nil {
			return apperr.Configuration("game %q is missing its timing block", cfg.Type)
		}
		return cfg.Timing.validate()
	case EmotionalControl:
		if cfg.Emotional == nil {
			return apperr.Configuration("game %q is missing its emotional block", cfg.Type)
		}
		return cfg.Emotional.validate()
	default:
		return apperr.Configuration("unknown game type %q", cfg.Type)
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

func clampState(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func choiceError(choice string) error {
	return fmt.Errorf("%w: unknown choice %q", ErrInvalidEvent, choice)
}
