package games

import (
	"math"
	"time"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
)

const (
	ImpactDelay    = 2 * time.Second
	ReactionWindow = 8 * time.Second

	initialEmotionalState = 50
	stableReactionScore   = 4
	stateSmoothing        = 0.1
)

type Reaction string

const (
	ReactionCalm     Reaction = "calm"
	ReactionStressed Reaction = "stressed"
	ReactionPanic    Reaction = "panic"
	ReactionNone     Reaction = "no-reaction"
)

var reactionTable = map[Reaction]struct {
	score      int
	adjustment int
}{
	ReactionCalm:     {score: 5, adjustment: 5},
	ReactionStressed: {score: 3, adjustment: -2},
	ReactionPanic:    {score: 1, adjustment: -5},
	ReactionNone:     {score: 2, adjustment: -1},
}

type StressEvent struct {
	Text   string `yaml:"text" json:"text"`
	Impact int    `yaml:"impact" json:"impact"`
	Kind   string `yaml:"type" json:"type"`
}

type EmotionalConfig struct {
	Events []StressEvent `yaml:"events" json:"events"`
}

func (c EmotionalConfig) validate() error {
	if len(c.Events) == 0 {
		return apperr.Configuration("emotional-control needs at least one event")
	}
	return nil
}

type emotionalGame struct {
	cfg EmotionalConfig

	started       bool
	done          bool
	event         int
	eventStart    time.Time
	impactApplied bool
	state         int
	averageState  float64
	totalScore    int
	stable        int
	calm          int
	panics        int
	totalResponse time.Duration
	startedAt     time.Time
	finishedAt    time.Time
}

func newEmotionalGame(cfg EmotionalConfig) *emotionalGame {
	return &emotionalGame{cfg: cfg, state: initialEmotionalState, averageState: initialEmotionalState}
}

func (g *emotionalGame) Type() Type { return EmotionalControl }

func (g *emotionalGame) Reset(now time.Time) {
	*g = emotionalGame{
		cfg:          g.cfg,
		started:      true,
		eventStart:   now,
		state:        initialEmotionalState,
		averageState: initialEmotionalState,
		startedAt:    now,
	}
}

func (g *emotionalGame) Advance(now time.Time) {
	for g.started && !g.done {
		switch {
		case !g.impactApplied && !now.Before(g.eventStart.Add(ImpactDelay)):
			g.applyImpact()
		case !now.Before(g.eventStart.Add(ReactionWindow)):
			g.react(ReactionNone, g.eventStart.Add(ReactionWindow))
		default:
			return
		}
	}
}

func (g *emotionalGame) Submit(ev Event) error {
	if !g.started {
		return ErrNotStarted
	}
	if g.done {
		return ErrGameOver
	}
	switch ev.Kind {
	case EventTimeout:
		before := g.event
		g.Advance(ev.At)
		if g.event == before {
			return ErrTimerNotDue
		}
		return nil
	case EventChoice:
		r := Reaction(ev.Choice)
		if _, ok := reactionTable[r]; !ok {
			return choiceError(ev.Choice)
		}
		g.Advance(ev.At)
		if g.done {
			return nil
		}
		g.react(r, ev.At)
		return nil
	}
	return ErrInvalidEvent
}

func (g *emotionalGame) applyImpact() {
	g.state = clampState(g.state + g.cfg.Events[g.event].Impact)
	g.impactApplied = true
}

func (g *emotionalGame) react(r Reaction, at time.Time) {
	entry := reactionTable[r]
	if rt := at.Sub(g.eventStart); rt > 0 {
		g.totalResponse += rt
	}
	g.totalScore += entry.score
	if entry.score >= stableReactionScore {
		g.stable++
	}
	switch r {
	case ReactionCalm:
		g.calm++
	case ReactionPanic:
		g.panics++
	}
	g.state = clampState(g.state + entry.adjustment)
	g.averageState = g.averageState*(1-stateSmoothing) + float64(g.state)*stateSmoothing

	g.event++
	g.eventStart = at
	g.impactApplied = false
	if g.event >= len(g.cfg.Events) {
		g.done = true
		g.finishedAt = at
	}
}

func (g *emotionalGame) Done() bool { return g.done }

func (g *emotionalGame) Result() (Result, error) {
	if !g.done {
		return Result{}, ErrNotDone
	}
	total := len(g.cfg.Events)
	stability := math.Round(100 * float64(g.stable) / float64(total))
	return Result{
		Score: float64(g.totalScore),
		Metrics: map[string]float64{
			"finalEmotionalState":   float64(g.state),
			"stabilityPercentage":   stability,
			"calmReactions":         float64(g.calm),
			"panicReactions":        float64(g.panics),
			"averageEmotionalState": math.Round(g.averageState*100) / 100,
			"totalScore":            float64(g.totalScore),
			"totalResponseTime":     millis(g.totalResponse),
		},
	}, nil
}

func (g *emotionalGame) Status() Status {
	st := Status{
		Type:  EmotionalControl,
		Total: len(g.cfg.Events),
		Choices: []string{
			string(ReactionCalm), string(ReactionStressed), string(ReactionPanic), string(ReactionNone),
		},
		Done:   g.done,
		Gauges: map[string]float64{"emotionalState": float64(g.state)},
	}
	if g.done {
		st.Step = st.Total
		return st
	}
	st.Step = g.event + 1
	st.Prompt = g.cfg.Events[g.event].Text
	if g.started {
		d := g.eventStart.Add(ReactionWindow)
		st.Deadline = &d
	}
	return st
}
