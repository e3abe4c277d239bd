package games

import (
	"time"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
)

const (
	DefaultTimeLimit       = 10 * time.Second
	QuickDecisionThreshold = 3 * time.Second

	DecisionAct  = "act"
	DecisionWait = "wait"
)

type TimingConfig struct {
	Scenarios []string `yaml:"scenarios" json:"scenarios"`
	// TimeLimitSeconds defaults to 10 when zero.
	TimeLimitSeconds int `yaml:"timeLimitSeconds" json:"timeLimitSeconds"`
}

func (c TimingConfig) validate() error {
	if len(c.Scenarios) == 0 {
		return apperr.Configuration("decision-timing needs at least one scenario")
	}
	if c.TimeLimitSeconds < 0 {
		return apperr.Configuration("decision-timing time limit must not be negative")
	}
	return nil
}

func (c TimingConfig) limit() time.Duration {
	if c.TimeLimitSeconds == 0 {
		return DefaultTimeLimit
	}
	return time.Duration(c.TimeLimitSeconds) * time.Second
}

type timingGame struct {
	cfg   TimingConfig
	rnd   Source
	limit time.Duration

	started        bool
	done           bool
	scenario       int // zero-based index of the active scenario
	scenarioStart  time.Time
	startedAt      time.Time
	finishedAt     time.Time
	totalResponse  time.Duration
	timeouts       int
	quickDecisions int
	decisions      []string
}

func newTimingGame(cfg TimingConfig, rnd Source) *timingGame {
	return &timingGame{cfg: cfg, rnd: rnd, limit: cfg.limit()}
}

func (g *timingGame) Type() Type { return DecisionTiming }

func (g *timingGame) Reset(now time.Time) {
	*g = timingGame{
		cfg:           g.cfg,
		rnd:           g.rnd,
		limit:         g.limit,
		started:       true,
		scenarioStart: now,
		startedAt:     now,
		decisions:     make([]string, 0, len(g.cfg.Scenarios)),
	}
}

func (g *timingGame) deadline() time.Time {
	return g.scenarioStart.Add(g.limit)
}

func (g *timingGame) Advance(now time.Time) {
	for g.started && !g.done && !now.Before(g.deadline()) {
		g.expire(g.deadline())
	}
}

func (g *timingGame) Submit(ev Event) error {
	if !g.started {
		return ErrNotStarted
	}
	if g.done {
		return ErrGameOver
	}
	switch ev.Kind {
	case EventTimeout:
		// Timers due by ev.At fire in deadline order; the event only confirms them.
		before := g.scenario
		g.Advance(ev.At)
		if g.scenario == before {
			return ErrTimerNotDue
		}
		return nil
	case EventChoice:
		if ev.Choice != DecisionAct && ev.Choice != DecisionWait {
			return choiceError(ev.Choice)
		}
		g.Advance(ev.At)
		if g.done {
			// The countdown ran out before the choice arrived.
			return nil
		}
		rt := ev.At.Sub(g.scenarioStart)
		if rt < 0 {
			rt = 0
		}
		g.resolve(ev.Choice, rt, ev.At)
		return nil
	}
	return ErrInvalidEvent
}

// expire resolves the active scenario with a random decision charged the full limit.
func (g *timingGame) expire(at time.Time) {
	decision := DecisionWait
	if g.rnd.Float64() < 0.5 {
		decision = DecisionAct
	}
	g.timeouts++
	g.resolve(decision, g.limit, at)
}

func (g *timingGame) resolve(decision string, rt time.Duration, at time.Time) {
	g.totalResponse += rt
	if rt < QuickDecisionThreshold {
		g.quickDecisions++
	}
	g.decisions = append(g.decisions, decision)
	g.scenario++
	g.scenarioStart = at
	if g.scenario >= len(g.cfg.Scenarios) {
		g.done = true
		g.finishedAt = at
	}
}

func (g *timingGame) Done() bool { return g.done }

func (g *timingGame) Result() (Result, error) {
	if !g.done {
		return Result{}, ErrNotDone
	}
	acts := 0
	for _, d := range g.decisions {
		if d == DecisionAct {
			acts++
		}
	}
	total := millis(g.totalResponse)
	return Result{
		Score: 0,
		Metrics: map[string]float64{
			"totalTime":           millis(g.finishedAt.Sub(g.startedAt)),
			"totalResponseTime":   total,
			"averageResponseTime": total / float64(len(g.cfg.Scenarios)),
			"timeouts":            float64(g.timeouts),
			"quickDecisions":      float64(g.quickDecisions),
			"actDecisions":        float64(acts),
		},
	}, nil
}

func (g *timingGame) Status() Status {
	st := Status{
		Type:    DecisionTiming,
		Total:   len(g.cfg.Scenarios),
		Choices: []string{DecisionAct, DecisionWait},
		Done:    g.done,
		Gauges: map[string]float64{
			"timeouts":       float64(g.timeouts),
			"quickDecisions": float64(g.quickDecisions),
		},
	}
	if g.done {
		st.Step = st.Total
		return st
	}
	st.Step = g.scenario + 1
	st.Prompt = g.cfg.Scenarios[g.scenario]
	if g.started {
		d := g.deadline()
		st.Deadline = &d
	}
	return st
}
