package games

import (
	"math"
	"time"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
)

type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Weight is the riskLevel contribution of choosing an option of this tier.
func (t RiskTier) Weight() float64 {
	switch t {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return 0
}

type RiskOption struct {
	ID            string   `yaml:"id" json:"id"`
	Tier          RiskTier `yaml:"risk" json:"risk"`
	PotentialGain float64  `yaml:"potential" json:"potential"`
	PotentialLoss float64  `yaml:"loss" json:"loss"`
}

type RiskConfig struct {
	InitialAmount float64      `yaml:"initialAmount" json:"initialAmount"`
	Rounds        int          `yaml:"rounds" json:"rounds"`
	Options       []RiskOption `yaml:"options" json:"options"`
}

func (c RiskConfig) validate() error {
	if c.Rounds < 1 {
		return apperr.Configuration("risk-assessment needs at least one round, got %d", c.Rounds)
	}
	if c.InitialAmount < 0 {
		return apperr.Configuration("risk-assessment initial amount must not be negative")
	}
	if len(c.Options) == 0 {
		return apperr.Configuration("risk-assessment needs at least one option")
	}
	seen := make(map[string]bool, len(c.Options))
	for _, o := range c.Options {
		if o.ID == "" || seen[o.ID] {
			return apperr.Configuration("risk-assessment option ids must be unique and non-empty (%q)", o.ID)
		}
		seen[o.ID] = true
		if o.Tier.Weight() == 0 {
			return apperr.Configuration("risk-assessment option %q has unknown tier %q", o.ID, o.Tier)
		}
		if o.PotentialGain < 0 || o.PotentialLoss < 0 {
			return apperr.Configuration("risk-assessment option %q has negative gain or loss", o.ID)
		}
	}
	return nil
}

type riskGame struct {
	cfg RiskConfig
	rnd Source

	started      bool
	done         bool
	round        int
	amount       float64
	score        float64
	riskLevel    float64
	responseTime time.Duration
	startedAt    time.Time
	roundStart   time.Time
	finishedAt   time.Time
}

func newRiskGame(cfg RiskConfig, rnd Source) *riskGame {
	return &riskGame{cfg: cfg, rnd: rnd}
}

func (g *riskGame) Type() Type { return RiskAssessment }

func (g *riskGame) Reset(now time.Time) {
	*g = riskGame{
		cfg:        g.cfg,
		rnd:        g.rnd,
		started:    true,
		round:      1,
		amount:     g.cfg.InitialAmount,
		startedAt:  now,
		roundStart: now,
	}
}

// Advance is a no-op: rounds are not timed.
func (g *riskGame) Advance(time.Time) {}

func (g *riskGame) Submit(ev Event) error {
	if !g.started {
		return ErrNotStarted
	}
	if g.done {
		return ErrGameOver
	}
	if ev.Kind != EventChoice {
		return ErrInvalidEvent
	}
	opt, ok := g.option(ev.Choice)
	if !ok {
		return choiceError(ev.Choice)
	}

	if rt := ev.At.Sub(g.roundStart); rt > 0 {
		g.responseTime += rt
	}
	// Coin flip with win probability exactly one half.
	if g.rnd.Float64() < 0.5 {
		g.amount += opt.PotentialGain
		g.score += opt.PotentialGain
	} else {
		g.amount = math.Max(0, g.amount-opt.PotentialLoss)
	}
	g.riskLevel += opt.Tier.Weight()

	if g.round >= g.cfg.Rounds {
		g.done = true
		g.finishedAt = ev.At
		return nil
	}
	g.round++
	g.roundStart = ev.At
	return nil
}

func (g *riskGame) option(id string) (RiskOption, bool) {
	for _, o := range g.cfg.Options {
		if o.ID == id {
			return o, true
		}
	}
	return RiskOption{}, false
}

func (g *riskGame) Done() bool { return g.done }

func (g *riskGame) Result() (Result, error) {
	if !g.done {
		return Result{}, ErrNotDone
	}
	total := millis(g.responseTime)
	return Result{
		Score: g.score,
		Metrics: map[string]float64{
			"totalTime":           millis(g.finishedAt.Sub(g.startedAt)),
			"totalResponseTime":   total,
			"averageResponseTime": total / float64(g.cfg.Rounds),
			"riskLevel":           g.riskLevel,
			"finalAmount":         g.amount,
		},
	}, nil
}

func (g *riskGame) Status() Status {
	choices := make([]string, 0, len(g.cfg.Options))
	for _, o := range g.cfg.Options {
		choices = append(choices, o.ID)
	}
	return Status{
		Type:    RiskAssessment,
		Step:    g.round,
		Total:   g.cfg.Rounds,
		Choices: choices,
		Done:    g.done,
		Gauges: map[string]float64{
			"currentAmount": g.amount,
			"score":         g.score,
		},
	}
}
