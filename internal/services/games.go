package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/games"
	"github.com/TraderInsightsLab/Sistem/internal/metrics"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// GameProgress is the state of a game after an event.
type GameProgress struct {
	Status games.Status  `json:"status"`
	Result *games.Result `json:"result,omitempty"`
}

type runningGame struct {
	mu      sync.Mutex
	game    games.Game
	started time.Time
}

// GameService hosts in-flight cognitive games. A finished game is recorded as the
// question's answer. Games that expire or are evicted are dropped without an answer.
type GameService struct {
	funnel  *Funnel
	running *expirable.LRU[string, *runningGame]
	source  func() games.Source
	metrics *metrics.Funnel
	log     *zap.Logger
	now     func() time.Time
}

func NewGameService(funnel *Funnel, capacity int, ttl time.Duration, m *metrics.Funnel, log *zap.Logger) *GameService {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &GameService{
		funnel:  funnel,
		source:  games.NewSource,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
	s.running = expirable.NewLRU[string, *runningGame](capacity, func(key string, _ *runningGame) {
		s.log.Debug("Game dropped", zap.String("key", key))
	}, ttl)
	return s
}

// WithSource replaces the random source factory, for tests.
func (s *GameService) WithSource(src func() games.Source) *GameService {
	s.source = src
	return s
}

// WithClock replaces the wall clock, for tests.
func (s *GameService) WithClock(now func() time.Time) *GameService {
	s.now = now
	return s
}

func gameKey(sessionID uuid.UUID, questionID string) string {
	return sessionID.String() + "/" + questionID
}

// Start (re)starts the game behind questionID. Restarting discards earlier progress.
func (s *GameService) Start(ctx context.Context, sessionID uuid.UUID, questionID string) (games.Status, error) {
	sess, err := s.funnel.Sessions().Get(ctx, sessionID)
	if err != nil {
		return games.Status{}, err
	}
	if !sess.State.Open() {
		return games.Status{}, apperr.SessionClosed(sessionID.String(), string(sess.State))
	}
	q, ok := s.funnel.Sessions().Catalog().Question(questionID)
	if !ok {
		return games.Status{}, apperr.NotFound("question %s", questionID)
	}
	if q.Type != models.CognitiveGame || q.Game == nil {
		return games.Status{}, apperr.Validation("question %s is not a cognitive game", questionID)
	}

	g, err := games.New(*q.Game, s.source())
	if err != nil {
		return games.Status{}, err
	}
	now := s.now()
	g.Reset(now)
	s.running.Add(gameKey(sessionID, questionID), &runningGame{game: g, started: now})
	s.metrics.SetGamesActive(s.running.Len())
	return g.Status(), nil
}

// Submit feeds one event. When the game finishes its result is recorded as the answer.
func (s *GameService) Submit(ctx context.Context, sessionID uuid.UUID, questionID string, ev games.Event) (GameProgress, error) {
	key := gameKey(sessionID, questionID)
	rg, ok := s.running.Get(key)
	if !ok {
		return GameProgress{}, apperr.NotFound("no running game for question %s", questionID)
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()

	now := s.now()
	if ev.At.IsZero() {
		ev.At = now
	}
	if err := rg.game.Submit(ev); err != nil {
		return GameProgress{}, err
	}
	return s.finishIfDone(ctx, sessionID, questionID, rg, now)
}

// Poll fires due timers and reports the current state.
func (s *GameService) Poll(ctx context.Context, sessionID uuid.UUID, questionID string) (GameProgress, error) {
	rg, ok := s.running.Get(gameKey(sessionID, questionID))
	if !ok {
		return GameProgress{}, apperr.NotFound("no running game for question %s", questionID)
	}
	rg.mu.Lock()
	defer rg.mu.Unlock()

	now := s.now()
	rg.game.Advance(now)
	return s.finishIfDone(ctx, sessionID, questionID, rg, now)
}

func (s *GameService) finishIfDone(ctx context.Context, sessionID uuid.UUID, questionID string, rg *runningGame, now time.Time) (GameProgress, error) {
	progress := GameProgress{Status: rg.game.Status()}
	if !rg.game.Done() {
		return progress, nil
	}
	result, err := rg.game.Result()
	if err != nil {
		return GameProgress{}, err
	}
	answer := models.Answer{
		QuestionID:   questionID,
		Value:        models.TextValue("completed"),
		Timestamp:    now.UnixMilli(),
		ResponseTime: now.Sub(rg.started).Milliseconds(),
		GameResults:  &result,
	}
	if _, err := s.funnel.recordAnswer(ctx, sessionID, answer); err != nil {
		return GameProgress{}, err
	}
	s.running.Remove(gameKey(sessionID, questionID))
	s.metrics.SetGamesActive(s.running.Len())
	progress.Result = &result
	return progress, nil
}

// Cancel drops a running game without recording anything.
func (s *GameService) Cancel(sessionID uuid.UUID, questionID string) bool {
	removed := s.running.Remove(gameKey(sessionID, questionID))
	s.metrics.SetGamesActive(s.running.Len())
	return removed
}

func (s *GameService) Active() int {
	return s.running.Len()
}
