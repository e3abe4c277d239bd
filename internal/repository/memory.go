package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/ledger"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

var _ session.Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. It backs tests and the "memory"
// database driver. Reads and writes exchange copies, never shared pointers.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*models.Session
	webhooks  map[string]models.WebhookEvent
	analytics []models.AnalyticsEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*models.Session),
		webhooks: make(map[string]models.WebhookEvent),
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return apperr.Persistence("create session", errDuplicate)
	}
	c := s.Clone()
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	m.sessions[s.ID] = c
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.NotFound("session %s", id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) update(id uuid.UUID, fn func(s *models.Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return apperr.NotFound("session %s", id)
	}
	fn(s)
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) AppendAnswer(_ context.Context, id uuid.UUID, answer models.Answer) error {
	return m.update(id, func(s *models.Session) {
		s.Answers = ledger.Upsert(s.Answers, answer.Clone())
	})
}

func (m *MemoryStore) SetSessionState(_ context.Context, id uuid.UUID, state models.SessionState, at time.Time) error {
	return m.update(id, func(s *models.Session) {
		s.State = state
		if state == models.StateCompleted {
			s.CompletedAt = &at
		}
	})
}

func (m *MemoryStore) SetPaymentStatus(_ context.Context, id uuid.UUID, status models.PaymentStatus) error {
	return m.update(id, func(s *models.Session) { s.PaymentStatus = status })
}

func (m *MemoryStore) SetReportStatus(_ context.Context, id uuid.UUID, status models.ReportStatus) error {
	return m.update(id, func(s *models.Session) { s.ReportStatus = status })
}

func (m *MemoryStore) SaveAnalysis(_ context.Context, id uuid.UUID, analysis []byte) error {
	return m.update(id, func(s *models.Session) { s.Analysis = append([]byte(nil), analysis...) })
}

func (m *MemoryStore) SaveCheckout(_ context.Context, id uuid.UUID, checkoutID string) error {
	return m.update(id, func(s *models.Session) { s.CheckoutID = checkoutID })
}

func (m *MemoryStore) RecordWebhookEvent(_ context.Context, ev models.WebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.webhooks[ev.ID]; seen {
		return false, nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	m.webhooks[ev.ID] = ev
	return true, nil
}

func (m *MemoryStore) ForgetWebhookEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.webhooks, id)
	return nil
}

func (m *MemoryStore) LogAnalytics(_ context.Context, ev models.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	ev.ID = uint(len(m.analytics) + 1)
	m.analytics = append(m.analytics, ev)
	return nil
}

// Analytics returns the logged events, oldest first.
func (m *MemoryStore) Analytics() []models.AnalyticsEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AnalyticsEvent(nil), m.analytics...)
}

func (m *MemoryStore) StaleSessions(_ context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	return m.collect(limit, func(s *models.Session) bool {
		return s.State.Open() && s.StartedAt.Before(before)
	}), nil
}

func (m *MemoryStore) PaidUnreported(_ context.Context, limit int) ([]uuid.UUID, error) {
	return m.collect(limit, func(s *models.Session) bool {
		return s.State == models.StatePaid && s.ReportStatus == models.ReportPending
	}), nil
}

// collect returns matching ids, oldest session first.
func (m *MemoryStore) collect(limit int, match func(s *models.Session) bool) []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []*models.Session
	for _, s := range m.sessions {
		if match(s) {
			hits = append(hits, s)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].StartedAt.Before(hits[j].StartedAt) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	ids := make([]uuid.UUID, len(hits))
	for i, s := range hits {
		ids[i] = s.ID
	}
	return ids
}
