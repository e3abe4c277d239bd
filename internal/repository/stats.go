// internal/repository/stats.go
package repository

import (
	"context"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

type StateCount struct {
	State models.SessionState `json:"state"`
	Count int64               `json:"count"`
}

// CountByState aggregates sessions per lifecycle state for the funnel gauges.
func (s *GormStore) CountByState(ctx context.Context) ([]StateCount, error) {
	var rows []StateCount
	query := `
		SELECT state, COUNT(*) AS count
		FROM sessions
		GROUP BY state
		ORDER BY state;
	`
	err := s.db.WithContext(ctx).Raw(query).Scan(&rows).Error
	return rows, apperr.Persistence("count sessions by state", err)
}

func (m *MemoryStore) CountByState(_ context.Context) ([]StateCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[models.SessionState]int64)
	for _, s := range m.sessions {
		counts[s.State]++
	}
	var rows []StateCount
	for _, state := range []models.SessionState{
		models.StateAbandoned, models.StateCompleted, models.StateCreated,
		models.StateInProgress, models.StatePaid, models.StateReported,
	} {
		if n := counts[state]; n > 0 {
			rows = append(rows, StateCount{State: state, Count: n})
		}
	}
	return rows, nil
}
