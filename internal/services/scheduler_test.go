package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/metrics"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

func TestAbandonStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.answered(t)
	f.clock.Advance(8 * 24 * time.Hour)
	fresh, err := f.funnel.StartSession(ctx, testProfile())
	require.NoError(t, err)

	s := NewScheduler(SchedulerConfig{}, f.sessions, f.store, nil, nil, zap.NewNop()).WithClock(f.clock.Now)
	n, err := s.AbandonStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.StateAbandoned, mustState(t, f, old.ID))
	assert.Equal(t, models.StateCreated, mustState(t, f, fresh.ID))
}

func TestRetryReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.paid(t)
	mailer := &fakeMailer{}
	reports := newReports(f, &fakeRenderer{}, mailer)

	s := NewScheduler(SchedulerConfig{}, f.sessions, f.store, reports, nil, zap.NewNop())
	n, err := s.RetryReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.StateReported, mustState(t, f, sess.ID))

	n, err = s.RetryReports(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRefreshStats(t *testing.T) {
	f := newFixture(t)
	f.answered(t)
	f.paid(t)

	m, err := metrics.NewFunnel(prometheus.NewRegistry())
	require.NoError(t, err)
	s := NewScheduler(SchedulerConfig{}, f.sessions, f.store, nil, m, zap.NewNop())
	assert.NoError(t, s.RefreshStats(context.Background()))
}

func TestSchedulerStartRejectsBadSpec(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(SchedulerConfig{CleanupSpec: "every tuesday"}, f.sessions, f.store, nil, nil, zap.NewNop())
	assert.Error(t, s.Start())
}

func TestSchedulerStartStop(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(SchedulerConfig{}, f.sessions, f.store, nil, nil, zap.NewNop())
	require.NoError(t, s.Start())
	s.Stop()
}
