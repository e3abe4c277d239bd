// Package metrics exposes Prometheus collectors for the quiz funnel. A nil *Funnel
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trader_insights"

type Funnel struct {
	sessionsStarted   prometheus.Counter
	answersRecorded   *prometheus.CounterVec
	sessionsCompleted prometheus.Counter
	analysisRequests  *prometheus.CounterVec
	analysisDuration  prometheus.Histogram
	payments          *prometheus.CounterVec
	reports           *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	sessionsByState   *prometheus.GaugeVec
	gamesActive       prometheus.Gauge
}

// NewFunnel registers the funnel collectors with reg.
func NewFunnel(reg prometheus.Registerer) (*Funnel, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := &Funnel{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sessions", Name: "started_total",
			Help: "Sessions started with a valid profile.",
		}),
		answersRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "answers", Name: "recorded_total",
			Help: "Answers recorded, by section.",
		}, []string{"section"}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sessions", Name: "completed_total",
			Help: "Sessions completed with an analysis.",
		}),
		analysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "analysis", Name: "requests_total",
			Help: "Analysis requests by outcome (ok, error).",
		}, []string{"outcome"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "analysis", Name: "duration_seconds",
			Help:    "Time spent waiting for the analysis model.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payments", Name: "applied_total",
			Help: "Payment status changes applied to sessions.",
		}, []string{"status"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reports", Name: "deliveries_total",
			Help: "Report delivery attempts by outcome (sent, error).",
		}, []string{"outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "webhook", Name: "events_total",
			Help: "Payment webhook events by result (applied, duplicate, ignored, rejected).",
		}, []string{"result"}),
		sessionsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "sessions", Name: "by_state",
			Help: "Stored sessions per lifecycle state, refreshed periodically.",
		}, []string{"state"}),
		gamesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "games", Name: "active",
			Help: "Cognitive games currently in progress.",
		}),
	}

	collectors := []prometheus.Collector{
		f.sessionsStarted, f.answersRecorded, f.sessionsCompleted, f.analysisRequests,
		f.analysisDuration, f.payments, f.reports, f.webhookEvents, f.sessionsByState, f.gamesActive,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Funnel) SessionStarted() {
	if f == nil {
		return
	}
	f.sessionsStarted.Inc()
}

func (f *Funnel) AnswerRecorded(section string) {
	if f == nil {
		return
	}
	f.answersRecorded.WithLabelValues(section).Inc()
}

func (f *Funnel) SessionCompleted() {
	if f == nil {
		return
	}
	f.sessionsCompleted.Inc()
}

func (f *Funnel) Analysis(took time.Duration, err error) {
	if f == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	f.analysisRequests.WithLabelValues(outcome).Inc()
	f.analysisDuration.Observe(took.Seconds())
}

func (f *Funnel) Payment(status string) {
	if f == nil {
		return
	}
	f.payments.WithLabelValues(status).Inc()
}

func (f *Funnel) Report(err error) {
	if f == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	f.reports.WithLabelValues(outcome).Inc()
}

func (f *Funnel) Webhook(result string) {
	if f == nil {
		return
	}
	f.webhookEvents.WithLabelValues(result).Inc()
}

// SetSessionsByState replaces the per-state gauge values.
func (f *Funnel) SetSessionsByState(counts map[string]int64) {
	if f == nil {
		return
	}
	f.sessionsByState.Reset()
	for state, n := range counts {
		f.sessionsByState.WithLabelValues(state).Set(float64(n))
	}
}

func (f *Funnel) SetGamesActive(n int) {
	if f == nil {
		return
	}
	f.gamesActive.Set(float64(n))
}
