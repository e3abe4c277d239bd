package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionState string

const (
	StateCreated    SessionState = "created"
	StateInProgress SessionState = "in-progress"
	StateCompleted  SessionState = "completed"
	StatePaid       SessionState = "paid"
	StateReported   SessionState = "reported"
	StateAbandoned  SessionState = "abandoned"
)

// Open reports whether answers may still be recorded.
func (s SessionState) Open() bool {
	return s == StateCreated || s == StateInProgress
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportGenerated ReportStatus = "generated"
	ReportSent      ReportStatus = "sent"
)

// Session is one user's attempt at the questionnaire.
type Session struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Profile        UserProfile                 `gorm:"embedded;embeddedPrefix:profile_" json:"userProfile"`
	CatalogVersion string                      `gorm:"type:varchar(32)" json:"catalogVersion"`
	Answers        datatypes.JSONSlice[Answer] `gorm:"type:jsonb" json:"answers"`
	State          SessionState                `gorm:"type:varchar(16);index" json:"state"`
	StartedAt      time.Time                   `gorm:"index" json:"startedAt"`
	CompletedAt    *time.Time                  `json:"completedAt,omitempty"`
	PaymentStatus  PaymentStatus               `gorm:"type:varchar(16)" json:"paymentStatus"`
	ReportStatus   ReportStatus                `gorm:"type:varchar(16)" json:"reportStatus"`
	CheckoutID     string                      `gorm:"index" json:"checkoutId,omitempty"`
	Analysis       datatypes.JSON              `json:"-"`
	CreatedAt      time.Time                   `json:"-"`
	UpdatedAt      time.Time                   `json:"-"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	out.Profile = s.Profile.Clone()
	if s.Answers != nil {
		out.Answers = make(datatypes.JSONSlice[Answer], len(s.Answers))
		for i, a := range s.Answers {
			out.Answers[i] = a.Clone()
		}
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.Analysis != nil {
		out.Analysis = append(datatypes.JSON(nil), s.Analysis...)
	}
	return &out
}

// StartedAtMillis is StartedAt in epoch milliseconds, the unit of answer timestamps.
func (s *Session) StartedAtMillis() int64 {
	return s.StartedAt.UnixMilli()
}

// AnalyticsEvent is one entry of the append-only funnel log.
type AnalyticsEvent struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:varchar(64);index" json:"name"`
	SessionID uuid.UUID         `gorm:"type:uuid;index" json:"sessionId"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

const (
	EventTestStarted      = "test_started"
	EventAnswerSaved      = "answer_saved"
	EventTestCompleted    = "test_completed"
	EventPaymentCompleted = "payment_completed"
	EventPaymentFailed    = "payment_failed"
	EventReportSent       = "report_sent"
	EventReportError      = "report_error"
)

// WebhookEvent records a processed payment event so replays can be detected.
type WebhookEvent struct {
	ID        string    `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Type      string    `gorm:"type:varchar(64)" json:"type"`
	SessionID uuid.UUID `gorm:"type:uuid;index" json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}
