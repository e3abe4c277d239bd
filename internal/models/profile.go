package models

import (
	"strings"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/utils"

	"github.com/lib/pq"
)

type ExperienceLevel string

const (
	Beginner     ExperienceLevel = "beginner"
	Intermediate ExperienceLevel = "intermediate"
	Advanced     ExperienceLevel = "advanced"
)

type RiskTolerance string

const (
	RiskToleranceLow    RiskTolerance = "low"
	RiskToleranceMedium RiskTolerance = "medium"
	RiskToleranceHigh   RiskTolerance = "high"
)

const (
	MinAge = 18
	MaxAge = 100
)

// UserProfile is captured once when a session starts and never changes afterwards.
type UserProfile struct {
	Email            string          `gorm:"index" json:"email"`
	Age              int             `json:"age"`
	ExperienceLevel  ExperienceLevel `gorm:"type:varchar(16)" json:"experienceLevel"`
	RiskTolerance    RiskTolerance   `gorm:"type:varchar(16)" json:"riskTolerance"`
	TradingGoals     pq.StringArray  `gorm:"type:text[]" json:"tradingGoals"`
	PreferredMarkets pq.StringArray  `gorm:"type:text[]" json:"preferredMarkets"`
}

// Normalize trims and lower-cases the email and de-duplicates the goal and market sets,
// keeping the first occurrence of each entry.
func (p UserProfile) Normalize() UserProfile {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.ExperienceLevel = ExperienceLevel(strings.ToLower(strings.TrimSpace(string(p.ExperienceLevel))))
	p.RiskTolerance = RiskTolerance(strings.ToLower(strings.TrimSpace(string(p.RiskTolerance))))
	p.TradingGoals = dedupe(p.TradingGoals)
	p.PreferredMarkets = dedupe(p.PreferredMarkets)
	return p
}

func dedupe(items []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// Validate checks the fields required before a session may be created.
func (p UserProfile) Validate() error {
	if p.Email == "" {
		return apperr.Validation("email is required")
	}
	if !utils.IsValidEmail(p.Email) {
		return apperr.Validation("email %q is not valid", p.Email)
	}
	if p.Age < MinAge || p.Age > MaxAge {
		return apperr.Validation("age must be between %d and %d", MinAge, MaxAge)
	}
	switch p.ExperienceLevel {
	case Beginner, Intermediate, Advanced:
	case "":
		return apperr.Validation("experience level is required")
	default:
		return apperr.Validation("unknown experience level %q", p.ExperienceLevel)
	}
	switch p.RiskTolerance {
	case RiskToleranceLow, RiskToleranceMedium, RiskToleranceHigh:
	case "":
		return apperr.Validation("risk tolerance is required")
	default:
		return apperr.Validation("unknown risk tolerance %q", p.RiskTolerance)
	}
	return nil
}

// Clone returns a deep copy.
func (p UserProfile) Clone() UserProfile {
	p.TradingGoals = append(pq.StringArray(nil), p.TradingGoals...)
	p.PreferredMarkets = append(pq.StringArray(nil), p.PreferredMarkets...)
	return p
}
