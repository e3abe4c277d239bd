package analysis

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// ParseResult decodes the model's reply. Replies wrapped in code fences or surrounded by
// prose are unwrapped, and broken JSON is repaired once. An unusable reply yields the
// profile fallback with fellBack=true; missing sections of a usable reply are filled from it.
func ParseResult(reply string, profile models.UserProfile) (result models.AnalysisResult, fellBack bool) {
	fallback := Fallback(profile)

	body := extractJSON(reply)
	if body == "" {
		return fallback, true
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(body)
		if rerr != nil {
			return fallback, true
		}
		result = models.AnalysisResult{}
		if err := json.Unmarshal([]byte(repaired), &result); err != nil {
			return fallback, true
		}
	}
	if strings.TrimSpace(result.Archetype.Name) == "" {
		return fallback, true
	}
	return complete(result, fallback), false
}

func extractJSON(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	if end := strings.LastIndex(s, "}"); end > start {
		return s[start : end+1]
	}
	// Truncated output: hand the tail to the repairer.
	return s[start:]
}

func complete(r, fb models.AnalysisResult) models.AnalysisResult {
	if r.Archetype.Description == "" {
		r.Archetype.Description = fb.Archetype.Description
	}
	if len(r.Archetype.Characteristics) == 0 {
		r.Archetype.Characteristics = fb.Archetype.Characteristics
	}
	if len(r.Strengths) == 0 {
		r.Strengths = fb.Strengths
	}
	for i := range r.Strengths {
		r.Strengths[i].Score = clampScore(r.Strengths[i].Score)
	}
	if len(r.Weaknesses) == 0 {
		r.Weaknesses = fb.Weaknesses
	}
	for i, w := range r.Weaknesses {
		switch w.Risk {
		case "low", "medium", "high":
		default:
			r.Weaknesses[i].Risk = "medium"
		}
	}
	g := &r.GapAnalysis
	if g.Perception == "" {
		g.Perception = fb.GapAnalysis.Perception
	}
	if g.Reality == "" {
		g.Reality = fb.GapAnalysis.Reality
	}
	if len(g.BlindSpots) == 0 {
		g.BlindSpots = fb.GapAnalysis.BlindSpots
	}
	t := &r.TradingRecommendations
	if t.OptimalStyle == "" {
		t.OptimalStyle = fb.TradingRecommendations.OptimalStyle
	}
	if t.Timeframe == "" {
		t.Timeframe = fb.TradingRecommendations.Timeframe
	}
	if len(t.RiskManagement) == 0 {
		t.RiskManagement = fb.TradingRecommendations.RiskManagement
	}
	if len(t.DevelopmentPlan) == 0 {
		t.DevelopmentPlan = fb.TradingRecommendations.DevelopmentPlan
	}
	e := &r.EmotionalProfile
	if e.RiskTolerance == 0 {
		e.RiskTolerance = fb.EmotionalProfile.RiskTolerance
	}
	if e.StressResponse == "" {
		e.StressResponse = fb.EmotionalProfile.StressResponse
	}
	if e.DecisionMaking == "" {
		e.DecisionMaking = fb.EmotionalProfile.DecisionMaking
	}
	if e.Discipline == 0 {
		e.Discipline = fb.EmotionalProfile.Discipline
	}
	e.RiskTolerance = clampScore(e.RiskTolerance)
	e.Discipline = clampScore(e.Discipline)
	return r
}

func clampScore(v float64) float64 {
	return min(100, max(0, v))
}
