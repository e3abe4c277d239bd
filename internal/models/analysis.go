package models

// AnalysisResult is the structured trader profile returned by the analysis collaborator.
type AnalysisResult struct {
	Archetype              Archetype              `json:"archetype"`
	Strengths              []Strength             `json:"strengths"`
	Weaknesses             []Weakness             `json:"weaknesses"`
	GapAnalysis            GapAnalysis            `json:"gapAnalysis"`
	TradingRecommendations TradingRecommendations `json:"tradingRecommendations"`
	EmotionalProfile       EmotionalProfile       `json:"emotionalProfile"`
}

type Archetype struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Characteristics []string `json:"characteristics"`
}

type Strength struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type Weakness struct {
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	Risk            string   `json:"risk"`
	Recommendations []string `json:"recommendations"`
}

type GapAnalysis struct {
	Perception string   `json:"perception"`
	Reality    string   `json:"reality"`
	BlindSpots []string `json:"blindSpots"`
}

type TradingRecommendations struct {
	OptimalStyle    string            `json:"optimalStyle"`
	Timeframe       string            `json:"timeframe"`
	RiskManagement  []string          `json:"riskManagement"`
	DevelopmentPlan []DevelopmentStep `json:"developmentPlan"`
}

type DevelopmentStep struct {
	Phase    string   `json:"phase"`
	Duration string   `json:"duration"`
	Actions  []string `json:"actions"`
}

type EmotionalProfile struct {
	RiskTolerance  float64 `json:"riskTolerance"`
	StressResponse string  `json:"stressResponse"`
	DecisionMaking string  `json:"decisionMaking"`
	Discipline     float64 `json:"discipline"`
}

// Teaser is the free preview shown before payment.
type Teaser struct {
	Archetype    string `json:"archetype"`
	MainStrength string `json:"mainStrength"`
}

// Teaser derives the preview from the archetype and the first listed strength.
func (r AnalysisResult) Teaser() Teaser {
	t := Teaser{Archetype: r.Archetype.Name, MainStrength: "Analiză detaliată disponibilă"}
	if len(r.Strengths) > 0 && r.Strengths[0].Category != "" {
		t.MainStrength = r.Strengths[0].Category
	}
	return t
}
