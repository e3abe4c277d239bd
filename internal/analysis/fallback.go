package analysis

import "github.com/TraderInsightsLab/Sistem/internal/models"

// Fallback is the deterministic profile used when the model's answer cannot be used.
// It depends only on the declared risk tolerance; the scores are neutral defaults, not
// measurements.
func Fallback(p models.UserProfile) models.AnalysisResult {
	archetype := "Analytical Trader"
	riskScore := 65.0
	style, timeframe := "Swing Trading", "1-5 zile"
	switch p.RiskTolerance {
	case models.RiskToleranceHigh:
		archetype = "Aggressive Speculator"
		riskScore = 80
		style, timeframe = "Day Trading", "Intraday"
	case models.RiskToleranceLow:
		archetype = "Conservative Investor"
		riskScore = 40
	}

	return models.AnalysisResult{
		Archetype: models.Archetype{
			Name:            archetype,
			Description:     "Profil determinat pe baza preferințelor declarate și comportamentului observat în test.",
			Characteristics: []string{"Sistematic", "Precaut", "Orientat spre date"},
		},
		Strengths: []models.Strength{{
			Category:    "Abordare metodică",
			Description: "Demonstrezi o abordare sistematică în luarea deciziilor",
			Score:       75,
		}},
		Weaknesses: []models.Weakness{{
			Category:    "Adaptabilitate",
			Description: "Poți avea dificultăți în adaptarea rapidă la schimbări de piață",
			Risk:        "medium",
			Recommendations: []string{
				"Practică simulări cu condiții de piață volatile",
				"Dezvoltă planuri alternative pentru diferite scenarii",
			},
		}},
		GapAnalysis: models.GapAnalysis{
			Perception: "Te consideri o persoană disciplinată și rațională",
			Reality:    "Testul confirmă multe dintre aceste caracteristici",
			BlindSpots: []string{"Posibilă subestimare a impactului emoțiilor în decizii"},
		},
		TradingRecommendations: models.TradingRecommendations{
			OptimalStyle: style,
			Timeframe:    timeframe,
			RiskManagement: []string{
				"Setează stop-loss automat pentru toate pozițiile",
				"Nu depăși 2-3% risc per tranzacție",
				"Ține un jurnal de trading pentru analiza performanței",
			},
			DevelopmentPlan: []models.DevelopmentStep{{
				Phase:    "Consolidare",
				Duration: "1-3 luni",
				Actions: []string{
					"Studiază principiile analizei tehnice",
					"Practică pe cont demo minim 50 de tranzacții",
					"Dezvoltă un plan de trading personalizat",
				},
			}},
		},
		EmotionalProfile: models.EmotionalProfile{
			RiskTolerance:  riskScore,
			StressResponse: "Calm sub presiune moderată",
			DecisionMaking: "Preferă analiza înainte de acțiune",
			Discipline:     75,
		},
	}
}
