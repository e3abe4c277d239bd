package report

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TraderInsightsLab/Sistem/internal/models"
)

func sampleDocument() Document {
	return Document{
		SessionID:   uuid.MustParse("0b9c7a1e-3f4d-4c55-9d1e-7a0c2b3d4e5f"),
		Email:       "ana@example.com",
		GeneratedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Result: models.AnalysisResult{
			Archetype: models.Archetype{Name: "Disciplined Trader", Description: "<b>calm</b>", Characteristics: []string{"Răbdător"}},
			Strengths: []models.Strength{{Category: "Răbdare", Description: "d", Score: 82.4}},
			Weaknesses: []models.Weakness{{
				Category: "FOMO", Description: "d", Risk: "high", Recommendations: []string{"Jurnal zilnic"},
			}},
			GapAnalysis: models.GapAnalysis{Perception: "p", Reality: "r", BlindSpots: []string{"Overtrading"}},
			TradingRecommendations: models.TradingRecommendations{
				OptimalStyle: "Swing Trading", Timeframe: "1-5 zile",
				DevelopmentPlan: []models.DevelopmentStep{{Phase: "Consolidare", Duration: "1-3 luni", Actions: []string{"Demo"}}},
			},
			EmotionalProfile: models.EmotionalProfile{RiskTolerance: 65, Discipline: 75},
		},
	}
}

func TestHTMLRendersAnalysis(t *testing.T) {
	out, err := HTML(sampleDocument())
	require.NoError(t, err)

	assert.Contains(t, out, "Disciplined Trader")
	assert.Contains(t, out, "14.03.2025 09:30")
	assert.Contains(t, out, "82%")
	assert.Contains(t, out, "Risc ridicat")
	assert.Contains(t, out, "Overtrading")
	assert.Contains(t, out, "Consolidare")
	assert.Contains(t, out, "&lt;b&gt;calm&lt;/b&gt;")
	assert.NotContains(t, out, "<b>calm</b>")
}

func TestHTMLWithEmptyResult(t *testing.T) {
	_, err := HTML(Document{SessionID: uuid.New()})
	assert.NoError(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "raport-profil-trader-0b9c7a1e.pdf", FileName(sampleDocument().SessionID))
}

func TestChromeRendererPrintsPDF(t *testing.T) {
	path := ""
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		t.Skip("no chrome binary available")
	}

	r := NewChromeRenderer(path, time.Minute, nil)
	pdf, err := r.Render(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
