package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert trading psychologist. You answer with a single JSON object and nothing else."

// BuildPrompt renders the user message sent to the model.
func BuildPrompt(in Input) string {
	sections, _ := json.Marshal(in.Metadata.Sections)
	p := in.UserProfile

	var sb strings.Builder
	sb.WriteString("Analyze the following user data and provide a comprehensive psychological profile for trading.\n\n")

	sb.WriteString("USER CONTEXT:\n")
	fmt.Fprintf(&sb, "- Experience Level: %s\n", p.ExperienceLevel)
	fmt.Fprintf(&sb, "- Age: %d\n", p.Age)
	fmt.Fprintf(&sb, "- Risk Tolerance: %s\n", p.RiskTolerance)
	fmt.Fprintf(&sb, "- Trading Goals: %s\n", strings.Join(p.TradingGoals, ", "))
	fmt.Fprintf(&sb, "- Preferred Markets: %s\n\n", strings.Join(p.PreferredMarkets, ", "))

	sb.WriteString("TEST ANSWERS:\n")
	for _, line := range in.Answers {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	sb.WriteString("\nSESSION DATA:\n")
	fmt.Fprintf(&sb, "- Total Time: %dms\n", in.Metadata.TotalTimeMs)
	fmt.Fprintf(&sb, "- Section Performance: %s\n", sections)
	sb.WriteString("- Per-section time is not measured; ignore timeSpent.\n\n")

	sb.WriteString(analysisGuidelines)
	return sb.String()
}

const analysisGuidelines = `COGNITIVE GAME ANALYSIS GUIDELINES:
1. RISK ASSESSMENT GAME: compare the risk preference level with the stated risk tolerance and name the gap.
2. DECISION TIMING GAME: quick decisions indicate confidence, timeouts suggest overthinking.
3. EMOTIONAL CONTROL GAME: stability percentage and panic reactions reveal real emotional discipline.

Respond with JSON of this shape:
{
  "archetype": {
    "name": "One of: Analytical Trader, Intuitive Trader, Conservative Investor, Aggressive Speculator, Emotional Trader, Disciplined Trader",
    "description": "string",
    "characteristics": ["string"]
  },
  "strengths": [{"category": "string", "description": "string", "score": 0}],
  "weaknesses": [{"category": "string", "description": "string", "risk": "low|medium|high", "recommendations": ["string"]}],
  "gapAnalysis": {"perception": "string", "reality": "string", "blindSpots": ["string"]},
  "tradingRecommendations": {
    "optimalStyle": "string",
    "timeframe": "string",
    "riskManagement": ["string"],
    "developmentPlan": [{"phase": "string", "duration": "string", "actions": ["string"]}]
  },
  "emotionalProfile": {"riskTolerance": 0, "stressResponse": "string", "decisionMaking": "string", "discipline": 0}
}

Focus on gaps between self-perception and demonstrated behavior, actionable recommendations,
emotional patterns and decision-making style, in the Romanian trading context. Write the
text fields in Romanian.
`
