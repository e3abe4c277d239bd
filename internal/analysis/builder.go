// Package analysis turns a finished session into the payload for the analysis model,
// talks to the model, and parses or substitutes its answer.
package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/games"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// SectionStats counts the answers of one section. Per-section time cannot be derived from
// answer timestamps, so TimeSpentMs stays 0 and TimeMeasured false.
type SectionStats struct {
	QuestionsAnswered int   `json:"questionsAnswered"`
	TimeSpentMs       int64 `json:"timeSpent"`
	TimeMeasured      bool  `json:"timeMeasured"`
}

type Metadata struct {
	TotalTimeMs int64                           `json:"totalTime"`
	Sections    map[models.Section]SectionStats `json:"sections"`
}

// Input is what the analysis model receives.
type Input struct {
	UserProfile models.UserProfile `json:"userContext"`
	Answers     []string           `json:"answers"`
	Metadata    Metadata           `json:"sessionMetadata"`
}

// Builder derives Input from a session. It is a pure function of the session's profile,
// answers and start time.
type Builder struct {
	Catalog *models.Catalog
}

func (b Builder) Build(sess *models.Session) (Input, error) {
	in := Input{
		UserProfile: sess.Profile.Clone(),
		Answers:     make([]string, 0, len(sess.Answers)),
		Metadata:    Metadata{Sections: make(map[models.Section]SectionStats, len(models.Sections))},
	}
	for _, s := range models.Sections {
		in.Metadata.Sections[s] = SectionStats{}
	}

	var last int64
	for _, a := range sess.Answers {
		q, ok := b.Catalog.Question(a.QuestionID)
		if !ok {
			return Input{}, apperr.Validation("answer for %s does not match the catalog", a.QuestionID)
		}
		stats := in.Metadata.Sections[q.Section]
		stats.QuestionsAnswered++
		in.Metadata.Sections[q.Section] = stats

		last = max(last, a.Timestamp)
		in.Answers = append(in.Answers, formatAnswer(q, a))
	}
	if len(sess.Answers) > 0 {
		in.Metadata.TotalTimeMs = max(0, last-sess.StartedAtMillis())
	}
	return in, nil
}

type metricLabel struct {
	key   string
	label string
	unit  string
}

// metricLabels fixes the label and position of every known game metric in the narrative.
var metricLabels = []metricLabel{
	{"totalTime", "Total Game Time", "ms"},
	{"totalResponseTime", "Total Response Time", "ms"},
	{"averageResponseTime", "Average Response Time", "ms"},
	{"riskLevel", "Risk Preference Level", ""},
	{"finalAmount", "Final Amount", ""},
	{"quickDecisions", "Quick Decisions Made", ""},
	{"timeouts", "Timeouts (No Decision)", ""},
	{"actDecisions", "Act Decisions", ""},
	{"stabilityPercentage", "Emotional Stability", "%"},
	{"calmReactions", "Calm Reactions", ""},
	{"panicReactions", "Panic Reactions", ""},
	{"finalEmotionalState", "Final Emotional State", "/100"},
	{"averageEmotionalState", "Emotional Consistency", ""},
	{"totalScore", "Total Score", ""},
}

var gameTitles = map[games.Type]string{
	games.RiskAssessment:   "RISK ASSESSMENT GAME",
	games.DecisionTiming:   "DECISION TIMING GAME",
	games.EmotionalControl: "EMOTIONAL CONTROL GAME",
}

// Under pressure a player is doing well with more than this many quick decisions.
const pressureQuickDecisions = 4

func formatAnswer(q models.Question, a models.Answer) string {
	var sb strings.Builder
	sb.WriteString("Question ")
	sb.WriteString(a.QuestionID)
	sb.WriteString(": ")
	sb.WriteString(a.Value.String())
	sb.WriteString(" (Response time: ")
	sb.WriteString(strconv.FormatInt(a.ResponseTime, 10))
	sb.WriteString("ms)")

	if a.GameResults == nil {
		return sb.String()
	}
	title := "COGNITIVE GAME"
	var kind games.Type
	if q.Game != nil {
		kind = q.Game.Type
		if t, ok := gameTitles[kind]; ok {
			title = t
		}
	}
	sb.WriteString(" | ")
	sb.WriteString(title)
	sb.WriteString(": Final Score: ")
	sb.WriteString(formatNumber(a.GameResults.Score))

	metrics := a.GameResults.Metrics
	known := make(map[string]bool, len(metricLabels))
	for _, m := range metricLabels {
		known[m.key] = true
		v, ok := metrics[m.key]
		if !ok {
			continue
		}
		writeMetric(&sb, m.label, formatNumber(v)+m.unit)
	}
	extra := make([]string, 0)
	for k := range metrics {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		writeMetric(&sb, k, formatNumber(metrics[k]))
	}

	if quick, ok := metrics["quickDecisions"]; ok && kind == games.DecisionTiming {
		verdict := "Needs Improvement"
		if quick > pressureQuickDecisions {
			verdict = "Good"
		}
		writeMetric(&sb, "Performance Under Pressure", verdict)
	}
	return sb.String()
}

func writeMetric(sb *strings.Builder, label, value string) {
	sb.WriteString("; ")
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(value)
}

// formatNumber rounds to two decimals and drops trailing zeros.
func formatNumber(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // no "-0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
