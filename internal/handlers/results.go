// internal/handlers/results.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/services"
)

type ResultsHandler struct {
	log     *zap.Logger
	funnel  *services.Funnel
	reports *services.ReportService
}

func NewResultsHandler(funnel *services.Funnel, reports *services.ReportService, log *zap.Logger) *ResultsHandler {
	return &ResultsHandler{log: log, funnel: funnel, reports: reports}
}

// Process completes the test, runs the analysis and opens the checkout.
func (h *ResultsHandler) Process(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	res, err := h.funnel.ProcessResults(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h *ResultsHandler) Show(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	view, err := h.funnel.Results(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// SendReport delivers the report now instead of waiting for the background retry.
func (h *ResultsHandler) SendReport(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if err := h.reports.Deliver(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}
	view, err := h.funnel.Results(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// Charts returns echarts options for the results page. Game and timing charts are
// available once answers exist; profile charts only after payment.
func (h *ResultsHandler) Charts(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ctx := c.Request.Context()

	answers, err := h.funnel.Sessions().Answers(ctx, id)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	out := gin.H{
		"responseTimes": generateResponseTimeChart(answers).JSON(),
		"games":         generateGameChart(answers).JSON(),
	}

	view, err := h.funnel.Results(ctx, id)
	switch {
	case err == nil && view.Analysis != nil:
		out["strengths"] = generateStrengthChart(view.Analysis.Strengths).JSON()
		out["emotionalProfile"] = generateEmotionalChart(view.Analysis.EmotionalProfile).JSON()
	case err != nil && !errors.Is(err, apperr.ErrInvalidTransition):
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, out)
}

func generateResponseTimeChart(answers []models.Answer) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Timp de răspuns",
			Subtitle: "milisecunde pe întrebare",
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	labels := make([]string, 0, len(answers))
	items := make([]opts.LineData, 0, len(answers))
	for _, a := range answers {
		labels = append(labels, a.QuestionID)
		items = append(items, opts.LineData{Value: a.ResponseTime})
	}

	line.SetXAxis(labels).
		AddSeries("Timp de răspuns", items).
		SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}

func generateGameChart(answers []models.Answer) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Jocuri cognitive"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Scor"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, 0)
	items := make([]opts.BarData, 0)
	for _, a := range answers {
		if a.GameResults == nil {
			continue
		}
		labels = append(labels, a.QuestionID)
		items = append(items, opts.BarData{Value: a.GameResults.Score})
	}

	bar.SetXAxis(labels).AddSeries("Scor", items)
	return bar
}

func generateStrengthChart(strengths []models.Strength) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Puncte forte"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: 100}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, 0, len(strengths))
	items := make([]opts.BarData, 0, len(strengths))
	for _, s := range strengths {
		labels = append(labels, s.Category)
		items = append(items, opts.BarData{Value: s.Score})
	}

	bar.SetXAxis(labels).AddSeries("Scor", items)
	return bar
}

func generateEmotionalChart(p models.EmotionalProfile) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Profil emoțional",
			Subtitle: p.StressResponse,
		}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: 100}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	bar.SetXAxis([]string{"Toleranță la risc", "Disciplină"}).
		AddSeries("Profil", []opts.BarData{{Value: p.RiskTolerance}, {Value: p.Discipline}})
	return bar
}
