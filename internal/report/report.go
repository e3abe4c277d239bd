// Package report renders the paid analysis into a PDF and defines how it is delivered.
package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.0f%%", v) },
	"riskLabel": func(risk string) string {
		switch risk {
		case "high":
			return "Risc ridicat"
		case "low":
			return "Risc scăzut"
		default:
			return "Risc mediu"
		}
	},
}).ParseFS(templateFS, "templates/report.html.tmpl"))

// Document is everything the report shows.
type Document struct {
	SessionID   uuid.UUID
	Email       string
	GeneratedAt time.Time
	Profile     models.UserProfile
	Result      models.AnalysisResult
}

// Renderer turns a document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// Mailer delivers a rendered report to the visitor.
type Mailer interface {
	SendReport(ctx context.Context, to string, doc Document, pdf []byte) error
}

// HTML renders the report page.
func HTML(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, doc); err != nil {
		return "", apperr.Reporting("render html", err)
	}
	return buf.String(), nil
}

// FileName is the attachment name for a session's report.
func FileName(id uuid.UUID) string {
	return fmt.Sprintf("raport-profil-trader-%s.pdf", id.String()[:8])
}
