package report

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
)

const defaultRenderTimeout = 30 * time.Second

// A4 in inches.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
)

// ChromeRenderer prints the report page to PDF with a local headless Chrome.
type ChromeRenderer struct {
	chromePath string
	timeout    time.Duration
	log        *zap.Logger
}

func NewChromeRenderer(chromePath string, timeout time.Duration, log *zap.Logger) *ChromeRenderer {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChromeRenderer{chromePath: strings.TrimSpace(chromePath), timeout: timeout, log: log.Named("report")}
}

func (r *ChromeRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	htmlDoc, err := HTML(doc)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	start := time.Now()
	var pdf []byte
	err = chromedp.Run(chromeCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlDoc).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				Do(ctx)
			pdf = buf
			return err
		}),
	)
	if err != nil {
		return nil, apperr.Reporting("print pdf", err)
	}
	r.log.Debug("Report rendered",
		zap.String("session_id", doc.SessionID.String()),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}
