package pdf

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/invisifeed/invisifeed/internal/invoice"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrNothingToMerge = errors.New("no documents to merge")

const (
	defaultTimeout = 30 * time.Second
	qrSize         = 256

	// A4 in inches.
	paperWidth  = 8.27
	paperHeight = 11.69
	margin      = 0.4
)

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
}).ParseFS(templateFS, "templates/*.html"))

type Config struct {
	// RemoteURL points at a running Chrome DevTools endpoint. A local
	// headless browser is started when empty.
	RemoteURL string
	Timeout   time.Duration
	NoSandbox bool
}

// Renderer prints HTML pages to PDF through headless Chrome.
type Renderer struct {
	timeout     time.Duration
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func New(cfg Config) *Renderer {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	r := &Renderer{timeout: cfg.Timeout}

	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)

	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)

	return r
}

func (r *Renderer) Close() {
	r.allocCancel()
}

func (r *Renderer) RenderInvoice(ctx context.Context, inv *invoice.Invoice) ([]byte, error) {
	html, err := InvoiceHTML(inv)
	if err != nil {
		return nil, err
	}

	return r.print(ctx, html)
}

func (r *Renderer) RenderFeedbackPage(ctx context.Context, p invoice.FeedbackPage) ([]byte, error) {
	html, err := FeedbackHTML(p)
	if err != nil {
		return nil, err
	}

	return r.print(ctx, html)
}

func (r *Renderer) print(ctx context.Context, html string) ([]byte, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx)
	defer tabCancel()

	// The tab inherits the allocator context, so the request deadline is
	// enforced separately.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var out []byte

	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}

			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			if err != nil {
				return err
			}

			out = data

			return nil
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rendering pdf: %w", ctx.Err())
		}

		return nil, fmt.Errorf("rendering pdf: %w", err)
	}

	slog.Info("pdf rendered", "bytes", len(out), "duration", time.Since(start))

	return out, nil
}

// Merge concatenates PDF documents in order.
func (r *Renderer) Merge(parts ...[]byte) ([]byte, error) {
	switch len(parts) {
	case 0:
		return nil, ErrNothingToMerge
	case 1:
		return parts[0], nil
	}

	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, nil); err != nil {
		return nil, fmt.Errorf("merging pdfs: %w", err)
	}

	return buf.Bytes(), nil
}

// QRCode encodes url as a PNG image.
func QRCode(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}

	return png, nil
}

type invoiceView struct {
	*invoice.Invoice
	Amount decimal.Decimal
}

func InvoiceHTML(inv *invoice.Invoice) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "invoice.html", invoiceView{Invoice: inv, Amount: inv.Amount()}); err != nil {
		return "", fmt.Errorf("executing invoice template: %w", err)
	}

	return buf.String(), nil
}

type feedbackView struct {
	invoice.FeedbackPage
	QRCode template.URL
}

func FeedbackHTML(p invoice.FeedbackPage) (string, error) {
	png, err := QRCode(p.FeedbackURL)
	if err != nil {
		return "", err
	}

	view := feedbackView{
		FeedbackPage: p,
		QRCode:       template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "feedback.html", view); err != nil {
		return "", fmt.Errorf("executing feedback template: %w", err)
	}

	return buf.String(), nil
}
