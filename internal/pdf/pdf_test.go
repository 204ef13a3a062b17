package pdf_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/invoice"
	"github.com/invisifeed/invisifeed/internal/pdf"
)

func TestInvoiceHTML(t *testing.T) {
	inv := &invoice.Invoice{
		Number:      "INV-20260601-AB12C",
		InvoiceDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Business:    invoice.Party{Name: "Acme Studio", Email: "hi@acme.test"},
		Customer:    invoice.Party{Name: "<b>Bob</b>"},
		Items: []invoice.Item{
			{
				Description: "Design",
				Quantity:    decimal.NewFromInt(2),
				Rate:        decimal.NewFromInt(125),
				Discount:    decimal.NewFromInt(8),
				Tax:         decimal.NewFromInt(3),
			},
		},
		Notes: "Thanks!",
	}
	inv.Recalculate()

	html, err := pdf.InvoiceHTML(inv)
	require.NoError(t, err)

	assert.Contains(t, html, "INV-20260601-AB12C")
	assert.Contains(t, html, "01 Jun 2026")
	assert.Contains(t, html, "Acme Studio")
	assert.Contains(t, html, "&lt;b&gt;Bob&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Bob</b>")
	assert.Contains(t, html, "250.00")
	assert.Contains(t, html, inv.Totals.GrandTotal.StringFixed(2))
	assert.Contains(t, html, "Thanks!")
	assert.NotContains(t, html, "SAMPLE")
}

func TestInvoiceHTML_Sample(t *testing.T) {
	html, err := pdf.InvoiceHTML(&invoice.Invoice{Number: "S-1", IsSample: true})
	require.NoError(t, err)

	assert.Contains(t, html, "SAMPLE")
}

func TestFeedbackHTML(t *testing.T) {
	page := invoice.FeedbackPage{
		BusinessName:  "Acme Studio",
		InvoiceNumber: "INV-1",
		FeedbackURL:   "https://invisifeed.test/feedback/abc",
	}

	html, err := pdf.FeedbackHTML(page)
	require.NoError(t, err)

	assert.Contains(t, html, "How did Acme Studio do?")
	assert.Contains(t, html, `href="https://invisifeed.test/feedback/abc"`)
	assert.Contains(t, html, `src="data:image/png;base64,`)
	assert.NotContains(t, html, "A reward is waiting")

	page.CouponTeaser = "10% off your next order"

	html, err = pdf.FeedbackHTML(page)
	require.NoError(t, err)
	assert.Contains(t, html, "A reward is waiting")
	assert.Contains(t, html, "10% off your next order")
}

func TestQRCode(t *testing.T) {
	png, err := pdf.QRCode("https://invisifeed.test/feedback/abc")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestMerge_Trivial(t *testing.T) {
	r := pdf.New(pdf.Config{RemoteURL: "ws://127.0.0.1:9222"})
	defer r.Close()

	_, err := r.Merge()
	assert.ErrorIs(t, err, pdf.ErrNothingToMerge)

	one := []byte("%PDF-1.7 single")
	out, err := r.Merge(one)
	require.NoError(t, err)
	assert.Equal(t, one, out)
}
