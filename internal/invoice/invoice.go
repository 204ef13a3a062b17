package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invisifeed/invisifeed/internal/coupon"
)

// Source records how an invoice entered the system.
type Source string

const (
	SourceUpload Source = "upload"
	SourceCreate Source = "create"
	SourceSample Source = "sample"
)

var hundred = decimal.NewFromInt(100)

// Item is one invoice line. Discount and Tax are percentages.
type Item struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
}

func (i Item) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.Rate)
}

func (i Item) DiscountAmount() decimal.Decimal {
	return i.Amount().Mul(i.Discount).Div(hundred)
}

func (i Item) TaxAmount() decimal.Decimal {
	return i.Amount().Sub(i.DiscountAmount()).Mul(i.Tax).Div(hundred)
}

type Totals struct {
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

// ComputeTotals sums the items. The result does not depend on item order.
func ComputeTotals(items []Item) Totals {
	var sub, disc, tax decimal.Decimal

	for _, it := range items {
		sub = sub.Add(it.Amount())
		disc = disc.Add(it.DiscountAmount())
		tax = tax.Add(it.TaxAmount())
	}

	return Totals{
		Subtotal:   sub.Round(2),
		Discount:   disc.Round(2),
		Tax:        tax.Round(2),
		GrandTotal: sub.Sub(disc).Add(tax).Round(2),
	}
}

// Party is a name and contact snapshot printed on the invoice.
type Party struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type PaymentDetails struct {
	BankDetails  string
	Method       string
	Instructions string
}

type Invoice struct {
	ID             uuid.UUID
	BusinessID     uuid.UUID
	Number         string
	Source         Source
	IsSample       bool
	InvoiceDate    time.Time
	DueDate        *time.Time
	PaymentTerms   string
	Business       Party
	Customer       Party
	CustomerAmount decimal.Decimal
	Items          []Item
	Totals         Totals
	Payment        PaymentDetails
	Notes          string
	PDFKey         string
	PDFURL         string
	FeedbackToken  string
	FeedbackURL    string
	Coupon         *coupon.Coupon
	CreatedAt      time.Time
}

// Recalculate refreshes Totals from Items.
func (inv *Invoice) Recalculate() {
	inv.Totals = ComputeTotals(inv.Items)
}

// Amount is what the customer owes: the computed grand total for built
// invoices, the extracted amount for uploads.
func (inv *Invoice) Amount() decimal.Decimal {
	if len(inv.Items) > 0 {
		return inv.Totals.GrandTotal
	}

	return inv.CustomerAmount
}

// FeedbackPage is the page appended to every smart invoice.
type FeedbackPage struct {
	BusinessName  string
	InvoiceNumber string
	FeedbackURL   string
	CouponTeaser  string
}

// Extracted is the customer metadata read from an uploaded PDF. Empty fields
// were not found.
type Extracted struct {
	InvoiceNumber   string
	InvoiceDate     *time.Time
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	Amount          decimal.Decimal
}

// ProcessResult is returned by every invoice-producing operation.
type ProcessResult struct {
	InvoiceNumber    string
	PDFURL           string
	FeedbackURL      string
	CustomerName     string
	CustomerEmail    string
	CustomerAmount   decimal.Decimal
	DailyUploadCount int
	DailyLimit       int
	Coupon           *coupon.Coupon
}
