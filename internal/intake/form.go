package intake

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invisifeed/invisifeed/internal/invoice"
)

const dateLayout = "2006-01-02"

// ItemInput is a line item as typed.
type ItemInput struct {
	Description string
	Quantity    string
	Rate        string
	Discount    string
	Tax         string
}

// Form is the create-invoice form. Totals always reflect the current items.
type Form struct {
	Number       string
	InvoiceDate  string
	DueDate      string
	PaymentTerms string
	Business     invoice.Party
	Customer     invoice.Party
	Items        []ItemInput
	Payment      invoice.PaymentDetails
	Notes        string
	Totals       invoice.Totals
}

func (f Form) AddItem() Form {
	f.Items = append(slices.Clone(f.Items), ItemInput{Quantity: "1", Discount: "0", Tax: "0"})
	return f.Recalculate()
}

func (f Form) SetItem(i int, in ItemInput) Form {
	if i < 0 || i >= len(f.Items) {
		return f
	}

	f.Items = slices.Clone(f.Items)
	f.Items[i] = in

	return f.Recalculate()
}

func (f Form) RemoveItem(i int) Form {
	if i < 0 || i >= len(f.Items) {
		return f
	}

	f.Items = slices.Delete(slices.Clone(f.Items), i, i+1)

	return f.Recalculate()
}

// Recalculate refreshes Totals. Fields that do not parse count as zero.
func (f Form) Recalculate() Form {
	items := make([]invoice.Item, len(f.Items))

	for i, in := range f.Items {
		items[i] = invoice.Item{
			Quantity: number(in.Quantity),
			Rate:     number(in.Rate),
			Discount: number(in.Discount),
			Tax:      number(in.Tax),
		}
	}

	f.Totals = invoice.ComputeTotals(items)

	return f
}

func number(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}

	return d
}

// Validate runs the checks done before a create request is sent.
func (f Form) Validate() []invoice.FieldError {
	var errs []invoice.FieldError

	add := func(field, msg string) {
		errs = append(errs, invoice.FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(f.Business.Name) == "" {
		add("business.name", "is required")
	}

	if strings.TrimSpace(f.Customer.Name) == "" {
		add("customer.name", "is required")
	}

	if len(f.Items) == 0 {
		add("items", "at least one item is required")
	}

	for i, in := range f.Items {
		field := fmt.Sprintf("items[%d]", i)

		if strings.TrimSpace(in.Description) == "" {
			add(field+".description", "is required")
		}

		for name, v := range map[string]string{
			"quantity": in.Quantity,
			"rate":     in.Rate,
			"discount": in.Discount,
			"tax":      in.Tax,
		} {
			if v = strings.TrimSpace(v); v == "" {
				continue
			}

			if _, err := decimal.NewFromString(v); err != nil {
				add(field+"."+name, "must be a number")
			}
		}
	}

	for name, v := range map[string]string{"invoice_date": f.InvoiceDate, "due_date": f.DueDate} {
		if _, err := parseDate(v); err != nil {
			add(name, "must be a date like 2026-01-31")
		}
	}

	slices.SortStableFunc(errs, func(a, b invoice.FieldError) int { return strings.Compare(a.Field, b.Field) })

	return errs
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// Params converts a validated form into a create request.
func (f Form) Params() (invoice.CreateParams, error) {
	if errs := f.Validate(); len(errs) > 0 {
		return invoice.CreateParams{}, &invoice.ValidationError{Fields: errs}
	}

	invoiceDate, _ := parseDate(f.InvoiceDate)
	dueDate, _ := parseDate(f.DueDate)

	p := invoice.CreateParams{
		Number:       strings.TrimSpace(f.Number),
		InvoiceDate:  invoiceDate,
		DueDate:      dueDate,
		PaymentTerms: f.PaymentTerms,
		Business:     f.Business,
		Customer:     f.Customer,
		Payment:      f.Payment,
		Notes:        f.Notes,
	}

	for _, in := range f.Items {
		p.Items = append(p.Items, invoice.ItemParams{
			Description: strings.TrimSpace(in.Description),
			Quantity:    number(in.Quantity),
			Rate:        number(in.Rate),
			Discount:    number(in.Discount),
			Tax:         number(in.Tax),
		})
	}

	return p, nil
}
