package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/invoice"
)

type CouponResponse struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	ExpiryDays  int       `json:"expiry_days"`
	ExpiryDate  time.Time `json:"expiry_date"`
	IsUsed      bool      `json:"is_used"`
}

// ProcessResponse is returned by upload, create and sample.
type ProcessResponse struct {
	InvoiceNumber    string          `json:"invoice_number"`
	PDFURL           string          `json:"pdf_url"`
	FeedbackURL      string          `json:"feedback_url"`
	CustomerName     string          `json:"customer_name"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerAmount   decimal.Decimal `json:"customer_amount"`
	DailyUploadCount int             `json:"daily_upload_count"`
	DailyLimit       int             `json:"daily_limit"`
	Coupon           *CouponResponse `json:"coupon,omitempty"`
}

type PartyResponse struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type ItemResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Amount      decimal.Decimal `json:"amount"`
}

type TotalsResponse struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type Response struct {
	Number       string          `json:"invoice_number"`
	Source       invoice.Source  `json:"source"`
	IsSample     bool            `json:"is_sample"`
	InvoiceDate  time.Time       `json:"invoice_date"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	PaymentTerms string          `json:"payment_terms,omitempty"`
	Business     PartyResponse   `json:"business"`
	Customer     PartyResponse   `json:"customer"`
	Amount       decimal.Decimal `json:"amount"`
	Items        []ItemResponse  `json:"items,omitempty"`
	Totals       *TotalsResponse `json:"totals,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	PDFURL       string          `json:"pdf_url"`
	FeedbackURL  string          `json:"feedback_url"`
	Coupon       *CouponResponse `json:"coupon,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toCoupon(c *coupon.Coupon) *CouponResponse {
	if c == nil {
		return nil
	}

	return &CouponResponse{
		Code:        c.Code,
		Description: c.Description,
		ExpiryDays:  c.ExpiryDays,
		ExpiryDate:  c.ExpiryDate,
		IsUsed:      c.IsUsed,
	}
}

func toProcessResponse(res *invoice.ProcessResult) ProcessResponse {
	return ProcessResponse{
		InvoiceNumber:    res.InvoiceNumber,
		PDFURL:           res.PDFURL,
		FeedbackURL:      res.FeedbackURL,
		CustomerName:     res.CustomerName,
		CustomerEmail:    res.CustomerEmail,
		CustomerAmount:   res.CustomerAmount,
		DailyUploadCount: res.DailyUploadCount,
		DailyLimit:       res.DailyLimit,
		Coupon:           toCoupon(res.Coupon),
	}
}

func toParty(p invoice.Party) PartyResponse {
	return PartyResponse{Name: p.Name, Email: p.Email, Phone: p.Phone, Address: p.Address}
}

func toResponse(inv *invoice.Invoice) Response {
	resp := Response{
		Number:       inv.Number,
		Source:       inv.Source,
		IsSample:     inv.IsSample,
		InvoiceDate:  inv.InvoiceDate,
		DueDate:      inv.DueDate,
		PaymentTerms: inv.PaymentTerms,
		Business:     toParty(inv.Business),
		Customer:     toParty(inv.Customer),
		Amount:       inv.Amount(),
		Notes:        inv.Notes,
		PDFURL:       inv.PDFURL,
		FeedbackURL:  inv.FeedbackURL,
		Coupon:       toCoupon(inv.Coupon),
		CreatedAt:    inv.CreatedAt,
	}

	if len(inv.Items) > 0 {
		resp.Items = make([]ItemResponse, len(inv.Items))
		for i, it := range inv.Items {
			resp.Items[i] = ItemResponse{
				Description: it.Description,
				Quantity:    it.Quantity,
				Rate:        it.Rate,
				Discount:    it.Discount,
				Tax:         it.Tax,
				Amount:      it.Amount(),
			}
		}

		resp.Totals = &TotalsResponse{
			Subtotal:   inv.Totals.Subtotal,
			Discount:   inv.Totals.Discount,
			Tax:        inv.Totals.Tax,
			GrandTotal: inv.Totals.GrandTotal,
		}
	}

	return resp
}

func toResponseList(invs []*invoice.Invoice) []Response {
	resp := make([]Response, len(invs))
	for i, inv := range invs {
		resp[i] = toResponse(inv)
	}

	return resp
}
