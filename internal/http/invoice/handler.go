package invoice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/http/profile"
	"github.com/invisifeed/invisifeed/internal/http/respond"
	"github.com/invisifeed/invisifeed/internal/invoice"
)

type Service interface {
	Upload(ctx context.Context, businessID uuid.UUID, params invoice.UploadParams, draft *coupon.Draft) (*invoice.ProcessResult, error)
	Create(ctx context.Context, businessID uuid.UUID, params invoice.CreateParams, draft *coupon.Draft) (*invoice.ProcessResult, error)
	CreateSample(ctx context.Context, businessID uuid.UUID) (*invoice.ProcessResult, error)
	List(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*invoice.Invoice, error)
	Get(ctx context.Context, businessID uuid.UUID, number string) (*invoice.Invoice, error)
	Usage(ctx context.Context, businessID uuid.UUID) (invoice.Quota, error)
}

type Sender interface {
	Send(ctx context.Context, businessID uuid.UUID, number string) error
}

type Handler struct {
	svc      Service
	sender   Sender
	maxBytes int64
	now      func() time.Time
}

func NewHandler(svc Service, sender Sender, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, sender: sender, maxBytes: maxUploadBytes, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/upload", h.upload)
	r.Post("/sample", h.sample)
	r.Get("/usage", h.usage)
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{number}", h.get)
	r.Post("/{number}/email", h.email)
}

// formOverhead leaves room for the coupon fields next to the file.
const formOverhead = 64 << 10

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)

	if err := r.ParseMultipartForm(h.maxBytes + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, r, invoice.ErrFileTooLarge)
			return
		}

		respond.Fail(w, http.StatusBadRequest, respond.CodeBadRequest, "failed to parse form")

		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Invalid(w, "A PDF file is required", []respond.Field{{Field: "file", Message: "is required"}})
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		respond.Error(w, r, invoice.ErrFileTooLarge)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeBadRequest, "failed to read file")
		return
	}

	draft := &coupon.Draft{
		Code:        r.FormValue("coupon_code"),
		Description: r.FormValue("coupon_description"),
		ExpiryDays:  r.FormValue("coupon_expiry_days"),
	}

	res, err := h.svc.Upload(r.Context(), auth.BusinessID(r.Context()),
		invoice.UploadParams{Filename: header.Filename, Data: data}, draft)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toProcessResponse(res))
}

type PartyRequest struct {
	Name    string `json:"name" validate:"max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=500"`
}

func (p PartyRequest) party() invoice.Party {
	return invoice.Party{Name: p.Name, Email: p.Email, Phone: p.Phone, Address: p.Address}
}

type ItemRequest struct {
	Description string          `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
}

type CreateRequest struct {
	Number       string        `json:"invoice_number" validate:"max=50"`
	InvoiceDate  string        `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate      string        `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentTerms string        `json:"payment_terms" validate:"max=200"`
	Business     PartyRequest  `json:"business"`
	Customer     PartyRequest  `json:"customer"`
	Items        []ItemRequest `json:"items" validate:"max=100,dive"`
	BankDetails  string        `json:"bank_details" validate:"max=500"`
	Method       string        `json:"payment_method" validate:"max=100"`
	Instructions string        `json:"payment_instructions" validate:"max=500"`
	Notes        string        `json:"notes" validate:"max=2000"`
	Coupon       *coupon.Draft `json:"coupon"`
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}

	return &t
}

func (req CreateRequest) params() invoice.CreateParams {
	items := make([]invoice.ItemParams, len(req.Items))
	for i, it := range req.Items {
		items[i] = invoice.ItemParams{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Discount:    it.Discount,
			Tax:         it.Tax,
		}
	}

	return invoice.CreateParams{
		Number:       req.Number,
		InvoiceDate:  parseDate(req.InvoiceDate),
		DueDate:      parseDate(req.DueDate),
		PaymentTerms: req.PaymentTerms,
		Business:     req.Business.party(),
		Customer:     req.Customer.party(),
		Items:        items,
		Payment: invoice.PaymentDetails{
			BankDetails:  req.BankDetails,
			Method:       req.Method,
			Instructions: req.Instructions,
		},
		Notes: req.Notes,
	}
}

// NewCreateRequest is the wire form of a create call, used by API clients.
func NewCreateRequest(p invoice.CreateParams, draft *coupon.Draft) CreateRequest {
	req := CreateRequest{
		Number:       p.Number,
		PaymentTerms: p.PaymentTerms,
		Business:     PartyRequest{Name: p.Business.Name, Email: p.Business.Email, Phone: p.Business.Phone, Address: p.Business.Address},
		Customer:     PartyRequest{Name: p.Customer.Name, Email: p.Customer.Email, Phone: p.Customer.Phone, Address: p.Customer.Address},
		Items:        make([]ItemRequest, len(p.Items)),
		BankDetails:  p.Payment.BankDetails,
		Method:       p.Payment.Method,
		Instructions: p.Payment.Instructions,
		Notes:        p.Notes,
		Coupon:       draft,
	}

	if p.InvoiceDate != nil {
		req.InvoiceDate = p.InvoiceDate.Format(time.DateOnly)
	}

	if p.DueDate != nil {
		req.DueDate = p.DueDate.Format(time.DateOnly)
	}

	for i, it := range p.Items {
		req.Items[i] = ItemRequest{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Discount:    it.Discount,
			Tax:         it.Tax,
		}
	}

	return req
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	res, err := h.svc.Create(r.Context(), auth.BusinessID(r.Context()), req.params(), req.Coupon)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toProcessResponse(res))
}

func (h *Handler) sample(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CreateSample(r.Context(), auth.BusinessID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toProcessResponse(res))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	invs, err := h.svc.List(r.Context(), auth.BusinessID(r.Context()), limit, offset)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(invs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Get(r.Context(), auth.BusinessID(r.Context()), chi.URLParam(r, "number"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(inv))
}

type EmailResponse struct {
	Sent bool `json:"sent"`
}

func (h *Handler) email(w http.ResponseWriter, r *http.Request) {
	if err := h.sender.Send(r.Context(), auth.BusinessID(r.Context()), chi.URLParam(r, "number")); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, EmailResponse{Sent: true})
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Usage(r.Context(), auth.BusinessID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, profile.UsageFrom(q, h.now()))
}
