package coupon

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/http/respond"
)

type Service interface {
	List(ctx context.Context, businessID uuid.UUID, page coupon.Page) (*coupon.ListResult, error)
	MarkUsed(ctx context.Context, businessID, id uuid.UUID) (*coupon.Coupon, error)
	Delete(ctx context.Context, businessID, id uuid.UUID) error
}

type Handler struct {
	svc Service
	now func() time.Time
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{id}/mark-used", h.markUsed)
	r.Delete("/{id}", h.delete)
}

type Response struct {
	ID            uuid.UUID  `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	Code          string     `json:"code"`
	Description   string     `json:"description"`
	ExpiryDays    int        `json:"expiry_days"`
	ExpiryDate    time.Time  `json:"expiry_date"`
	IsUsed        bool       `json:"is_used"`
	Expired       bool       `json:"expired"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ListResponse struct {
	Coupons []Response `json:"coupons"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	Size    int        `json:"size"`
	Pages   int        `json:"pages"`
}

func toResponse(c *coupon.Coupon, now time.Time) Response {
	return Response{
		ID:            c.ID,
		InvoiceNumber: c.InvoiceNumber,
		Code:          c.Code,
		Description:   c.Description,
		ExpiryDays:    c.ExpiryDays,
		ExpiryDate:    c.ExpiryDate,
		IsUsed:        c.IsUsed,
		Expired:       c.Expired(now),
		UsedAt:        c.UsedAt,
		CreatedAt:     c.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	res, err := h.svc.List(r.Context(), auth.BusinessID(r.Context()), coupon.Page{Number: page, Size: size})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	now := h.now()

	resp := ListResponse{
		Coupons: make([]Response, len(res.Coupons)),
		Total:   res.Total,
		Page:    res.Page,
		Size:    res.Size,
		Pages:   res.Pages,
	}
	for i, c := range res.Coupons {
		resp.Coupons[i] = toResponse(c, now)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) markUsed(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid id")
		return
	}

	c, err := h.svc.MarkUsed(r.Context(), auth.BusinessID(r.Context()), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(c, h.now()))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid id")
		return
	}

	if err := h.svc.Delete(r.Context(), auth.BusinessID(r.Context()), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}
