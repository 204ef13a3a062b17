package feedback

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/feedback"
	"github.com/invisifeed/invisifeed/internal/http/respond"
)

type Service interface {
	Form(ctx context.Context, token string) (*feedback.Form, error)
	Submit(ctx context.Context, token string, params feedback.SubmitParams) (*feedback.SubmitResult, error)
}

type Redeemer interface {
	Redeem(ctx context.Context, invoiceID uuid.UUID, code string) (*coupon.Coupon, error)
}

// Handler serves the public pages behind an invoice's feedback link. No
// session is required; the token identifies the invoice.
type Handler struct {
	svc     Service
	coupons Redeemer
}

func NewHandler(svc Service, coupons Redeemer) *Handler {
	return &Handler{svc: svc, coupons: coupons}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{token}", h.form)
	r.Post("/{token}", h.submit)
	r.Post("/{token}/coupon/redeem", h.redeem)
}

type FormResponse struct {
	BusinessName  string `json:"business_name"`
	InvoiceNumber string `json:"invoice_number"`
	CouponTeaser  string `json:"coupon_teaser,omitempty"`
	Submitted     bool   `json:"submitted"`
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Form(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, FormResponse{
		BusinessName:  f.BusinessName,
		InvoiceNumber: f.InvoiceNumber,
		CouponTeaser:  f.CouponTeaser,
		Submitted:     f.Submitted,
	})
}

type ratingsRequest struct {
	Satisfaction  int `json:"satisfaction" validate:"min=1,max=5"`
	Communication int `json:"communication" validate:"min=1,max=5"`
	Quality       int `json:"quality" validate:"min=1,max=5"`
	ValueForMoney int `json:"value_for_money" validate:"min=1,max=5"`
	Recommend     int `json:"recommend" validate:"min=1,max=5"`
	Overall       int `json:"overall" validate:"min=1,max=5"`
}

type submitRequest struct {
	Ratings    ratingsRequest `json:"ratings"`
	Comment    string         `json:"comment" validate:"max=2000"`
	Suggestion string         `json:"suggestion" validate:"max=2000"`
	Anonymous  bool           `json:"anonymous"`
}

type RevealedCoupon struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	ExpiryDate  time.Time `json:"expiry_date"`
}

type SubmitResponse struct {
	ID     uuid.UUID       `json:"id"`
	Coupon *RevealedCoupon `json:"coupon,omitempty"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	res, err := h.svc.Submit(r.Context(), chi.URLParam(r, "token"), feedback.SubmitParams{
		Ratings: feedback.Ratings{
			Satisfaction:  req.Ratings.Satisfaction,
			Communication: req.Ratings.Communication,
			Quality:       req.Ratings.Quality,
			ValueForMoney: req.Ratings.ValueForMoney,
			Recommend:     req.Ratings.Recommend,
			Overall:       req.Ratings.Overall,
		},
		Comment:    req.Comment,
		Suggestion: req.Suggestion,
		Anonymous:  req.Anonymous,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := SubmitResponse{ID: res.Feedback.ID}
	if c := res.Coupon; c != nil {
		resp.Coupon = &RevealedCoupon{Code: c.Code, Description: c.Description, ExpiryDate: c.ExpiryDate}
	}

	respond.JSON(w, http.StatusCreated, resp)
}

type redeemRequest struct {
	Code string `json:"code" validate:"required"`
}

type RedeemResponse struct {
	Code   string     `json:"code"`
	UsedAt *time.Time `json:"used_at"`
}

// redeem marks the invoice's coupon used once feedback has been given.
func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	f, err := h.svc.Form(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if !f.Submitted {
		respond.Fail(w, http.StatusConflict, respond.CodeConflict, "submit feedback before redeeming the coupon")
		return
	}

	c, err := h.coupons.Redeem(r.Context(), f.InvoiceID, req.Code)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, RedeemResponse{Code: c.Code, UsedAt: c.UsedAt})
}
