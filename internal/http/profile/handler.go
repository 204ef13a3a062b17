package profile

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/gstin"
	"github.com/invisifeed/invisifeed/internal/http/respond"
)

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*business.Business, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update business.ProfileUpdate) (*business.Business, error)
	SkipProfile(ctx context.Context, id uuid.UUID) (*business.Business, error)
	VerifyGSTIN(ctx context.Context, number string) (*gstin.Result, error)
	SaveGSTIN(ctx context.Context, id uuid.UUID, number string) (*business.Business, error)
	StartProTrial(ctx context.Context, id uuid.UUID) (*business.Business, error)
}

type Handler struct {
	svc    Service
	limits business.Limits
	now    func() time.Time
}

func NewHandler(svc Service, limits business.Limits) *Handler {
	return &Handler{svc: svc, limits: limits, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.update)
	r.Post("/skip", h.skip)
	r.Post("/gstin/verify", h.verifyGSTIN)
	r.Put("/gstin", h.saveGSTIN)
	r.Post("/trial", h.startTrial)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), auth.BusinessID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(b, h.limits, h.now()))
}

// updateRequest uses pointers so omitted fields are left unchanged.
type updateRequest struct {
	BusinessName *string `json:"business_name" validate:"omitempty,max=200"`
	PhoneNumber  *string `json:"phone_number" validate:"omitempty,max=20"`
	Country      *string `json:"country" validate:"omitempty,max=100"`
	State        *string `json:"state" validate:"omitempty,max=100"`
	City         *string `json:"city" validate:"omitempty,max=100"`
	LocalAddress *string `json:"local_address" validate:"omitempty,max=500"`
	Pincode      *string `json:"pincode" validate:"omitempty,max=12"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	b, err := h.svc.UpdateProfile(r.Context(), auth.BusinessID(r.Context()), business.ProfileUpdate{
		BusinessName: req.BusinessName,
		PhoneNumber:  req.PhoneNumber,
		Country:      req.Country,
		State:        req.State,
		City:         req.City,
		LocalAddress: req.LocalAddress,
		Pincode:      req.Pincode,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(b, h.limits, h.now()))
}

func (h *Handler) skip(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.SkipProfile(r.Context(), auth.BusinessID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(b, h.limits, h.now()))
}

type gstinRequest struct {
	Number string `json:"gstin_number" validate:"required"`
}

func (h *Handler) verifyGSTIN(w http.ResponseWriter, r *http.Request) {
	var req gstinRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	res, err := h.svc.VerifyGSTIN(r.Context(), req.Number)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) saveGSTIN(w http.ResponseWriter, r *http.Request) {
	var req gstinRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	b, err := h.svc.SaveGSTIN(r.Context(), auth.BusinessID(r.Context()), req.Number)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(b, h.limits, h.now()))
}

func (h *Handler) startTrial(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.StartProTrial(r.Context(), auth.BusinessID(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(b, h.limits, h.now()))
}
