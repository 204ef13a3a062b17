package account

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/http/profile"
	"github.com/invisifeed/invisifeed/internal/http/respond"
)

type Accounts interface {
	Register(ctx context.Context, params business.RegisterParams) (*business.Business, error)
	Authenticate(ctx context.Context, login, password string) (*business.Business, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

type Tokens interface {
	Issue(businessID uuid.UUID, username string) (string, time.Time, error)
}

type Resetter interface {
	Reset(ctx context.Context, businessID uuid.UUID) error
}

type Handler struct {
	accounts Accounts
	tokens   Tokens
	resetter Resetter
	limits   business.Limits
	now      func() time.Time
}

func NewHandler(accounts Accounts, tokens Tokens, resetter Resetter, limits business.Limits) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, resetter: resetter, limits: limits, now: time.Now}
}

// AuthRoutes are served without a session.
func (h *Handler) AuthRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Get("/username-available", h.usernameAvailable)
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/reset", h.reset)
}

type registerRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=30"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	BusinessName string `json:"business_name" validate:"max=200"`
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Profile   profile.Response `json:"profile"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	b, err := h.accounts.Register(r.Context(), business.RegisterParams{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		BusinessName: req.BusinessName,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.session(w, r, http.StatusCreated, b)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	b, err := h.accounts.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.session(w, r, http.StatusOK, b)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request, status int, b *business.Business) {
	token, expires, err := h.tokens.Issue(b.ID, b.Username)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, status, SessionResponse{
		Token:     token,
		ExpiresAt: expires,
		Profile:   profile.ToResponse(b, h.limits, h.now()),
	})
}

type AvailabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

func (h *Handler) usernameAvailable(w http.ResponseWriter, r *http.Request) {
	username := business.NormalizeUsername(r.URL.Query().Get("username"))

	ok, err := h.accounts.UsernameAvailable(r.Context(), username)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, AvailabilityResponse{Username: username, Available: ok})
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

// reset wipes every invoice, coupon and feedback of the caller. The body
// must carry an explicit confirmation.
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	if !req.Confirm {
		respond.Invalid(w, "Reset must be confirmed", []respond.Field{{Field: "confirm", Message: "must be true"}})
		return
	}

	if err := h.resetter.Reset(r.Context(), auth.BusinessID(r.Context())); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}
