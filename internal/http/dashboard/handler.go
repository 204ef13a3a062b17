package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/http/respond"
	"github.com/invisifeed/invisifeed/internal/metrics"
)

type Service interface {
	Dashboard(ctx context.Context, businessID uuid.UUID, sel metrics.Selection, now time.Time) (*metrics.Dashboard, error)
}

type Handler struct {
	svc Service
	now func() time.Time
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
}

// get serves one selection: ?view=currentWeek|currentMonth|currentYear or
// ?year=YYYY, never both.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sel, err := metrics.ParseSelection(q.Get("view"), q.Get("year"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	d, err := h.svc.Dashboard(r.Context(), auth.BusinessID(r.Context()), sel, h.now())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, d)
}
