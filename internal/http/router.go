package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/invisifeed/invisifeed/internal/http/account"
	"github.com/invisifeed/invisifeed/internal/http/coupon"
	"github.com/invisifeed/invisifeed/internal/http/dashboard"
	"github.com/invisifeed/invisifeed/internal/http/feedback"
	"github.com/invisifeed/invisifeed/internal/http/invoice"
	"github.com/invisifeed/invisifeed/internal/http/profile"
)

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
	// Authenticate guards every route that needs a signed-in business.
	Authenticate func(http.Handler) http.Handler
}

type Handlers struct {
	Account   *account.Handler
	Profile   *profile.Handler
	Invoice   *invoice.Handler
	Coupon    *coupon.Handler
	Dashboard *dashboard.Handler
	Feedback  *feedback.Handler
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Account.AuthRoutes(r)
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Feedback.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(opts.Authenticate)

			r.Route("/profile", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Profile.Routes(r)
			})

			r.Route("/invoices", h.Invoice.Routes)

			r.Route("/coupons", h.Coupon.Routes)

			r.Route("/dashboard", h.Dashboard.Routes)

			r.Route("/account", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Account.Routes(r)
			})
		})
	})

	return router
}
