package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/himspired1/himspired-sub000/internal/ratelimit"
)

type RouterConfig struct {
	AdminToken     string
	RequestTimeout time.Duration
}

// NewRouter wires the storefront inventory surface. Availability and
// cleanup routes are throttled; force-cleanup and order transitions are
// admin only.
func NewRouter(h *InventoryHandler, limiter *ratelimit.Limiter, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDHeader)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	throttled := RateLimit(limiter)

	r.Group(func(r chi.Router) {
		r.Use(throttled)
		r.Get("/availability/{productID}", h.GetAvailability)
		r.Get("/stock/{productID}", h.GetStock)
	})

	r.Post("/reserve/{productID}", h.Reserve)
	r.Post("/checkout-reserve/{productID}", h.CheckoutReserve)
	r.Post("/orders", h.CreateOrder)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AdminToken))
		r.With(throttled).Post("/force-cleanup/{productID}", h.ForceCleanup)
		r.Post("/orders/{orderID}/status", h.TransitionOrder)
	})

	return r
}
