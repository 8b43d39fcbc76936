package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/cropwise/internal/api/middleware"
	"github.com/kiranshivaraju/cropwise/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	// RateLimit is optional; nil disables rate limiting.
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	PredictHandler http.HandlerFunc
	RecentHandler  http.HandlerFunc
	ExportHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
// Prediction routes are served at their legacy paths and under /api/v1.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		predict := orNotImplemented(deps.PredictHandler)
		recent := orNotImplemented(deps.RecentHandler)
		export := orNotImplemented(deps.ExportHandler)

		r.Post("/predict", predict)
		r.Get("/recent", recent)
		r.Get("/download_predictions", export)

		r.Post("/api/v1/predict", predict)
		r.Get("/api/v1/recent", recent)
		r.Get("/api/v1/predictions/export", export)
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
