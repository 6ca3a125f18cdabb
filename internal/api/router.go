package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// A positive timeout bounds every route except the event stream; requests
// that exceed it get 504.
func NewRouter(svc Resolver, authEnabled bool, token string, sseHandler http.Handler, timeout time.Duration) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Group(func(r chi.Router) {
		if timeout > 0 {
			r.Use(middleware.Timeout(timeout))
		}

		r.Get("/dates", h.Dates)
		r.Get("/summary", h.Summary)

		r.Get("/figure", h.Figure)
		r.Get("/figure/date/{date}", h.FigureByDate)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
