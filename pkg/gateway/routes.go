package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/DeBrosOfficial/walletauth/pkg/errors"
	"github.com/DeBrosOfficial/walletauth/pkg/httputil"
)

// Routes returns the http.Handler with all routes and middleware configured
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(g.clientIPMiddleware)
	r.Use(g.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(g.metrics.Instrument)
	r.Use(middleware.Timeout(g.cfg.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", g.healthHandler)
	r.Method(http.MethodGet, "/metrics", g.metrics.Handler())

	h := g.handlers
	r.Route("/auth", func(r chi.Router) {
		r.Use(g.rateLimitMiddleware)

		r.Get("/nonce", h.NonceHandler)
		r.Post("/login", h.LoginHandler)
		r.Post("/refresh", h.RefreshHandler)
		r.Post("/social-verify", h.SocialVerifyHandler)
		r.Post("/link", h.LinkHandler)
		r.Post("/logout", h.LogoutHandler)

		r.Group(func(r chi.Router) {
			r.Use(g.Authorize)
			r.Post("/logout-all", h.LogoutAllHandler)
			r.Get("/me", h.MeHandler)
		})
	})

	if g.events != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(g.Authorize, g.RequireAdmin)
			r.Get("/security-events", g.securityEventsHandler)
		})
	}

	return r
}

func (g *Gateway) unauthorized(w http.ResponseWriter, detail string) {
	apperrors.WriteHTTPError(w, apperrors.NewUnauthorizedError("").WithRealm(g.cfg.Realm).WithDetail(detail))
}
