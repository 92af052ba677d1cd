package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/walletauth/pkg/errors"
	"github.com/DeBrosOfficial/walletauth/pkg/gateway/ctxkeys"
	"github.com/DeBrosOfficial/walletauth/pkg/httputil"
	"github.com/DeBrosOfficial/walletauth/pkg/logging"
)

// clientIPMiddleware resolves the client address once, honouring forwarding headers only
// from trusted proxies, and stores it for the limiter, the access log and the handlers.
func (g *Gateway) clientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxkeys.RequestIP, g.proxies.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs basic request info and duration
func (g *Gateway) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)
		g.logger.ComponentInfo(logging.ComponentGateway, "request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", srw.status),
			zap.Int("bytes", srw.bytes),
			zap.String("client_ip", RequestIP(r)),
			zap.String("duration", time.Since(start).String()),
		)
	})
}

// Authorize requires "Authorization: Bearer <access token>" and attaches the validated
// claims to the request context.
func (g *Gateway) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := httputil.ExtractBearerToken(r)
		if raw == "" {
			g.unauthorized(w, "missing bearer token")
			return
		}
		if !httputil.IsJWT(raw) {
			g.unauthorized(w, "malformed bearer token")
			return
		}
		claims, err := g.auth.ValidateAccessToken(raw)
		if err != nil {
			g.logger.ComponentDebug(logging.ComponentAuth, "Access token rejected", zap.Error(err))
			g.unauthorized(w, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxkeys.Claims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers whose token does not carry the admin role. It must run
// after Authorize.
func (g *Gateway) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			g.unauthorized(w, "missing bearer token")
			return
		}
		if !claims.IsAdmin() {
			apperrors.WriteHTTPError(w, apperrors.NewForbiddenError("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware returns 429 when a client exceeds the rate limit.
func (g *Gateway) rateLimitMiddleware(next http.Handler) http.Handler {
	if g.rateLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.rateLimiter.Allow(RequestIP(r)) {
			g.metrics.rateLimited.Inc()
			apperrors.WriteHTTPError(w, apperrors.NewRateLimitError(g.rateLimiter.RetryAfter()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
