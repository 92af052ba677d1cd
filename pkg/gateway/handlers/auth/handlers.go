// Package auth provides the HTTP handlers for wallet sign-in, refresh-token rotation,
// Sign-In-With-Farcaster and social-to-wallet linking.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/walletauth/pkg/errors"
	authsvc "github.com/DeBrosOfficial/walletauth/pkg/gateway/auth"
	"github.com/DeBrosOfficial/walletauth/pkg/gateway/ctxkeys"
	"github.com/DeBrosOfficial/walletauth/pkg/httputil"
	"github.com/DeBrosOfficial/walletauth/pkg/logging"
	"github.com/DeBrosOfficial/walletauth/pkg/token"
)

// Flow names reported to the outcome recorder.
const (
	FlowLogin     = "login"
	FlowRefresh   = "refresh"
	FlowSocial    = "social_verify"
	FlowLink      = "link"
	FlowLogout    = "logout"
	FlowLogoutAll = "logout_all"
	FlowNonce     = "nonce"
)

// OutcomeRecorder is called once per request with the flow and its error code ("ok" on
// success).
type OutcomeRecorder func(flow, outcome string)

// Handlers holds dependencies for authentication HTTP handlers
type Handlers struct {
	logger  *logging.ColoredLogger
	service *authsvc.Service
	record  OutcomeRecorder
}

// NewHandlers creates a new authentication handlers instance
func NewHandlers(logger *logging.ColoredLogger, service *authsvc.Service, record OutcomeRecorder) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	if record == nil {
		record = func(string, string) {}
	}
	return &Handlers{logger: logger, service: service, record: record}
}

// ClaimsFromContext returns the access-token claims the authorize middleware attached.
func ClaimsFromContext(r *http.Request) (*token.Claims, bool) {
	claims, ok := r.Context().Value(ctxkeys.Claims).(*token.Claims)
	return claims, ok && claims != nil
}

// fail renders err and records the outcome. Server-side failures are logged with their
// cause; clients only see the generic message.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, flow string, err error) {
	code := apperrors.GetErrorCode(err)
	h.record(flow, strings.ToLower(code))

	status := apperrors.StatusCode(err)
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.ComponentError(logging.ComponentGateway, "Auth request failed",
			zap.String("flow", flow),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	case apperrors.IsSecurityAlert(err):
		h.logger.ComponentWarn(logging.ComponentAuth, "Security alert returned to client",
			zap.String("flow", flow),
			zap.String("client_ip", clientIP(r)))
	}
	apperrors.WriteHTTPError(w, err)
}

func (h *Handlers) ok(w http.ResponseWriter, flow string, v any) {
	h.record(flow, "ok")
	httputil.WriteJSON(w, http.StatusOK, v)
}

// decode reads the JSON body and checks the named fields. fields alternates name, value
// and is evaluated after decoding, so callers pass a closure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any, fields func() []string) error {
	if err := httputil.DecodeJSON(w, r, v); err != nil {
		return apperrors.NewValidationError("", "invalid json body")
	}
	if fields == nil {
		return nil
	}
	if missing := httputil.MissingFields(fields()...); len(missing) > 0 {
		return apperrors.NewValidationError(strings.Join(missing, ","), "required")
	}
	return nil
}

func sessionResponse(sess *authsvc.Session, linked *bool) SessionResponse {
	return SessionResponse{
		Linked:       linked,
		Address:      sess.Address,
		Role:         sess.Role,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(sess.AccessExpiresAt).Seconds()),
	}
}

var errNoClaims = errors.New("no claims in request context")

func clientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ctxkeys.RequestIP).(string); ok && ip != "" {
		return ip
	}
	return httputil.RemoteIP(r)
}
