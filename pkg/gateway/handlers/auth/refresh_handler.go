package auth

import (
	"net/http"

	apperrors "github.com/DeBrosOfficial/walletauth/pkg/errors"
)

// RefreshHandler rotates a refresh token. A replayed token revokes its whole family and
// answers with a security alert.
//
// POST /auth/refresh
// Request body: RefreshRequest
// Response: SessionResponse
func (h *Handlers) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := h.decode(w, r, &req, func() []string { return []string{"refreshToken", req.RefreshToken} }); err != nil {
		h.fail(w, r, FlowRefresh, err)
		return
	}

	sess, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, FlowRefresh, err)
		return
	}
	h.ok(w, FlowRefresh, sessionResponse(sess, nil))
}

// LogoutHandler revokes the family of the presented refresh token.
//
// POST /auth/logout
// Request body: RefreshRequest
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := h.decode(w, r, &req, func() []string { return []string{"refreshToken", req.RefreshToken} }); err != nil {
		h.fail(w, r, FlowLogout, err)
		return
	}
	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.fail(w, r, FlowLogout, err)
		return
	}
	h.ok(w, FlowLogout, map[string]any{"status": "ok"})
}

// LogoutAllHandler revokes every session of the authenticated wallet.
//
// POST /auth/logout-all (protected)
func (h *Handlers) LogoutAllHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r)
	if !ok {
		h.fail(w, r, FlowLogoutAll, apperrors.NewUnauthorizedError("").WithCause(errNoClaims))
		return
	}
	n, err := h.service.LogoutAll(r.Context(), claims.Address())
	if err != nil {
		h.fail(w, r, FlowLogoutAll, err)
		return
	}
	h.ok(w, FlowLogoutAll, map[string]any{"status": "ok", "revoked": n})
}

// MeHandler returns the account of the authenticated wallet.
//
// GET /auth/me (protected)
func (h *Handlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r)
	if !ok {
		apperrors.WriteHTTPError(w, apperrors.NewUnauthorizedError("").WithCause(errNoClaims))
		return
	}
	acct, err := h.service.Account(r.Context(), claims.Address())
	if err != nil {
		apperrors.WriteHTTPError(w, err)
		return
	}
	resp := map[string]any{
		"address":   acct.Address,
		"role":      acct.Role,
		"createdAt": acct.CreatedAt,
		"updatedAt": acct.UpdatedAt,
		"tokenRole": claims.Role,
	}
	if acct.LinkedSocialID != nil {
		resp["linkedSocialId"] = *acct.LinkedSocialID
	}
	if claims.ExpiresAt != nil {
		resp["tokenExpiresAt"] = claims.ExpiresAt.Time
	}
	h.ok(w, "me", resp)
}
