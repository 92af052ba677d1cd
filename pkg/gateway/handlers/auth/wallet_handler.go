package auth

import (
	"net/http"
)

// LoginHandler verifies a wallet signature and opens a session.
//
// POST /auth/login
// Request body: LoginRequest
// Response: SessionResponse
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	err := h.decode(w, r, &req, func() []string {
		return []string{"address", req.Address, "signature", req.Signature, "message", req.Message}
	})
	if err != nil {
		h.fail(w, r, FlowLogin, err)
		return
	}

	sess, err := h.service.Login(r.Context(), req.Address, req.Signature, req.Message)
	if err != nil {
		h.fail(w, r, FlowLogin, err)
		return
	}
	h.ok(w, FlowLogin, sessionResponse(sess, nil))
}
