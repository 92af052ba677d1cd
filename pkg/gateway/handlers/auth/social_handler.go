package auth

import (
	"net/http"
	"time"

	authsvc "github.com/DeBrosOfficial/walletauth/pkg/gateway/auth"
)

// NonceHandler issues a single-use nonce for a Sign-In-With-Farcaster message.
//
// GET /auth/nonce
// Response: NonceResponse
func (h *Handlers) NonceHandler(w http.ResponseWriter, r *http.Request) {
	nonce, exp, err := h.service.IssueNonce(r.Context())
	if err != nil {
		h.fail(w, r, FlowNonce, err)
		return
	}
	h.ok(w, FlowNonce, NonceResponse{Nonce: nonce, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

// SocialVerifyHandler checks a Farcaster proof. Known identities receive a session;
// unknown ones receive a pending link token to finalize with a wallet signature.
//
// POST /auth/social-verify
// Request body: SocialVerifyRequest
// Response: SessionResponse (linked) or PendingLinkResponse
func (h *Handlers) SocialVerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req SocialVerifyRequest
	err := h.decode(w, r, &req, func() []string {
		return []string{"message", req.Message, "signature", req.Signature, "nonce", req.Nonce}
	})
	if err != nil {
		h.fail(w, r, FlowSocial, err)
		return
	}

	res, err := h.service.SocialVerify(r.Context(), authsvc.SocialRequest{
		Message:   req.Message,
		Signature: req.Signature,
		Nonce:     req.Nonce,
		SkipLink:  req.SkipLink,
	})
	if err != nil {
		h.fail(w, r, FlowSocial, err)
		return
	}

	if res.Linked {
		linked := true
		h.ok(w, FlowSocial, sessionResponse(res.Session, &linked))
		return
	}
	h.ok(w, FlowSocial, PendingLinkResponse{
		Linked:           false,
		FID:              res.FID,
		PendingLinkToken: res.PendingLinkToken,
		ExpiresAt:        res.PendingExpiresAt.UTC().Format(time.RFC3339),
	})
}

// LinkHandler finalizes a pending social link with a wallet signature.
//
// POST /auth/link
// Request body: LinkRequest
// Response: SessionResponse
func (h *Handlers) LinkHandler(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	err := h.decode(w, r, &req, func() []string {
		return []string{
			"pendingLinkToken", req.PendingLinkToken,
			"address", req.Address,
			"signature", req.Signature,
			"message", req.Message,
		}
	})
	if err != nil {
		h.fail(w, r, FlowLink, err)
		return
	}

	sess, err := h.service.FinalizeLink(r.Context(), req.PendingLinkToken, req.Address, req.Signature, req.Message)
	if err != nil {
		h.fail(w, r, FlowLink, err)
		return
	}
	linked := true
	h.ok(w, FlowLink, sessionResponse(sess, &linked))
}
