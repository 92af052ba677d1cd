package gateway

import (
	"context"
	"net/http"

	"github.com/DeBrosOfficial/walletauth/pkg/gateway/ctxkeys"
	"github.com/DeBrosOfficial/walletauth/pkg/httputil"
	"github.com/DeBrosOfficial/walletauth/pkg/token"
)

// ClaimsFromContext returns the access-token claims attached by Authorize.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ctxkeys.Claims).(*token.Claims)
	return claims, ok && claims != nil
}

// RequestIP returns the client address resolved by the gateway, falling back to the socket
// peer for requests that did not pass through it.
func RequestIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ctxkeys.RequestIP).(string); ok && ip != "" {
		return ip
	}
	return httputil.RemoteIP(r)
}
