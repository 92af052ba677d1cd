package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/walletauth/pkg/errors"
	"github.com/DeBrosOfficial/walletauth/pkg/httputil"
	"github.com/DeBrosOfficial/walletauth/pkg/logging"
	"github.com/DeBrosOfficial/walletauth/pkg/wallet"
)

const healthCheckTimeout = 2 * time.Second

// healthResponse is the JSON structure used by healthHandler
type healthResponse struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		StartedAt: g.startedAt,
		Uptime:    time.Since(g.startedAt).Round(time.Second).String(),
	}

	if len(g.health) > 0 {
		resp.Checks = make(map[string]string, len(g.health))
		for _, hc := range g.health {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := hc.Check(ctx)
			cancel()
			if err != nil {
				g.logger.ComponentWarn(logging.ComponentGateway, "Health check failed",
					zap.String("check", hc.Name), zap.Error(err))
				resp.Checks[hc.Name] = "unavailable"
				resp.Status = "degraded"
				continue
			}
			resp.Checks[hc.Name] = "ok"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, resp)
}

// securityEventsHandler lists the security events of one wallet.
//
// GET /admin/security-events?address=0x...&limit=50 (admin)
func (g *Gateway) securityEventsHandler(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if !wallet.IsAddress(address) {
		apperrors.WriteHTTPError(w, apperrors.NewValidationError("address", "must be a 0x-prefixed wallet address"))
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			apperrors.WriteHTTPError(w, apperrors.NewValidationError("limit", "must be between 1 and 500"))
			return
		}
		limit = n
	}

	events, err := g.events.ListByAddress(r.Context(), wallet.Normalize(address), limit)
	if err != nil {
		g.logger.ComponentError(logging.ComponentStore, "Failed to list security events", zap.Error(err))
		apperrors.WriteHTTPError(w, apperrors.NewServiceError("event store", "", err))
		return
	}

	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"id":        ev.ID,
			"kind":      ev.Kind,
			"address":   ev.Address,
			"family":    familyFingerprint(ev.Family),
			"detail":    ev.Detail,
			"createdAt": ev.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}

// familyFingerprint hides the family id, which is the first refresh token of the lineage.
func familyFingerprint(family string) string {
	if family == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(family))
	return hex.EncodeToString(sum[:8])
}
