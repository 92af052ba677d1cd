package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletauth/pkg/logging"
)

// startBackground launches the janitor and the rate-limiter sweeper; both stop with ctx.
func (g *Gateway) startBackground(ctx context.Context) {
	if g.rateLimiter != nil {
		g.rateLimiter.StartCleanup(ctx, time.Minute, 10*time.Minute)
	}
	if g.rotator != nil && g.cfg.PurgeInterval > 0 {
		go g.runJanitor(ctx)
	}
}

// runJanitor periodically removes refresh tokens that are revoked and expired for longer
// than PurgeAfter.
func (g *Gateway) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.PurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.purgeOnce(ctx)
		}
	}
}

func (g *Gateway) purgeOnce(ctx context.Context) int64 {
	cutoff := time.Now().Add(-g.cfg.PurgeAfter)
	n, err := g.rotator.Purge(ctx, cutoff)
	if err != nil {
		g.logger.ComponentWarn(logging.ComponentStore, "Refresh token purge failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		g.metrics.purged.Add(float64(n))
		g.logger.ComponentInfo(logging.ComponentStore, "Purged refresh tokens",
			zap.Int64("count", n), zap.Time("expired_before", cutoff))
	}
	return n
}

// Close releases the gateway's dependencies in the order they were registered.
func (g *Gateway) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, closeFn := range g.closers {
		if err := closeFn(ctx); err != nil {
			g.logger.ComponentWarn(logging.ComponentGeneral, "error during dependency close", zap.Error(err))
		}
	}
}
