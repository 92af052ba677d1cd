// Package gateway exposes the wallet authentication service over HTTP: chi routing, the
// authorize middleware, per-IP rate limiting, Prometheus metrics, the refresh-token janitor
// and optional HTTPS.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletauth/pkg/config"
	authsvc "github.com/DeBrosOfficial/walletauth/pkg/gateway/auth"
	authhandlers "github.com/DeBrosOfficial/walletauth/pkg/gateway/handlers/auth"
	"github.com/DeBrosOfficial/walletauth/pkg/httputil"
	"github.com/DeBrosOfficial/walletauth/pkg/logging"
	"github.com/DeBrosOfficial/walletauth/pkg/refresh"
)

// DefaultRealm is advertised in WWW-Authenticate on 401 responses.
const DefaultRealm = "walletauth"

// Config holds configuration for the gateway server
type Config struct {
	ListenAddr     string
	Realm          string
	RequestTimeout time.Duration
	RateLimit      config.RateLimitConfig
	HTTPS          config.HTTPSConfig
	// TrustedProxies are the IPs or CIDRs whose forwarding headers name the client.
	TrustedProxies []string
	// PurgeInterval is how often revoked, expired refresh tokens are archived; 0 disables it.
	PurgeInterval time.Duration
	// PurgeAfter is the grace period past expiry before a revoked token is removed.
	PurgeAfter time.Duration
}

// HealthCheck probes one dependency for GET /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// EventLister reads the security-event log for the admin route.
type EventLister interface {
	ListByAddress(ctx context.Context, address string, limit int) ([]refresh.Event, error)
}

// Dependencies holds the service components required by the Gateway.
type Dependencies struct {
	Auth    *authsvc.Service
	Rotator *refresh.Rotator
	// Events is optional; without it the admin security-event route is not mounted.
	Events       EventLister
	HealthChecks []HealthCheck
	// Closers run in order on Close.
	Closers []func(ctx context.Context) error
}

type Gateway struct {
	logger      *logging.ColoredLogger
	cfg         *Config
	auth        *authsvc.Service
	handlers    *authhandlers.Handlers
	rotator     *refresh.Rotator
	events      EventLister
	health      []HealthCheck
	closers     []func(ctx context.Context) error
	metrics     *Metrics
	rateLimiter *RateLimiter
	proxies     *httputil.TrustedProxies
	startedAt   time.Time
	handler     http.Handler
}

// New creates and initializes a new Gateway instance
func New(logger *logging.ColoredLogger, cfg *Config, deps *Dependencies) (*Gateway, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg == nil {
		return nil, fmt.Errorf("gateway config is required")
	}
	if deps == nil || deps.Auth == nil {
		return nil, fmt.Errorf("gateway: auth service is required")
	}

	proxies, err := httputil.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	c := *cfg
	if c.Realm == "" {
		c.Realm = DefaultRealm
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}

	g := &Gateway{
		logger:    logger,
		cfg:       &c,
		auth:      deps.Auth,
		rotator:   deps.Rotator,
		events:    deps.Events,
		health:    deps.HealthChecks,
		closers:   deps.Closers,
		metrics:   NewMetrics(),
		proxies:   proxies,
		startedAt: time.Now(),
	}
	g.handlers = authhandlers.NewHandlers(logger, deps.Auth, g.metrics.RecordAuthOutcome)

	if c.RateLimit.Enabled && c.RateLimit.PerMinute > 0 {
		g.rateLimiter = NewRateLimiter(c.RateLimit.PerMinute, c.RateLimit.Burst)
		logger.ComponentInfo(logging.ComponentGateway, "Rate limiting enabled",
			zap.Int("per_minute", c.RateLimit.PerMinute),
			zap.Int("burst", c.RateLimit.Burst))
	}

	g.handler = g.Routes()
	return g, nil
}

// Handler returns the fully wired HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Metrics returns the gateway's Prometheus collectors.
func (g *Gateway) Metrics() *Metrics {
	return g.metrics
}
