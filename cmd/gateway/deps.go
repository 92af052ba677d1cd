package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletauth/pkg/config"
	"github.com/DeBrosOfficial/walletauth/pkg/gateway"
	authsvc "github.com/DeBrosOfficial/walletauth/pkg/gateway/auth"
	"github.com/DeBrosOfficial/walletauth/pkg/logging"
	"github.com/DeBrosOfficial/walletauth/pkg/olric"
	"github.com/DeBrosOfficial/walletauth/pkg/pending"
	"github.com/DeBrosOfficial/walletauth/pkg/refresh"
	"github.com/DeBrosOfficial/walletauth/pkg/rqlite"
	"github.com/DeBrosOfficial/walletauth/pkg/social"
	"github.com/DeBrosOfficial/walletauth/pkg/token"
)

// dependencies collects everything buildDependencies created so main can hand it to the
// gateway and close it on failure.
type dependencies struct {
	gateway *gateway.Dependencies
	closers []func(ctx context.Context) error
}

func (d *dependencies) addCloser(fn func(ctx context.Context) error) {
	d.closers = append(d.closers, fn)
}

func (d *dependencies) closeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i](ctx)
	}
}

func buildDependencies(ctx context.Context, logger *logging.ColoredLogger, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{gateway: &gateway.Dependencies{}}
	fail := func(err error) (*dependencies, error) {
		deps.closeAll()
		return nil, err
	}

	db, err := rqlite.Open(cfg.Database.RQLiteDSN)
	if err != nil {
		return fail(err)
	}
	deps.addCloser(func(context.Context) error { return db.Close() })

	if err := rqlite.Ping(ctx, db); err != nil {
		return fail(fmt.Errorf("database unreachable at %s: %w", cfg.Database.RQLiteDSN, err))
	}
	if err := rqlite.Migrate(ctx, db, logger); err != nil {
		return fail(fmt.Errorf("database migrations failed: %w", err))
	}
	deps.gateway.HealthChecks = append(deps.gateway.HealthChecks, gateway.HealthCheck{
		Name:  "database",
		Check: func(ctx context.Context) error { return rqlite.Ping(ctx, db) },
	})

	tokens, err := rqlite.NewRefreshStore(db, cfg.Auth.RefreshTokenTTL, nil)
	if err != nil {
		return fail(err)
	}
	accounts, err := rqlite.NewUserStore(db, nil)
	if err != nil {
		return fail(err)
	}
	events, err := rqlite.NewEventStore(db)
	if err != nil {
		return fail(err)
	}

	cache, err := buildCache(ctx, logger, cfg.Cache, deps)
	if err != nil {
		return fail(err)
	}

	secret, err := signingSecret(logger, cfg)
	if err != nil {
		return fail(err)
	}
	issuer, err := token.NewIssuer(token.Config{
		Secret:   secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.AccessTokenTTL,
		Leeway:   cfg.Auth.ClockLeeway,
	})
	if err != nil {
		return fail(err)
	}

	rotator := refresh.NewRotator(tokens, refresh.Options{
		Timeout: cfg.Database.StoreTimeout,
		Events:  events,
		Logger:  logger,
	})

	// Without a hub the fid in a proof cannot be tied to its signer, so social sign-in stays off.
	var verifier *social.Verifier
	if cfg.Social.ResolverURL != "" {
		verifier = &social.Verifier{
			Domain:   cfg.Social.Domain,
			MaxAge:   cfg.Auth.NonceTTL,
			Resolver: social.NewHubResolver(cfg.Social.ResolverURL, cfg.Social.ResolverAPIKey, cfg.Social.ResolverTimeout),
		}
		logger.ComponentInfo(logging.ComponentSocial, "Social sign-in enabled",
			zap.String("resolver", cfg.Social.ResolverURL))
	} else {
		logger.ComponentWarn(logging.ComponentSocial, "Social sign-in disabled: no resolver_url configured")
	}

	svc, err := authsvc.NewService(authsvc.Deps{
		Logger:       logger,
		Issuer:       issuer,
		Rotator:      rotator,
		Users:        accounts,
		Links:        pending.NewCoordinator(cache, pending.CoordinatorOptions{TTL: cfg.Auth.PendingLinkTTL, Timeout: cfg.Database.StoreTimeout}),
		Nonces:       pending.NewNonceRegistry(cache, cfg.Auth.NonceTTL, cfg.Database.StoreTimeout),
		Social:       verifier,
		Admins:       cfg.Auth.Admins,
		StoreTimeout: cfg.Database.StoreTimeout,
		RequireNonce: cfg.Auth.RequireNonce,
	})
	if err != nil {
		return fail(err)
	}

	deps.gateway.Auth = svc
	deps.gateway.Rotator = rotator
	deps.gateway.Events = events
	// Closers run in registration order on Gateway.Close; release the cache before the database.
	for i := len(deps.closers) - 1; i >= 0; i-- {
		deps.gateway.Closers = append(deps.gateway.Closers, deps.closers[i])
	}
	return deps, nil
}

// buildCache selects the shared TTL cache behind pending links and nonces.
func buildCache(ctx context.Context, logger *logging.ColoredLogger, cfg config.CacheConfig, deps *dependencies) (pending.Cache, error) {
	switch cfg.Backend {
	case config.CacheOlric:
		var (
			client *olric.Client
			err    error
		)
		if cfg.OlricEmbed {
			client, err = olric.StartEmbedded(ctx, olric.EmbeddedConfig{}, logger.Logger)
		} else {
			client, err = olric.NewClient(olric.Config{Servers: cfg.OlricServers, Timeout: cfg.OlricTimeout}, logger.Logger)
		}
		if err != nil {
			return nil, fmt.Errorf("olric cache: %w", err)
		}
		deps.addCloser(client.Close)
		deps.gateway.HealthChecks = append(deps.gateway.HealthChecks, gateway.HealthCheck{Name: "cache", Check: client.Health})

		cache, err := client.NewCache(cfg.OlricDMap)
		if err != nil {
			return nil, fmt.Errorf("olric cache: %w", err)
		}
		logger.ComponentInfo(logging.ComponentCache, "Using Olric pending-link cache",
			zap.Bool("embedded", cfg.OlricEmbed),
			zap.Strings("servers", cfg.OlricServers),
			zap.String("dmap", cfg.OlricDMap))
		return cache, nil

	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		deps.addCloser(func(context.Context) error { return client.Close() })
		cache := pending.NewRedisCache(client, cfg.KeyPrefix)
		if err := cache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis cache at %s: %w", cfg.RedisAddr, err)
		}
		deps.gateway.HealthChecks = append(deps.gateway.HealthChecks, gateway.HealthCheck{Name: "cache", Check: cache.Ping})
		logger.ComponentInfo(logging.ComponentCache, "Using Redis pending-link cache", zap.String("addr", cfg.RedisAddr))
		return cache, nil

	default:
		cache := pending.NewMemoryCache(nil)
		sweepCtx, cancel := context.WithCancel(context.Background())
		cache.StartSweeper(sweepCtx, time.Minute)
		deps.addCloser(func(context.Context) error { cancel(); return nil })
		logger.ComponentWarn(logging.ComponentCache,
			"Using in-process pending-link cache; links are not shared between gateway instances")
		return cache, nil
	}
}

// signingSecret returns the configured JWT secret, or a random one outside production.
func signingSecret(logger *logging.ColoredLogger, cfg *config.Config) ([]byte, error) {
	if cfg.Auth.JWTSecret != "" {
		return []byte(cfg.Auth.JWTSecret), nil
	}
	if cfg.IsProduction() {
		return nil, fmt.Errorf("auth.jwt_secret is required in production")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	logger.ComponentWarn(logging.ComponentAuth,
		"No JWT secret configured; using a random one. Tokens will not survive a restart",
		zap.String("hint", "set "+config.EnvPrefix+"JWT_SECRET"))
	return []byte(hex.EncodeToString(buf)), nil
}
