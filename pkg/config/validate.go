package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "auth.access_token_ttl"
	Message string // e.g., "must be positive"
	Hint    string // e.g., "use a Go duration such as 168h"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// MinSecretLength is the shortest accepted HS256 secret.
const MinSecretLength = 32

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateAuth()...)
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validateSocial()...)
	errs = append(errs, c.validateHTTPS()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Path:    "listen_addr",
			Message: fmt.Sprintf("invalid address %q", c.ListenAddr),
			Hint:    "expected host:port or :port",
		})
	}
	for i, p := range c.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("trusted_proxies[%d]", i),
				Message: fmt.Sprintf("invalid proxy %q", p),
				Hint:    "use an IP address or CIDR such as 10.0.0.0/8",
			})
		}
	}
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, ValidationError{
			Path:    "environment",
			Message: fmt.Sprintf("unknown environment %q", c.Environment),
			Hint:    "use development or production",
		})
	}
	if c.RateLimit.Enabled && c.RateLimit.PerMinute <= 0 {
		errs = append(errs, ValidationError{Path: "rate_limit.per_minute", Message: "must be positive when rate limiting is enabled"})
	}
	if c.RateLimit.Burst < 0 {
		errs = append(errs, ValidationError{Path: "rate_limit.burst", Message: "must not be negative"})
	}
	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error
	a := c.Auth

	// Outside production an empty secret is replaced at startup by a random one.
	if a.JWTSecret == "" && c.IsProduction() {
		errs = append(errs, ValidationError{
			Path:    "auth.jwt_secret",
			Message: "must be set in production",
			Hint:    "set " + EnvPrefix + "JWT_SECRET",
		})
	}
	if a.JWTSecret != "" && len(a.JWTSecret) < MinSecretLength {
		errs = append(errs, ValidationError{
			Path:    "auth.jwt_secret",
			Message: fmt.Sprintf("must be at least %d bytes", MinSecretLength),
		})
	}

	for _, d := range []struct {
		path string
		val  time.Duration
	}{
		{"auth.access_token_ttl", a.AccessTokenTTL},
		{"auth.refresh_token_ttl", a.RefreshTokenTTL},
		{"auth.pending_link_ttl", a.PendingLinkTTL},
		{"auth.nonce_ttl", a.NonceTTL},
	} {
		if d.val <= 0 {
			errs = append(errs, ValidationError{Path: d.path, Message: "must be positive", Hint: "use a duration such as 5m, 168h or 30d"})
		}
	}
	if !a.RequireNonce && c.IsProduction() {
		errs = append(errs, ValidationError{
			Path:    "auth.require_nonce",
			Message: "must be enabled in production",
			Hint:    "without nonces a captured signature can be replayed",
		})
	}
	if a.ClockLeeway < 0 {
		errs = append(errs, ValidationError{Path: "auth.clock_leeway", Message: "must not be negative"})
	}
	if a.AccessTokenTTL > 0 && a.RefreshTokenTTL > 0 && a.RefreshTokenTTL < a.AccessTokenTTL {
		errs = append(errs, ValidationError{
			Path:    "auth.refresh_token_ttl",
			Message: "must not be shorter than auth.access_token_ttl",
		})
	}
	for i, addr := range a.Admins {
		if !isHexAddress(addr) {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("auth.admins[%d]", i),
				Message: fmt.Sprintf("invalid wallet address %q", addr),
				Hint:    "expected 0x followed by 40 hex characters",
			})
		}
	}
	return errs
}

func (c *Config) validateDatabase() []error {
	var errs []error
	d := c.Database
	if d.RQLiteDSN == "" {
		errs = append(errs, ValidationError{Path: "database.rqlite_dsn", Message: "must not be empty"})
	} else if u, err := url.Parse(d.RQLiteDSN); err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "sqlite") {
		errs = append(errs, ValidationError{
			Path:    "database.rqlite_dsn",
			Message: fmt.Sprintf("invalid DSN %q", d.RQLiteDSN),
			Hint:    "expected http(s)://host:port or sqlite:///path",
		})
	}
	if d.StoreTimeout <= 0 {
		errs = append(errs, ValidationError{Path: "database.store_timeout", Message: "must be positive"})
	}
	if d.PurgeInterval < 0 || d.PurgeAfter < 0 {
		errs = append(errs, ValidationError{Path: "database.purge_interval", Message: "purge settings must not be negative"})
	}
	return errs
}

func (c *Config) validateCache() []error {
	var errs []error
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheOlric:
		if len(c.Cache.OlricServers) == 0 && !c.Cache.OlricEmbed {
			errs = append(errs, ValidationError{Path: "cache.olric_servers", Message: "must not be empty for the olric backend"})
		}
		if c.Cache.OlricDMap == "" {
			errs = append(errs, ValidationError{Path: "cache.olric_dmap", Message: "must not be empty"})
		}
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, ValidationError{Path: "cache.redis_addr", Message: "must not be empty for the redis backend"})
		}
	default:
		errs = append(errs, ValidationError{
			Path:    "cache.backend",
			Message: fmt.Sprintf("unknown backend %q", c.Cache.Backend),
			Hint:    "use memory, olric or redis",
		})
	}
	return errs
}

func (c *Config) validateSocial() []error {
	var errs []error
	if c.Social.ResolverURL == "" && c.IsProduction() {
		errs = append(errs, ValidationError{
			Path:    "social.resolver_url",
			Message: "must be set in production",
			Hint:    "fid ownership cannot be confirmed without a hub; set " + EnvPrefix + "SOCIAL_RESOLVER_URL",
		})
	}
	if c.Social.ResolverURL != "" {
		if u, err := url.Parse(c.Social.ResolverURL); err != nil || u.Host == "" {
			errs = append(errs, ValidationError{Path: "social.resolver_url", Message: "must be an absolute URL"})
		}
	}
	if c.Social.ResolverTimeout <= 0 {
		errs = append(errs, ValidationError{Path: "social.resolver_timeout", Message: "must be positive"})
	}
	return errs
}

func (c *Config) validateHTTPS() []error {
	var errs []error
	h := c.HTTPS
	if !h.Enabled {
		return nil
	}
	if h.Domain == "" {
		errs = append(errs, ValidationError{Path: "https.domain", Message: "must be set when HTTPS is enabled"})
	}
	if !h.AutoCert && (h.CertFile == "" || h.KeyFile == "") {
		errs = append(errs, ValidationError{
			Path:    "https.cert_file",
			Message: "cert_file and key_file are required without auto_cert",
		})
	}
	if h.AutoCert && h.CacheDir == "" {
		errs = append(errs, ValidationError{Path: "https.cache_dir", Message: "must be set when auto_cert is enabled"})
	}
	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("invalid level %q", c.Logging.Level),
			Hint:    "use debug, info, warn or error",
		})
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{Path: "logging.format", Message: fmt.Sprintf("invalid format %q", c.Logging.Format), Hint: "use console or json"})
	}
	return errs
}

func isHexAddress(s string) bool {
	if len(s) != 42 || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func validProxy(p string) bool {
	if strings.Contains(p, "/") {
		_, _, err := net.ParseCIDR(p)
		return err == nil
	}
	return net.ParseIP(p) != nil
}
