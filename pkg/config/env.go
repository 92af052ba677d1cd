package config

import (
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment variable the gateway reads.
const EnvPrefix = "WALLETAUTH_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields of c from environment variables. Unset or blank variables
// leave the current value alone; unparsable values are returned as validation errors.
func (c *Config) ApplyEnv(lookup LookupFunc) []error {
	e := envReader{lookup: lookup}

	e.str("LISTEN_ADDR", &c.ListenAddr)
	e.str("ENVIRONMENT", &c.Environment)
	e.list("TRUSTED_PROXIES", &c.TrustedProxies)

	e.str("JWT_SECRET", &c.Auth.JWTSecret)
	e.str("JWT_ISSUER", &c.Auth.Issuer)
	e.str("JWT_AUDIENCE", &c.Auth.Audience)
	e.duration("ACCESS_TOKEN_TTL", &c.Auth.AccessTokenTTL)
	e.duration("REFRESH_TOKEN_TTL", &c.Auth.RefreshTokenTTL)
	e.duration("PENDING_LINK_TTL", &c.Auth.PendingLinkTTL)
	e.duration("NONCE_TTL", &c.Auth.NonceTTL)
	e.list("ADMINS", &c.Auth.Admins)
	e.boolean("REQUIRE_NONCE", &c.Auth.RequireNonce)

	e.str("RQLITE_DSN", &c.Database.RQLiteDSN)
	e.duration("STORE_TIMEOUT", &c.Database.StoreTimeout)

	e.str("CACHE_BACKEND", &c.Cache.Backend)
	e.list("OLRIC_SERVERS", &c.Cache.OlricServers)
	e.boolean("OLRIC_EMBEDDED", &c.Cache.OlricEmbed)
	e.str("REDIS_ADDR", &c.Cache.RedisAddr)

	e.str("SOCIAL_DOMAIN", &c.Social.Domain)
	e.str("SOCIAL_RESOLVER_URL", &c.Social.ResolverURL)
	e.str("SOCIAL_RESOLVER_API_KEY", &c.Social.ResolverAPIKey)

	e.boolean("RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	e.integer("RATE_LIMIT_PER_MINUTE", &c.RateLimit.PerMinute)

	e.str("LOG_LEVEL", &c.Logging.Level)
	e.str("LOG_FORMAT", &c.Logging.Format)
	e.boolean("LOG_COLORS", &c.Logging.Colors)

	return e.errs
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, msg string) {
	e.errs = append(e.errs, ValidationError{Path: "env." + EnvPrefix + key, Message: msg})
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := ParseDuration(v)
	if err != nil {
		e.fail(key, err.Error())
		return
	}
	*dst = d
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, "must be an integer")
		return
	}
	*dst = n
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		*dst = true
	case "0", "false", "f", "no", "n", "off":
		*dst = false
	default:
		e.fail(key, "must be a boolean")
	}
}

// ParseDuration extends time.ParseDuration with a "d" (day) suffix, e.g. "7d" or "30d".
func ParseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
