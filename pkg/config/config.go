package config

import (
	"time"
)

// Environment names recognised by the gateway. Only production hard-fails on missing secrets.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Cache backends for pending links and social sign-in nonces.
const (
	CacheMemory = "memory"
	CacheOlric  = "olric"
	CacheRedis  = "redis"
)

// Config is the complete gateway configuration, loaded from YAML and overridden by env.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	Environment string `yaml:"environment"`
	// TrustedProxies are IPs or CIDRs whose X-Forwarded-For and X-Real-IP headers are
	// believed. Requests from anywhere else are keyed on the socket address.
	TrustedProxies []string `yaml:"trusted_proxies"`

	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Social    SocialConfig    `yaml:"social"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	HTTPS     HTTPSConfig     `yaml:"https"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuthConfig holds token signing and lifetime settings.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	Issuer          string        `yaml:"issuer"`
	Audience        string        `yaml:"audience"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	PendingLinkTTL  time.Duration `yaml:"pending_link_ttl"`
	NonceTTL        time.Duration `yaml:"nonce_ttl"`
	ClockLeeway     time.Duration `yaml:"clock_leeway"`
	Admins          []string      `yaml:"admins"` // wallet addresses granted the admin role on first login
	// RequireNonce makes every signed message (wallet login, link and social proof) carry a
	// single-use nonce from GET /auth/nonce.
	RequireNonce bool `yaml:"require_nonce"`
}

// DatabaseConfig points at the durable store for refresh tokens, accounts and security events.
type DatabaseConfig struct {
	RQLiteDSN     string        `yaml:"rqlite_dsn"` // http://host:4001 or sqlite:///path for local runs
	StoreTimeout  time.Duration `yaml:"store_timeout"`
	PurgeInterval time.Duration `yaml:"purge_interval"` // 0 disables the expired-token janitor
	PurgeAfter    time.Duration `yaml:"purge_after"`    // grace period past expiry before revoked rows are archived
}

// CacheConfig selects the shared TTL cache used by the pending-link coordinator.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	OlricServers []string      `yaml:"olric_servers"`
	OlricEmbed   bool          `yaml:"olric_embedded"` // run an in-process member instead of dialing olric_servers
	OlricTimeout time.Duration `yaml:"olric_timeout"`
	OlricDMap    string        `yaml:"olric_dmap"`
	RedisAddr    string        `yaml:"redis_addr"`
	RedisDB      int           `yaml:"redis_db"`
	KeyPrefix    string        `yaml:"key_prefix"`
}

// SocialConfig configures Sign-In-With-Farcaster verification.
type SocialConfig struct {
	Domain          string        `yaml:"domain"`       // expected SIWF domain; empty skips the check
	ResolverURL     string        `yaml:"resolver_url"` // hub confirming fid custody; empty disables social sign-in
	ResolverAPIKey  string        `yaml:"resolver_api_key"`
	ResolverTimeout time.Duration `yaml:"resolver_timeout"`
}

// RateLimitConfig controls the per-IP limiter on /auth routes.
type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled"`
	PerMinute int  `yaml:"per_minute"`
	Burst     int  `yaml:"burst"`
}

// HTTPSConfig contains HTTPS/TLS configuration for the gateway.
type HTTPSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Domain    string `yaml:"domain"`
	AutoCert  bool   `yaml:"auto_cert"`  // Use Let's Encrypt for automatic certificate
	CertFile  string `yaml:"cert_file"`  // Path to certificate file (if not using auto_cert)
	KeyFile   string `yaml:"key_file"`   // Path to key file (if not using auto_cert)
	CacheDir  string `yaml:"cache_dir"`  // Directory for Let's Encrypt certificate cache
	HTTPPort  int    `yaml:"http_port"`  // HTTP port for ACME challenge (default: 80)
	HTTPSPort int    `yaml:"https_port"` // HTTPS port (default: 443)
	Email     string `yaml:"email"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	Colors bool   `yaml:"colors"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:  ":6001",
		Environment: EnvDevelopment,
		Auth: AuthConfig{
			Issuer:          "walletauth",
			Audience:        "walletauth",
			AccessTokenTTL:  7 * 24 * time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
			PendingLinkTTL:  5 * time.Minute,
			NonceTTL:        5 * time.Minute,
			RequireNonce:    true,
		},
		Database: DatabaseConfig{
			RQLiteDSN:     "http://localhost:5001",
			StoreTimeout:  5 * time.Second,
			PurgeInterval: time.Hour,
			PurgeAfter:    7 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			Backend:      CacheMemory,
			OlricTimeout: 10 * time.Second,
			OlricDMap:    "walletauth",
			KeyPrefix:    "walletauth:",
		},
		Social: SocialConfig{
			ResolverTimeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:   true,
			PerMinute: 60,
			Burst:     20,
		},
		HTTPS: HTTPSConfig{
			HTTPPort:  80,
			HTTPSPort: 443,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Colors: true,
		},
	}
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
