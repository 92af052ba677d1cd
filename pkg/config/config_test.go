package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envFrom(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate, got %v", errs)
	}
	if cfg.Auth.AccessTokenTTL != 7*24*time.Hour {
		t.Errorf("access ttl = %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 30*24*time.Hour {
		t.Errorf("refresh ttl = %v", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.Auth.PendingLinkTTL != 5*time.Minute {
		t.Errorf("pending link ttl = %v", cfg.Auth.PendingLinkTTL)
	}
}

func TestValidate_ProductionRequirements(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Environment = EnvProduction
	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected jwt_secret and resolver_url errors, got %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "auth.jwt_secret") || !strings.Contains(errs[1].Error(), "social.resolver_url") {
		t.Fatalf("unexpected errors: %v", errs)
	}

	cfg.Auth.JWTSecret = strings.Repeat("k", MinSecretLength)
	cfg.Social.ResolverURL = "https://hub.example.com"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	cfg.Auth.RequireNonce = false
	errs = cfg.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "auth.require_nonce") {
		t.Fatalf("expected a require_nonce error, got %v", errs)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "auth.jwt_secret"},
		{"zero access ttl", func(c *Config) { c.Auth.AccessTokenTTL = 0 }, "auth.access_token_ttl"},
		{"refresh shorter than access", func(c *Config) { c.Auth.RefreshTokenTTL = time.Hour }, "auth.refresh_token_ttl"},
		{"bad admin", func(c *Config) { c.Auth.Admins = []string{"0x123"} }, "auth.admins[0]"},
		{"bad listen addr", func(c *Config) { c.ListenAddr = "6001" }, "listen_addr"},
		{"bad trusted proxy", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/8", "proxy.local"} }, "trusted_proxies[1]"},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "environment"},
		{"bad dsn", func(c *Config) { c.Database.RQLiteDSN = "postgres://x" }, "database.rqlite_dsn"},
		{"olric without servers", func(c *Config) { c.Cache.Backend = CacheOlric }, "cache.olric_servers"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = CacheRedis }, "cache.redis_addr"},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"https without domain", func(c *Config) { c.HTTPS.Enabled = true; c.HTTPS.AutoCert = true; c.HTTPS.CacheDir = "/tmp" }, "https.domain"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			found := false
			for _, err := range errs {
				if ve, ok := err.(ValidationError); ok && ve.Path == tt.path {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error at %s, got %v", tt.path, errs)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	errs := cfg.ApplyEnv(envFrom(map[string]string{
		"WALLETAUTH_JWT_SECRET":        "from-env",
		"WALLETAUTH_ACCESS_TOKEN_TTL":  "15m",
		"WALLETAUTH_REFRESH_TOKEN_TTL": "14d",
		"WALLETAUTH_OLRIC_SERVERS":     "a:3320, b:3320,",
		"WALLETAUTH_LOG_COLORS":        "off",
		"WALLETAUTH_LISTEN_ADDR":       "   ",
		"WALLETAUTH_TRUSTED_PROXIES":   "10.0.0.1, 192.168.0.0/16",
		"WALLETAUTH_REQUIRE_NONCE":     "false",
	}))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("access ttl = %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 14*24*time.Hour {
		t.Errorf("refresh ttl = %v", cfg.Auth.RefreshTokenTTL)
	}
	if len(cfg.Cache.OlricServers) != 2 || cfg.Cache.OlricServers[1] != "b:3320" {
		t.Errorf("olric servers = %v", cfg.Cache.OlricServers)
	}
	if cfg.Logging.Colors {
		t.Error("colors should be disabled")
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.168.0.0/16" {
		t.Errorf("trusted proxies = %v", cfg.TrustedProxies)
	}
	if cfg.Auth.RequireNonce {
		t.Error("nonce requirement should be disabled")
	}
	if cfg.ListenAddr != ":6001" {
		t.Errorf("blank env must not override, got %q", cfg.ListenAddr)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	cfg := DefaultConfig()
	errs := cfg.ApplyEnv(envFrom(map[string]string{
		"WALLETAUTH_STORE_TIMEOUT":         "soon",
		"WALLETAUTH_RATE_LIMIT_PER_MINUTE": "many",
		"WALLETAUTH_RATE_LIMIT_ENABLED":    "maybe",
	}))
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
	if cfg.Database.StoreTimeout != 5*time.Second {
		t.Errorf("invalid value must not change the field, got %v", cfg.Database.StoreTimeout)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	content := `
listen_addr: ":7001"
auth:
  access_token_ttl: 15m
  admins: ["0x00000000000000000000000000000000000000aa"]
cache:
  backend: redis
  redis_addr: "localhost:6379"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":7001" || cfg.Auth.AccessTokenTTL != 15*time.Minute || cfg.Cache.Backend != CacheRedis {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.Auth.RefreshTokenTTL != 30*24*time.Hour {
		t.Errorf("refresh ttl = %v", cfg.Auth.RefreshTokenTTL)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("loaded config invalid: %v", errs)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte("listen_adr: \":7001\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, false); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoad_MissingOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":6001" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false); err == nil {
		t.Fatal("missing required file should fail")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"90s", 90 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"xd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v", tt.in, got, err)
		}
	}
}
