package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/DeBrosOfficial/walletauth/pkg/config"
)

// flagOverrides are the command-line values; empty strings leave the loaded config alone.
type flagOverrides struct {
	configPath  string
	listenAddr  string
	environment string
	rqliteDSN   string
	cache       string
	logLevel    string
	logFormat   string
}

func parseFlags(args []string, stderr io.Writer) (*flagOverrides, error) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &flagOverrides{}
	fs.StringVar(&f.configPath, "config", "", "Path to gateway.yaml (default ~/.walletauth/configs/gateway.yaml, optional)")
	fs.StringVar(&f.listenAddr, "addr", "", "HTTP listen address (e.g. :6001)")
	fs.StringVar(&f.environment, "env", "", "Deployment environment (development, production)")
	fs.StringVar(&f.rqliteDSN, "rqlite-dsn", "", "rqlite URL or sqlite:///path")
	fs.StringVar(&f.cache, "cache", "", "Pending-link cache backend (memory, olric, redis)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format (console, json)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *flagOverrides) apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.ListenAddr, f.listenAddr)
	set(&cfg.Environment, f.environment)
	set(&cfg.Database.RQLiteDSN, f.rqliteDSN)
	set(&cfg.Cache.Backend, f.cache)
	set(&cfg.Logging.Level, f.logLevel)
	set(&cfg.Logging.Format, f.logFormat)
}

// loadConfig resolves the gateway configuration. Priority: flags > env > yaml > defaults.
// An explicit -config path must exist; the default location is optional.
func loadConfig(args []string, lookup config.LookupFunc, stderr io.Writer) (*config.Config, string, error) {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		return nil, "", err
	}

	path, optional := flags.configPath, false
	if path == "" {
		optional = true
		if path, err = config.DefaultPath("gateway.yaml"); err != nil {
			path = ""
		}
	}

	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, path, err
	}
	if errs := cfg.ApplyEnv(lookup); len(errs) > 0 {
		return nil, path, joinValidation(errs)
	}
	flags.apply(cfg)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, path, joinValidation(errs)
	}
	return cfg, path, nil
}

func joinValidation(errs []error) error {
	return fmt.Errorf("invalid configuration:\n%w", errors.Join(errs...))
}
