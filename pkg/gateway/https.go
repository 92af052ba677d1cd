package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"github.com/DeBrosOfficial/walletauth/pkg/config"
	"github.com/DeBrosOfficial/walletauth/pkg/logging"
)

const (
	letsEncryptProduction = "https://acme-v02.api.letsencrypt.org/directory"
	letsEncryptStaging    = "https://acme-staging-v02.api.letsencrypt.org/directory"
	shutdownTimeout       = 10 * time.Second
)

// Start serves the gateway until ctx is cancelled, then shuts down gracefully. With HTTPS
// enabled it also runs a plain HTTP listener for ACME challenges and redirects.
func (g *Gateway) Start(ctx context.Context) error {
	g.startBackground(ctx)

	if !g.cfg.HTTPS.Enabled {
		srv := g.newServer(g.cfg.ListenAddr, g.handler)
		ln, err := net.Listen("tcp", g.cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", g.cfg.ListenAddr, err)
		}
		g.logger.ComponentInfo(logging.ComponentGateway, "HTTP server starting",
			zap.String("listen_addr", ln.Addr().String()))
		return g.serveUntilDone(ctx, []*http.Server{srv}, func() error { return srv.Serve(ln) })
	}

	tlsConfig, certManager, err := g.tlsConfig()
	if err != nil {
		return err
	}

	httpsPort := g.cfg.HTTPS.HTTPSPort
	if httpsPort == 0 {
		httpsPort = 443
	}
	httpPort := g.cfg.HTTPS.HTTPPort
	if httpPort == 0 {
		httpPort = 80
	}

	redirect := g.newServer(fmt.Sprintf(":%d", httpPort), redirectHandler(certManager, httpsPort))
	secure := g.newServer(fmt.Sprintf(":%d", httpsPort), g.handler)
	secure.TLSConfig = tlsConfig

	ln, err := tls.Listen("tcp", secure.Addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to create TLS listener: %w", err)
	}

	go func() {
		g.logger.ComponentInfo(logging.ComponentGateway, "HTTP server starting (ACME/redirect)", zap.Int("port", httpPort))
		if err := redirect.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.ComponentError(logging.ComponentGateway, "HTTP server error", zap.Error(err))
		}
	}()

	g.logger.ComponentInfo(logging.ComponentGateway, "HTTPS server starting",
		zap.String("domain", g.cfg.HTTPS.Domain),
		zap.Int("port", httpsPort))
	return g.serveUntilDone(ctx, []*http.Server{secure, redirect}, func() error { return secure.Serve(ln) })
}

func (g *Gateway) newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      g.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (g *Gateway) serveUntilDone(ctx context.Context, servers []*http.Server, serve func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- serve() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	g.logger.ComponentInfo(logging.ComponentGateway, "Gateway shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	g.logger.ComponentInfo(logging.ComponentGateway, "Gateway shutdown complete")
	return nil
}

// tlsConfig builds the TLS settings from pre-issued certificate files or Let's Encrypt.
func (g *Gateway) tlsConfig() (*tls.Config, *autocert.Manager, error) {
	cfg := g.cfg.HTTPS
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
		g.logger.ComponentInfo(logging.ComponentGateway, "Using pre-configured certificates for HTTPS",
			zap.String("cert_file", cfg.CertFile))
		return tlsConfig, nil, nil
	}

	if !cfg.AutoCert {
		return nil, nil, fmt.Errorf("HTTPS enabled but no certificate source configured")
	}

	m := newCertManager(cfg, g.logger)
	tlsConfig.GetCertificate = m.GetCertificate
	tlsConfig.NextProtos = []string{"h2", "http/1.1", acme.ALPNProto}
	return tlsConfig, m, nil
}

func newCertManager(cfg config.HTTPSConfig, logger *logging.ColoredLogger) *autocert.Manager {
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		if dir, err := config.ConfigDir(); err == nil {
			cacheDir = filepath.Join(dir, "tls-cache")
		} else {
			cacheDir = "tls-cache"
		}
	}

	directoryURL := letsEncryptProduction
	if os.Getenv("WALLETAUTH_ACME_STAGING") != "" {
		directoryURL = letsEncryptStaging
		logger.ComponentWarn(logging.ComponentGateway,
			"Using Let's Encrypt STAGING - certificates will not be trusted by production clients",
			zap.String("domain", cfg.Domain))
	}

	logger.ComponentInfo(logging.ComponentGateway, "Let's Encrypt autocert configured",
		zap.String("domain", cfg.Domain),
		zap.String("cache_dir", cacheDir))

	return &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domain),
		Cache:      autocert.DirCache(cacheDir),
		Email:      cfg.Email,
		Client:     &acme.Client{DirectoryURL: directoryURL},
	}
}

// redirectHandler answers ACME HTTP-01 challenges and redirects everything else to HTTPS.
func redirectHandler(m *autocert.Manager, httpsPort int) http.Handler {
	redirect := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		target := "https://" + host + r.URL.RequestURI()
		if httpsPort != 443 {
			target = fmt.Sprintf("https://%s:%d%s", host, httpsPort, r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
	if m == nil {
		return redirect
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/.well-known/acme-challenge/") {
			m.HTTPHandler(nil).ServeHTTP(w, r)
			return
		}
		redirect.ServeHTTP(w, r)
	})
}
