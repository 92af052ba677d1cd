package olric

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	olriclib "github.com/olric-data/olric"
	"github.com/olric-data/olric/config"
	"go.uber.org/zap"
)

// EmbeddedConfig configures an in-process Olric member for single-node deployments and
// tests. Zero ports pick free ones.
type EmbeddedConfig struct {
	BindAddr       string
	Port           int
	MemberlistPort int
	StartTimeout   time.Duration
}

// StartEmbedded starts an Olric member inside this process and returns a Client bound to
// it. Close shuts the member down.
func StartEmbedded(ctx context.Context, cfg EmbeddedConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1"
	}
	if cfg.StartTimeout == 0 {
		cfg.StartTimeout = 30 * time.Second
	}
	var err error
	if cfg.Port == 0 {
		if cfg.Port, err = freePort(cfg.BindAddr); err != nil {
			return nil, err
		}
	}
	if cfg.MemberlistPort == 0 {
		if cfg.MemberlistPort, err = freePort(cfg.BindAddr); err != nil {
			return nil, err
		}
	}

	c := config.New("local")
	c.BindAddr = cfg.BindAddr
	c.BindPort = cfg.Port
	c.MemberlistConfig.BindAddr = cfg.BindAddr
	c.MemberlistConfig.BindPort = cfg.MemberlistPort
	c.Logger = log.New(io.Discard, "", 0)

	started := make(chan struct{})
	c.Started = func() { close(started) }

	db, err := olriclib.New(c)
	if err != nil {
		return nil, fmt.Errorf("failed to configure embedded Olric: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.Start()
	}()

	select {
	case <-started:
	case err := <-errCh:
		return nil, fmt.Errorf("embedded Olric failed to start: %w", err)
	case <-time.After(cfg.StartTimeout):
		_ = db.Shutdown(context.Background())
		return nil, fmt.Errorf("embedded Olric did not start within %v", cfg.StartTimeout)
	case <-ctx.Done():
		_ = db.Shutdown(context.Background())
		return nil, ctx.Err()
	}

	logger.Info("Embedded Olric member started",
		zap.String("bind_addr", cfg.BindAddr),
		zap.Int("port", cfg.Port),
		zap.Int("memberlist_port", cfg.MemberlistPort))

	return &Client{
		client:   db.NewEmbeddedClient(),
		timeout:  DefaultTimeout,
		logger:   logger,
		shutdown: db.Shutdown,
	}, nil
}

func freePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("failed to find free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
