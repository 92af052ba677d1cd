// Package olric provides the Olric-backed distributed TTL cache for pending social links
// and sign-in nonces.
package olric

import (
	"context"
	"fmt"
	"time"

	olriclib "github.com/olric-data/olric"
	"go.uber.org/zap"
)

// Client wraps an Olric client (cluster or embedded) for cache operations.
type Client struct {
	client   olriclib.Client
	timeout  time.Duration
	logger   *zap.Logger
	shutdown func(context.Context) error
}

// DefaultTimeout bounds each cache operation when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Config points the gateway at an external Olric cluster.
type Config struct {
	Servers []string      // host:port of cluster members; localhost:3320 when empty
	Timeout time.Duration // per-operation deadline for Put/Take
}

// NewClient creates a client connected to an external Olric cluster.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	servers := cfg.Servers
	if len(servers) == 0 {
		servers = []string{"localhost:3320"}
	}

	client, err := olriclib.NewClusterClient(servers)
	if err != nil {
		return nil, fmt.Errorf("failed to create Olric cluster client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger.Info("Connected to Olric cluster for pending-link cache", zap.Strings("servers", servers))
	return &Client{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Health performs a put/get/delete round trip on a scratch DMap.
func (c *Client) Health(ctx context.Context) error {
	dm, err := c.client.NewDMap("_health_check")
	if err != nil {
		return fmt.Errorf("failed to create DMap for health check: %w", err)
	}

	testKey := fmt.Sprintf("_health_%d", time.Now().UnixNano())
	testValue := "ok"

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := dm.Put(ctx, testKey, testValue, olriclib.EX(time.Minute)); err != nil {
		return fmt.Errorf("health check put failed: %w", err)
	}

	gr, err := dm.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("health check get failed: %w", err)
	}

	val, err := gr.String()
	if err != nil {
		return fmt.Errorf("health check value decode failed: %w", err)
	}
	if val != testValue {
		return fmt.Errorf("health check value mismatch: expected %q, got %q", testValue, val)
	}

	_, _ = dm.Delete(ctx, testKey)
	return nil
}

// Close closes the client and, for embedded members, shuts the member down.
func (c *Client) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close(ctx)
	if c.shutdown != nil {
		if serr := c.shutdown(ctx); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}
