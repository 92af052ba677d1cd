package olric

import (
	"context"
	"errors"
	"fmt"
	"time"

	olriclib "github.com/olric-data/olric"
)

// Cache implements pending.Cache on an Olric DMap. Put stores with EX; Take reads then
// deletes, and only the caller whose Delete removed the key owns the value.
type Cache struct {
	dm      olriclib.DMap
	timeout time.Duration
}

// NewCache opens the named DMap.
func (c *Client) NewCache(dmap string) (*Cache, error) {
	if dmap == "" {
		return nil, errors.New("dmap name is required")
	}
	dm, err := c.client.NewDMap(dmap)
	if err != nil {
		return nil, fmt.Errorf("failed to create DMap %q: %w", dmap, err)
	}
	return &Cache{dm: dm, timeout: c.timeout}, nil
}

func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.dm.Put(ctx, key, value, olriclib.EX(ttl)); err != nil {
		return fmt.Errorf("olric put: %w", err)
	}
	return nil
}

func (c *Cache) Take(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gr, err := c.dm.Get(ctx, key)
	if err != nil {
		if errors.Is(err, olriclib.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("olric get: %w", err)
	}
	value, err := gr.Byte()
	if err != nil {
		return nil, false, fmt.Errorf("olric decode: %w", err)
	}

	deleted, err := c.dm.Delete(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("olric delete: %w", err)
	}
	if deleted == 0 {
		// A concurrent Take removed it first.
		return nil, false, nil
	}
	return value, true, nil
}
