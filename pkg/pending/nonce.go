package pending

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNonceNotFound is returned for nonces that were never issued, already used or expired.
var ErrNonceNotFound = errors.New("nonce not found or expired")

// NonceRegistry hands out single-use nonces for social sign-in messages. It shares the
// Cache with the Coordinator under its own key space.
type NonceRegistry struct {
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
}

// NewNonceRegistry builds a registry whose nonces live for ttl.
func NewNonceRegistry(cache Cache, ttl, timeout time.Duration) *NonceRegistry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NonceRegistry{cache: cache, ttl: ttl, timeout: timeout}
}

// Issue creates and stores a new nonce. SIWE nonces must be alphanumeric, so the token is
// hex rather than base64.
func (r *NonceRegistry) Issue(ctx context.Context) (string, time.Time, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, fmt.Errorf("generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(b)
	expires := time.Now().Add(r.ttl)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.cache.Put(ctx, nonceKey(nonce), []byte{1}, r.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nonce, expires, nil
}

// Consume marks nonce as used. It succeeds at most once per issued nonce.
func (r *NonceRegistry) Consume(ctx context.Context, nonce string) error {
	if nonce == "" {
		return ErrNonceNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, ok, err := r.cache.Take(ctx, nonceKey(nonce))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !ok {
		return ErrNonceNotFound
	}
	return nil
}

func nonceKey(nonce string) string { return "nonce:" + nonce }
