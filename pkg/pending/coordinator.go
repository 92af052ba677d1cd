package pending

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultLinkTTL is how long a pending link survives without being finalised.
const DefaultLinkTTL = 5 * time.Minute

var (
	// ErrLinkNotFound is returned for unknown, consumed and expired link tokens alike.
	ErrLinkNotFound = errors.New("pending link not found or expired")
	// ErrUnavailable wraps cache failures.
	ErrUnavailable = errors.New("pending link cache unavailable")
)

// Link is a verified social identity awaiting a wallet signature.
type Link struct {
	Token             string    `json:"-"`
	SocialID          int64     `json:"social_id"`
	ProofAddress      string    `json:"proof_address"`
	VerifiedAddresses []string  `json:"verified_addresses,omitempty"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Coordinator opens and consumes pending links.
type Coordinator struct {
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// CoordinatorOptions configures a Coordinator. Zero values pick defaults.
type CoordinatorOptions struct {
	TTL     time.Duration
	Timeout time.Duration
	Now     func() time.Time
}

// NewCoordinator builds a Coordinator over cache.
func NewCoordinator(cache Cache, opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{cache: cache, ttl: opts.TTL, timeout: opts.Timeout, now: opts.Now}
	if c.ttl <= 0 {
		c.ttl = DefaultLinkTTL
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Open stores a pending link for socialID. The returned link carries its opaque token and
// the expiry Consume will enforce.
func (c *Coordinator) Open(ctx context.Context, socialID int64, proofAddress string, verified ...string) (*Link, error) {
	tok, err := randomToken()
	if err != nil {
		return nil, err
	}
	link := Link{
		SocialID:          socialID,
		ProofAddress:      proofAddress,
		VerifiedAddresses: verified,
		ExpiresAt:         c.now().Add(c.ttl).UTC(),
	}
	raw, err := json.Marshal(link)
	if err != nil {
		return nil, fmt.Errorf("encode pending link: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.cache.Put(ctx, linkKey(tok), raw, c.ttl); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	link.Token = tok
	return &link, nil
}

// Consume removes and returns the link for token. Whatever the reason a link is missing,
// the error is ErrLinkNotFound; the record's own expiry is enforced even if the cache still
// holds it.
func (c *Coordinator) Consume(ctx context.Context, token string) (*Link, error) {
	if token == "" {
		return nil, ErrLinkNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, ok, err := c.cache.Take(ctx, linkKey(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !ok {
		return nil, ErrLinkNotFound
	}

	var link Link
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, ErrLinkNotFound
	}
	if !c.now().Before(link.ExpiresAt) {
		return nil, ErrLinkNotFound
	}
	link.Token = token
	return &link, nil
}

func linkKey(token string) string { return "link:" + token }

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
