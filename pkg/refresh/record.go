// Package refresh implements refresh-token families: issuance, single-use rotation and
// reuse detection with family-wide revocation.
package refresh

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// TokenBytes is the entropy of a refresh token before encoding.
const TokenBytes = 32

var (
	ErrNotFound      = errors.New("refresh token not found")
	ErrExpired       = errors.New("refresh token expired")
	ErrReuseDetected = errors.New("refresh token reuse detected")
	// ErrUnavailable wraps store failures and deadlines. It is retryable and never an
	// authentication outcome.
	ErrUnavailable = errors.New("refresh token store unavailable")
)

// Record is one refresh token. Revoked only ever flips false to true.
type Record struct {
	Token        string
	OwnerAddress string
	Family       string
	ExpiresAt    time.Time
	Revoked      bool
	CreatedAt    time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Active reports whether the record can still be rotated at now.
func (r *Record) Active(now time.Time) bool {
	return !r.Revoked && !r.Expired(now)
}

// NewToken returns a fresh base64url token with TokenBytes of entropy.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewRecord builds an unrevoked record for owner. An empty family starts a new lineage
// whose id is the token itself.
func NewRecord(owner, family string, now time.Time, ttl time.Duration) (*Record, error) {
	tok, err := NewToken()
	if err != nil {
		return nil, err
	}
	if family == "" {
		family = tok
	}
	return &Record{
		Token:        tok,
		OwnerAddress: owner,
		Family:       family,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}, nil
}
