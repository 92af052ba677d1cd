// Package users holds the account record the auth gateway reads and writes: one row per
// wallet, with a role and an optional linked Farcaster id.
package users

import (
	"context"
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrNotFound = errors.New("account not found")
	// ErrSocialIDTaken is returned when a social id is already linked to another wallet.
	ErrSocialIDTaken = errors.New("social id already linked to another account")
	// ErrAlreadyLinked is returned when the account is already bound to a different social id.
	ErrAlreadyLinked = errors.New("account already linked to another social id")
)

// Account is a wallet-keyed user. Address is always lowercase.
type Account struct {
	Address        string    `json:"address"`
	Role           string    `json:"role"`
	LinkedSocialID *int64    `json:"linkedSocialId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store is the account persistence contract.
type Store interface {
	GetByAddress(ctx context.Context, address string) (*Account, error)
	GetBySocialID(ctx context.Context, socialID int64) (*Account, error)
	// CreateOrUpdate upserts by address. CreatedAt of an existing row is preserved.
	CreateOrUpdate(ctx context.Context, acct Account) (*Account, error)
	// LinkSocialID binds socialID to address. Linking the same pair again is a no-op;
	// linking an id owned by another address returns ErrSocialIDTaken, and an account
	// already bound to a different id returns ErrAlreadyLinked. The check and the write
	// are one atomic step.
	LinkSocialID(ctx context.Context, address string, socialID int64) error
}

// Ensure returns the account for address, creating it with role if absent.
func Ensure(ctx context.Context, s Store, address, role string) (*Account, error) {
	acct, err := s.GetByAddress(ctx, address)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if role == "" {
		role = RoleUser
	}
	return s.CreateOrUpdate(ctx, Account{Address: address, Role: role})
}

// FindForSocial matches a verified social identity to an existing account: first by
// linked id, then by each candidate address in order. It returns ErrNotFound if nothing
// matches.
func FindForSocial(ctx context.Context, s Store, socialID int64, candidates ...string) (*Account, error) {
	acct, err := s.GetBySocialID(ctx, socialID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	for _, addr := range candidates {
		if addr == "" {
			continue
		}
		acct, err := s.GetByAddress(ctx, addr)
		if err == nil {
			return acct, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}
