package rqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DeBrosOfficial/walletauth/pkg/users"
)

// UserStore keeps wallet accounts in the accounts table.
type UserStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ users.Store = (*UserStore)(nil)

// NewUserStore wraps db. A nil now uses time.Now.
func NewUserStore(db *sql.DB, now func() time.Time) (*UserStore, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	if now == nil {
		now = time.Now
	}
	return &UserStore{db: db, now: now}, nil
}

const selectAccount = `SELECT address, role, linked_social_id, created_at, updated_at FROM accounts`

func (s *UserStore) GetByAddress(ctx context.Context, address string) (*users.Account, error) {
	return s.one(ctx, selectAccount+` WHERE address = ? LIMIT 1`, address)
}

func (s *UserStore) GetBySocialID(ctx context.Context, socialID int64) (*users.Account, error) {
	return s.one(ctx, selectAccount+` WHERE linked_social_id = ? LIMIT 1`, socialID)
}

func (s *UserStore) CreateOrUpdate(ctx context.Context, acct users.Account) (*users.Account, error) {
	if acct.Role == "" {
		acct.Role = users.RoleUser
	}
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO accounts(address, role, linked_social_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(address) DO UPDATE SET
	role = excluded.role,
	linked_social_id = COALESCE(excluded.linked_social_id, accounts.linked_social_id),
	updated_at = excluded.updated_at`,
		acct.Address, acct.Role, nullableInt(acct.LinkedSocialID), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, users.ErrSocialIDTaken
		}
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	return s.GetByAddress(ctx, acct.Address)
}

// LinkSocialID only writes when the account is unlinked or already holds socialID, so two
// racing links cannot overwrite each other.
func (s *UserStore) LinkSocialID(ctx context.Context, address string, socialID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET linked_social_id = ?, updated_at = ?
	WHERE address = ? AND (linked_social_id IS NULL OR linked_social_id = ?)`,
		socialID, formatTime(s.now()), address, socialID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return users.ErrSocialIDTaken
		}
		return fmt.Errorf("link social id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link social id: rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetByAddress(ctx, address); err != nil {
			return err
		}
		return users.ErrAlreadyLinked
	}
	return nil
}

func (s *UserStore) one(ctx context.Context, query string, args ...any) (*users.Account, error) {
	var (
		acct             users.Account
		social           intColumn
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&acct.Address, &acct.Role, &social, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	acct.LinkedSocialID = social.ptr()
	if acct.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if acct.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &acct, nil
}
