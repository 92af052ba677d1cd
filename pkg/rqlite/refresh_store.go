package rqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DeBrosOfficial/walletauth/pkg/refresh"
)

// RefreshStore persists refresh-token families in the refresh_tokens table.
type RefreshStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var _ refresh.Store = (*RefreshStore)(nil)

// NewRefreshStore returns a store issuing records that live for ttl. A nil now uses time.Now.
func NewRefreshStore(db *sql.DB, ttl time.Duration, now func() time.Time) (*RefreshStore, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &RefreshStore{db: db, ttl: ttl, now: now}, nil
}

func (s *RefreshStore) Create(ctx context.Context, owner, family string) (*refresh.Record, error) {
	rec, err := refresh.NewRecord(owner, family, s.now().UTC(), s.ttl)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens(token, owner_address, family, expires_at, revoked, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		rec.Token, rec.OwnerAddress, rec.Family, formatTime(rec.ExpiresAt), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}
	return rec, nil
}

func (s *RefreshStore) Lookup(ctx context.Context, token string) (*refresh.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT token, owner_address, family, expires_at, revoked, created_at FROM refresh_tokens WHERE token = ? LIMIT 1`,
		token,
	)

	var (
		rec              refresh.Record
		expires, created string
		revoked          intColumn
	)
	if err := row.Scan(&rec.Token, &rec.OwnerAddress, &rec.Family, &expires, &revoked, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, refresh.ErrNotFound
		}
		return nil, fmt.Errorf("select refresh token: %w", err)
	}

	var err error
	if rec.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	rec.Revoked = revoked.Int64 != 0
	return &rec, nil
}

func (s *RefreshStore) RevokeFamily(ctx context.Context, family string) (int64, error) {
	return s.update(ctx, "revoke family",
		`UPDATE refresh_tokens SET revoked = 1 WHERE family = ? AND revoked = 0`, family)
}

// RevokeIfActive is the conditional update rotation depends on. The WHERE clause makes the
// check and the flip one statement, so concurrent callers cannot both see a row affected.
func (s *RefreshStore) RevokeIfActive(ctx context.Context, token string, now time.Time) (bool, error) {
	n, err := s.update(ctx, "revoke token",
		`UPDATE refresh_tokens SET revoked = 1 WHERE token = ? AND revoked = 0 AND expires_at > ?`,
		token, formatTime(now))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RefreshStore) RevokeAllForOwner(ctx context.Context, owner string) (int64, error) {
	return s.update(ctx, "revoke owner",
		`UPDATE refresh_tokens SET revoked = 1 WHERE owner_address = ? AND revoked = 0`, owner)
}

func (s *RefreshStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.update(ctx, "purge",
		`DELETE FROM refresh_tokens WHERE revoked = 1 AND expires_at < ?`, formatTime(before))
}

func (s *RefreshStore) update(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}
