package rqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/walletauth/pkg/refresh"
	"github.com/DeBrosOfficial/walletauth/pkg/users"
)

const owner = "0x00000000000000000000000000000000000000ab"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db, nil))
	return db
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		driver  string
		source  string
		wantErr bool
	}{
		{dsn: "http://localhost:5001", driver: driverRQLite, source: "http://localhost:5001"},
		{dsn: "https://user:pw@db.example.com:4001?level=strong", driver: driverRQLite, source: "https://user:pw@db.example.com:4001?level=strong"},
		{dsn: "sqlite:///var/lib/walletauth.db", driver: driverSQLite, source: "/var/lib/walletauth.db"},
		{dsn: "sqlite://:memory:", driver: driverSQLite, source: ":memory:"},
		{dsn: "", wantErr: true},
		{dsn: "sqlite://", wantErr: true},
		{dsn: "postgres://localhost/db", wantErr: true},
		{dsn: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			driver, source, err := parseDSN(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, nil))

	var n intColumn
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, int64(2), n.Int64)
}

func TestSplitSQLStatements(t *testing.T) {
	script := `
-- leading comment
CREATE TABLE a (x TEXT DEFAULT 'semi;colon');
/* block; comment */
BEGIN;
INSERT INTO a(x) VALUES ('it''s');
COMMIT;
`
	stmts := splitSQLStatements(script)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], "'semi;colon'")
	assert.True(t, isTxnControl(stmts[1]))
	assert.Contains(t, stmts[2], "'it''s'")
	assert.True(t, isTxnControl(stmts[3]))
}

func TestRefreshStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store, err := NewRefreshStore(newTestDB(t), time.Hour, clk.Now)
	require.NoError(t, err)

	first, err := store.Create(ctx, owner, "")
	require.NoError(t, err)
	assert.Equal(t, first.Token, first.Family)

	got, err := store.Lookup(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, owner, got.OwnerAddress)
	assert.False(t, got.Revoked)
	assert.True(t, got.ExpiresAt.Equal(clk.Now().Add(time.Hour)))

	_, err = store.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, refresh.ErrNotFound)

	ok, err := store.RevokeIfActive(ctx, first.Token, clk.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.RevokeIfActive(ctx, first.Token, clk.Now())
	require.NoError(t, err)
	assert.False(t, ok, "second conditional revoke must lose")

	second, err := store.Create(ctx, owner, first.Family)
	require.NoError(t, err)
	assert.Equal(t, first.Family, second.Family)

	n, err := store.RevokeFamily(ctx, first.Family)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = store.Lookup(ctx, second.Token)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func TestRefreshStoreRevokeIfActiveRespectsExpiry(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store, err := NewRefreshStore(newTestDB(t), time.Minute, clk.Now)
	require.NoError(t, err)

	rec, err := store.Create(ctx, owner, "")
	require.NoError(t, err)

	ok, err := store.RevokeIfActive(ctx, rec.Token, rec.ExpiresAt)
	require.NoError(t, err)
	assert.False(t, ok, "a token is expired at exactly expiresAt")

	got, err := store.Lookup(ctx, rec.Token)
	require.NoError(t, err)
	assert.False(t, got.Revoked)
}

func TestRefreshStoreOwnerRevokeAndPurge(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store, err := NewRefreshStore(newTestDB(t), time.Hour, clk.Now)
	require.NoError(t, err)

	a, err := store.Create(ctx, owner, "")
	require.NoError(t, err)
	_, err = store.Create(ctx, owner, "")
	require.NoError(t, err)
	other, err := store.Create(ctx, "0x00000000000000000000000000000000000000cd", "")
	require.NoError(t, err)

	n, err := store.RevokeAllForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.PurgeExpired(ctx, clk.Now())
	require.NoError(t, err)
	assert.Zero(t, n, "revoked but unexpired rows stay")

	n, err = store.PurgeExpired(ctx, clk.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = store.Lookup(ctx, a.Token)
	assert.ErrorIs(t, err, refresh.ErrNotFound)
	_, err = store.Lookup(ctx, other.Token)
	assert.NoError(t, err, "active rows are never purged")
}

func TestRotatorOverSQLite(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	db := newTestDB(t)
	store, err := NewRefreshStore(db, 30*24*time.Hour, clk.Now)
	require.NoError(t, err)
	events, err := NewEventStore(db)
	require.NoError(t, err)
	rot := refresh.NewRotator(store, refresh.Options{Now: clk.Now, Events: events})

	r0, err := rot.Issue(ctx, owner)
	require.NoError(t, err)
	r1, err := rot.Rotate(ctx, r0.Token)
	require.NoError(t, err)
	r2, err := rot.Rotate(ctx, r1.Token)
	require.NoError(t, err)

	_, err = rot.Rotate(ctx, r0.Token)
	require.ErrorIs(t, err, refresh.ErrReuseDetected)

	got, err := store.Lookup(ctx, r2.Token)
	require.NoError(t, err)
	assert.True(t, got.Revoked, "reuse revokes the newest member of the family")

	evs, err := events.ListByAddress(ctx, owner, 10)
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, refresh.EventReuseDetected, evs[0].Kind)
	assert.Equal(t, r0.Family, evs[0].Family)
}

func TestRotatorExpiredDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store, err := NewRefreshStore(newTestDB(t), time.Hour, clk.Now)
	require.NoError(t, err)
	rot := refresh.NewRotator(store, refresh.Options{Now: clk.Now})

	rec, err := rot.Issue(ctx, owner)
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)

	_, err = rot.Rotate(ctx, rec.Token)
	require.ErrorIs(t, err, refresh.ErrExpired)

	got, err := store.Lookup(ctx, rec.Token)
	require.NoError(t, err)
	assert.False(t, got.Revoked)
}

func TestRotatorConcurrentRotationOverSQLite(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store, err := NewRefreshStore(newTestDB(t), time.Hour, clk.Now)
	require.NoError(t, err)
	rot := refresh.NewRotator(store, refresh.Options{Now: clk.Now})

	rec, err := rot.Issue(ctx, owner)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		success atomic.Int32
		reuse   atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rot.Rotate(ctx, rec.Token)
			switch {
			case err == nil:
				success.Add(1)
			case errors.Is(err, refresh.ErrReuseDetected):
				reuse.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), success.Load())
	assert.Equal(t, int32(15), reuse.Load())
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store, err := NewUserStore(newTestDB(t), clk.Now)
	require.NoError(t, err)

	_, err = store.GetByAddress(ctx, owner)
	assert.ErrorIs(t, err, users.ErrNotFound)

	acct, err := users.Ensure(ctx, store, owner, "")
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, acct.Role)
	assert.Nil(t, acct.LinkedSocialID)
	created := acct.CreatedAt

	clk.Advance(time.Minute)
	require.NoError(t, store.LinkSocialID(ctx, owner, 4_200_001))
	require.NoError(t, store.LinkSocialID(ctx, owner, 4_200_001), "relinking the same pair is a no-op")

	bySocial, err := store.GetBySocialID(ctx, 4_200_001)
	require.NoError(t, err)
	assert.Equal(t, owner, bySocial.Address)
	require.NotNil(t, bySocial.LinkedSocialID)
	assert.Equal(t, int64(4_200_001), *bySocial.LinkedSocialID)

	other := "0x00000000000000000000000000000000000000cd"
	_, err = users.Ensure(ctx, store, other, users.RoleAdmin)
	require.NoError(t, err)
	assert.ErrorIs(t, store.LinkSocialID(ctx, other, 4_200_001), users.ErrSocialIDTaken)

	id := int64(4_200_001)
	_, err = store.CreateOrUpdate(ctx, users.Account{Address: other, Role: users.RoleAdmin, LinkedSocialID: &id})
	assert.ErrorIs(t, err, users.ErrSocialIDTaken)

	updated, err := store.CreateOrUpdate(ctx, users.Account{Address: owner, Role: users.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, updated.Role)
	assert.True(t, updated.CreatedAt.Equal(created), "upsert keeps createdAt")
	require.NotNil(t, updated.LinkedSocialID, "upsert without a social id keeps the link")

	assert.ErrorIs(t, store.LinkSocialID(ctx, "0x00000000000000000000000000000000000000ef", 7), users.ErrNotFound)

	// The guard lives in the UPDATE itself: a linked account keeps its id.
	assert.ErrorIs(t, store.LinkSocialID(ctx, owner, 4_200_002), users.ErrAlreadyLinked)
	kept, err := store.GetByAddress(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, kept.LinkedSocialID)
	assert.Equal(t, int64(4_200_001), *kept.LinkedSocialID)
}

func TestEventStoreOrdering(t *testing.T) {
	ctx := context.Background()
	events, err := NewEventStore(newTestDB(t))
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, kind := range []refresh.EventKind{refresh.EventFamilyRevoked, refresh.EventReuseDetected} {
		require.NoError(t, events.RecordEvent(ctx, refresh.Event{
			ID:        ulid.Make().String(),
			Kind:      kind,
			Address:   owner,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	assert.Error(t, events.RecordEvent(ctx, refresh.Event{Kind: refresh.EventFamilyRevoked}))

	evs, err := events.ListByAddress(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, refresh.EventReuseDetected, evs[0].Kind)
	assert.True(t, evs[0].CreatedAt.Equal(base.Add(time.Second)))
}

func TestRefreshStoreDriverFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewRefreshStore(db, time.Hour, nil)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked = 1 WHERE token").
		WithArgs("tok", sqlmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))
	_, err = store.RevokeIfActive(ctx, "tok", time.Now())
	assert.ErrorContains(t, err, "connection refused")

	mock.ExpectExec("UPDATE refresh_tokens SET revoked = 1 WHERE token").
		WithArgs("tok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err := store.RevokeIfActive(ctx, "tok", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery("SELECT token, owner_address").
		WithArgs("tok").
		WillReturnError(errors.New("leader not found"))
	_, err = store.Lookup(ctx, "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, refresh.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotatorMapsDriverFailureToUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewRefreshStore(db, time.Hour, nil)
	require.NoError(t, err)
	rot := refresh.NewRotator(store, refresh.Options{Timeout: time.Second})

	mock.ExpectQuery("SELECT token, owner_address").
		WillReturnError(errors.New("rqlite: 503 service unavailable"))

	_, err = rot.Rotate(context.Background(), "tok")
	require.ErrorIs(t, err, refresh.ErrUnavailable)
	assert.NotErrorIs(t, err, refresh.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIntColumnScan(t *testing.T) {
	var c intColumn
	require.NoError(t, c.Scan(float64(1_234_567)))
	assert.Equal(t, int64(1_234_567), c.Int64)
	require.NoError(t, c.Scan([]byte("42")))
	assert.Equal(t, int64(42), c.Int64)
	require.NoError(t, c.Scan(nil))
	assert.False(t, c.Valid)
	assert.Nil(t, c.ptr())
	assert.Error(t, c.Scan(1.5))
}
