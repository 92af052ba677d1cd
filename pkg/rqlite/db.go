// Package rqlite holds the durable stores of the gateway: refresh-token families, wallet
// accounts and the security-event log, on rqlite or a local SQLite file.
package rqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"       // sqlite:// DSNs
	_ "github.com/rqlite/gorqlite/stdlib" // http(s):// DSNs
)

const (
	driverRQLite = "rqlite"
	driverSQLite = "sqlite3"
)

// Open returns a pooled *sql.DB for dsn. http:// and https:// DSNs go through the rqlite
// driver; sqlite://<path> opens a local SQLite file (or sqlite://:memory:) with the same
// dialect for single-node runs and tests.
func Open(dsn string) (*sql.DB, error) {
	driver, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if driver == driverSQLite {
		// A single connection keeps :memory: databases shared and serialises writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Second)
	db.SetConnMaxIdleTime(10 * time.Second)
	return db, nil
}

func parseDSN(dsn string) (driver, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", "", fmt.Errorf("empty database dsn")
	}
	if rest, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		if rest == "" {
			return "", "", fmt.Errorf("sqlite dsn needs a path")
		}
		return driverSQLite, rest, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", fmt.Errorf("invalid database dsn: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return "", "", fmt.Errorf("rqlite dsn %q has no host", dsn)
		}
		return driverRQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported database dsn scheme %q", u.Scheme)
	}
}

// Ping runs a trivial query; the rqlite driver does not implement driver.Pinger.
func Ping(ctx context.Context, db *sql.DB) error {
	var one intColumn
	if err := db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}
