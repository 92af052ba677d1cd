package rqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DeBrosOfficial/walletauth/pkg/refresh"
)

// EventStore appends security events to the security_events table.
type EventStore struct {
	db *sql.DB
}

var _ refresh.EventSink = (*EventStore)(nil)

func NewEventStore(db *sql.DB) (*EventStore, error) {
	if db == nil {
		return nil, ErrNoDatabase
	}
	return &EventStore{db: db}, nil
}

func (s *EventStore) RecordEvent(ctx context.Context, ev refresh.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("security event without id")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO security_events(id, kind, address, family, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Kind), ev.Address, ev.Family, ev.Detail, formatTime(ev.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// ListByAddress returns the most recent events for address, newest first.
func (s *EventStore) ListByAddress(ctx context.Context, address string, limit int) ([]refresh.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, address, family, detail, created_at FROM security_events WHERE address = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		address, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select security events: %w", err)
	}
	defer rows.Close()

	var out []refresh.Event
	for rows.Next() {
		var (
			ev      refresh.Event
			kind    string
			created string
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.Address, &ev.Family, &ev.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		ev.Kind = refresh.EventKind(kind)
		if ev.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
