package refresh

import (
	"context"
	"time"
)

// Store persists refresh-token records. Implementations must make RevokeIfActive a single
// atomic conditional update; it is the only primitive the rotation protocol relies on for
// mutual exclusion.
type Store interface {
	// Create inserts a new record for owner. An empty family starts a new lineage.
	Create(ctx context.Context, owner, family string) (*Record, error)
	// Lookup returns the record for token or ErrNotFound.
	Lookup(ctx context.Context, token string) (*Record, error)
	// RevokeFamily revokes every record of family and returns how many flipped.
	RevokeFamily(ctx context.Context, family string) (int64, error)
	// RevokeIfActive revokes token iff it is unrevoked and expires after now. It reports
	// whether this call performed the flip.
	RevokeIfActive(ctx context.Context, token string, now time.Time) (bool, error)
	// RevokeAllForOwner revokes every record belonging to owner.
	RevokeAllForOwner(ctx context.Context, owner string) (int64, error)
	// PurgeExpired deletes records that are revoked and expired before the cut-off.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// EventKind classifies a security event.
type EventKind string

const (
	EventReuseDetected  EventKind = "refresh_reuse_detected"
	EventFamilyRevoked  EventKind = "family_revoked"
	EventOwnerRevoked   EventKind = "owner_sessions_revoked"
	EventRotationFailed EventKind = "rotation_create_failed"
)

// Event is an audit record emitted by the rotator.
type Event struct {
	ID        string
	Kind      EventKind
	Address   string
	Family    string
	Detail    string
	CreatedAt time.Time
}

// EventSink receives security events. Failures are logged, never surfaced to clients.
type EventSink interface {
	RecordEvent(ctx context.Context, ev Event) error
}
