package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DeBrosOfficial/walletauth/pkg/logging"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every individual store call made by the Rotator.
const DefaultTimeout = 5 * time.Second

// Options configures a Rotator. Zero values pick defaults.
type Options struct {
	Timeout time.Duration
	Now     func() time.Time
	Events  EventSink
	Logger  *logging.ColoredLogger
}

// Rotator runs the rotation protocol on top of a Store.
type Rotator struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	events  EventSink
	logger  *logging.ColoredLogger
}

// NewRotator wraps store.
func NewRotator(store Store, opts Options) *Rotator {
	r := &Rotator{
		store:   store,
		timeout: opts.Timeout,
		now:     opts.Now,
		events:  opts.Events,
		logger:  opts.Logger,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	return r
}

// Issue starts a new family for owner (a fresh login).
func (r *Rotator) Issue(ctx context.Context, owner string) (*Record, error) {
	var rec *Record
	err := r.call(ctx, "create", func(ctx context.Context) (err error) {
		rec, err = r.store.Create(ctx, owner, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Rotate exchanges presented for a successor in the same family.
//
// Unknown tokens return ErrNotFound. Expired tokens return ErrExpired without touching the
// store. A revoked token, or losing the conditional revoke to a concurrent caller, is reuse:
// the whole family is revoked and ErrReuseDetected returned. Store failures return
// ErrUnavailable.
func (r *Rotator) Rotate(ctx context.Context, presented string) (*Record, error) {
	if presented == "" {
		return nil, ErrNotFound
	}

	var rec *Record
	err := r.call(ctx, "lookup", func(ctx context.Context) (err error) {
		rec, err = r.store.Lookup(ctx, presented)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := r.now()
	if rec.Expired(now) {
		return nil, ErrExpired
	}
	if rec.Revoked {
		return nil, r.punish(ctx, rec, "revoked token presented")
	}

	var won bool
	err = r.call(ctx, "revoke", func(ctx context.Context) (err error) {
		won, err = r.store.RevokeIfActive(ctx, rec.Token, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, r.punish(ctx, rec, "lost concurrent rotation")
	}

	var next *Record
	err = r.call(ctx, "create", func(ctx context.Context) (err error) {
		next, err = r.store.Create(ctx, rec.OwnerAddress, rec.Family)
		return err
	})
	if err != nil {
		// The presented token is spent and no successor exists; the owner must log in again.
		r.logger.ComponentError(logging.ComponentAuth, "Refresh rotation left family without active token",
			zap.String("address", rec.OwnerAddress),
			zap.Error(err))
		r.emit(ctx, Event{Kind: EventRotationFailed, Address: rec.OwnerAddress, Family: rec.Family, Detail: err.Error()})
		return nil, err
	}
	return next, nil
}

// Revoke invalidates the family of token (logout). Unknown tokens return ErrNotFound.
func (r *Rotator) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotFound
	}
	var rec *Record
	err := r.call(ctx, "lookup", func(ctx context.Context) (err error) {
		rec, err = r.store.Lookup(ctx, token)
		return err
	})
	if err != nil {
		return err
	}
	var n int64
	err = r.call(ctx, "revoke_family", func(ctx context.Context) (err error) {
		n, err = r.store.RevokeFamily(ctx, rec.Family)
		return err
	})
	if err != nil {
		return err
	}
	if n > 0 {
		r.emit(ctx, Event{Kind: EventFamilyRevoked, Address: rec.OwnerAddress, Family: rec.Family, Detail: "logout"})
	}
	return nil
}

// RevokeAll invalidates every family of owner and returns the number of tokens revoked.
func (r *Rotator) RevokeAll(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := r.call(ctx, "revoke_owner", func(ctx context.Context) (err error) {
		n, err = r.store.RevokeAllForOwner(ctx, owner)
		return err
	})
	if err != nil {
		return 0, err
	}
	r.emit(ctx, Event{Kind: EventOwnerRevoked, Address: owner, Detail: fmt.Sprintf("%d tokens revoked", n)})
	return n, nil
}

// Purge archives records that were revoked and expired before the cut-off.
func (r *Rotator) Purge(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.call(ctx, "purge", func(ctx context.Context) (err error) {
		n, err = r.store.PurgeExpired(ctx, before)
		return err
	})
	return n, err
}

func (r *Rotator) punish(ctx context.Context, rec *Record, reason string) error {
	r.logger.ComponentWarn(logging.ComponentAuth, "Refresh token reuse detected; revoking family",
		zap.String("address", rec.OwnerAddress),
		zap.String("reason", reason))

	var n int64
	err := r.call(ctx, "revoke_family", func(ctx context.Context) (err error) {
		n, err = r.store.RevokeFamily(ctx, rec.Family)
		return err
	})
	r.emit(ctx, Event{
		Kind:    EventReuseDetected,
		Address: rec.OwnerAddress,
		Family:  rec.Family,
		Detail:  fmt.Sprintf("%s; %d tokens revoked", reason, n),
	})
	if err != nil {
		// Reuse was still detected, but the family may be partly live. Surface the outage
		// so the client retries and the revoke is attempted again.
		return err
	}
	return ErrReuseDetected
}

func (r *Rotator) emit(ctx context.Context, ev Event) {
	if r.events == nil {
		return
	}
	ev.ID = ulid.Make().String()
	ev.CreatedAt = r.now().UTC()
	err := r.call(ctx, "record_event", func(ctx context.Context) error {
		return r.events.RecordEvent(ctx, ev)
	})
	if err != nil {
		r.logger.ComponentError(logging.ComponentAuth, "Failed to record security event",
			zap.String("kind", string(ev.Kind)),
			zap.Error(err))
	}
}

// call runs fn under the per-operation timeout and maps every failure other than
// ErrNotFound to ErrUnavailable.
func (r *Rotator) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := fn(opCtx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrUnavailable):
		return err
	default:
		r.logger.ComponentError(logging.ComponentStore, "Refresh store call failed",
			zap.String("op", op),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
}
