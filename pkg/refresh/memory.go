package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for tests and single-instance development runs.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	records  map[string]*Record
	families map[string][]string
}

// NewMemoryStore creates an empty store issuing records that live for ttl. A nil now uses
// time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      now,
		records:  make(map[string]*Record),
		families: make(map[string][]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, owner, family string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := NewRecord(owner, family, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Token] = rec
	s.families[rec.Family] = append(s.families[rec.Family], rec.Token)
	out := *rec
	return &out, nil
}

func (s *MemoryStore) Lookup(ctx context.Context, token string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) RevokeFamily(ctx context.Context, family string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, tok := range s.families[family] {
		if rec, ok := s.records[tok]; ok && !rec.Revoked {
			rec.Revoked = true
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) RevokeIfActive(ctx context.Context, token string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok || !rec.Active(now) {
		return false, nil
	}
	rec.Revoked = true
	return true, nil
}

func (s *MemoryStore) RevokeAllForOwner(ctx context.Context, owner string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, rec := range s.records {
		if rec.OwnerAddress == owner && !rec.Revoked {
			rec.Revoked = true
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for tok, rec := range s.records {
		if rec.Revoked && rec.ExpiresAt.Before(before) {
			delete(s.records, tok)
			n++
		}
	}
	for fam, toks := range s.families {
		kept := toks[:0]
		for _, tok := range toks {
			if _, ok := s.records[tok]; ok {
				kept = append(kept, tok)
			}
		}
		if len(kept) == 0 {
			delete(s.families, fam)
		} else {
			s.families[fam] = kept
		}
	}
	return n, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
