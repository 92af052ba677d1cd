package users

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	social   map[int64]string
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		social:   make(map[int64]string),
		now:      time.Now,
	}
}

func clone(a *Account) *Account {
	out := *a
	if a.LinkedSocialID != nil {
		id := *a.LinkedSocialID
		out.LinkedSocialID = &id
	}
	return &out
}

func (s *MemoryStore) GetByAddress(ctx context.Context, address string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[address]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (s *MemoryStore) GetBySocialID(ctx context.Context, socialID int64) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.social[socialID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.accounts[addr]), nil
}

func (s *MemoryStore) CreateOrUpdate(ctx context.Context, acct Account) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if existing, ok := s.accounts[acct.Address]; ok {
		acct.CreatedAt = existing.CreatedAt
		if acct.LinkedSocialID == nil {
			acct.LinkedSocialID = existing.LinkedSocialID
		}
	} else {
		acct.CreatedAt = now
	}
	if acct.LinkedSocialID != nil {
		if owner, taken := s.social[*acct.LinkedSocialID]; taken && owner != acct.Address {
			return nil, ErrSocialIDTaken
		}
		if existing, ok := s.accounts[acct.Address]; ok && existing.LinkedSocialID != nil && *existing.LinkedSocialID != *acct.LinkedSocialID {
			delete(s.social, *existing.LinkedSocialID)
		}
		s.social[*acct.LinkedSocialID] = acct.Address
	}
	acct.UpdatedAt = now
	s.accounts[acct.Address] = clone(&acct)
	return clone(&acct), nil
}

func (s *MemoryStore) LinkSocialID(ctx context.Context, address string, socialID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[address]
	if !ok {
		return ErrNotFound
	}
	if a.LinkedSocialID != nil && *a.LinkedSocialID != socialID {
		return ErrAlreadyLinked
	}
	if owner, taken := s.social[socialID]; taken && owner != address {
		return ErrSocialIDTaken
	}
	id := socialID
	a.LinkedSocialID = &id
	a.UpdatedAt = s.now().UTC()
	s.social[socialID] = address
	return nil
}
