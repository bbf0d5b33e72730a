// Package statestore keeps pending OAuth attempts keyed by their state value.
package statestore

import (
	"context"
	"strings"
	"sync"
	"time"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"

	gocache "github.com/patrickmn/go-cache"
)

const (
	stateKeyPrefix   = "oauth:state:"
	sessionKeyPrefix = "oauth:session:"
)

// MemoryStateStore is a single-process StateStore backed by go-cache.
type MemoryStateStore struct {
	mu  sync.Mutex
	c   *gocache.Cache
	now func() time.Time
}

var _ ports.StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore creates an in-memory store that sweeps expired attempts every cleanupInterval.
func NewMemoryStateStore(cleanupInterval time.Duration) *MemoryStateStore {
	return &MemoryStateStore{
		c:   gocache.New(domain.DefaultStateTTL, cleanupInterval),
		now: time.Now,
	}
}

func (s *MemoryStateStore) Save(ctx context.Context, attempt *domain.AuthorizationAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ttl := attempt.TTL(s.now())
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if attempt.SessionID != "" {
		sessionKey := sessionKeyPrefix + attempt.SessionID
		if prev, ok := s.c.Get(sessionKey); ok {
			s.c.Delete(stateKeyPrefix + prev.(string))
		}
		s.c.Set(sessionKey, attempt.State, ttl)
	}

	stored := *attempt
	s.c.Set(stateKeyPrefix+attempt.State, &stored, ttl)
	return nil
}

func (s *MemoryStateStore) Consume(ctx context.Context, state string) (*domain.AuthorizationAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if state == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKeyPrefix + state
	v, ok := s.c.Get(key)
	if !ok {
		return nil, nil
	}
	s.c.Delete(key)

	attempt := v.(*domain.AuthorizationAttempt)
	if attempt.SessionID != "" {
		sessionKey := sessionKeyPrefix + attempt.SessionID
		if cur, ok := s.c.Get(sessionKey); ok && cur.(string) == state {
			s.c.Delete(sessionKey)
		}
	}
	if attempt.Expired(s.now()) {
		return nil, nil
	}
	return attempt, nil
}

// Len reports how many unexpired attempts are pending.
func (s *MemoryStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.c.Items() {
		if strings.HasPrefix(k, stateKeyPrefix) {
			n++
		}
	}
	return n
}
