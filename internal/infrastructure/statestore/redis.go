package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"

	"github.com/redis/go-redis/v9"
)

// RedisStateStore shares pending attempts between instances.
type RedisStateStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ ports.StateStore = (*RedisStateStore)(nil)

// NewRedisStateStore creates a store; prefix namespaces the keys (may be empty).
func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStateStore) stateKey(state string) string {
	return s.prefix + stateKeyPrefix + state
}

func (s *RedisStateStore) sessionKey(id string) string {
	return s.prefix + sessionKeyPrefix + id
}

func (s *RedisStateStore) Save(ctx context.Context, attempt *domain.AuthorizationAttempt) error {
	ttl := attempt.TTL(s.now())
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode oauth state: %w", err)
	}

	if err := s.client.Set(ctx, s.stateKey(attempt.State), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}

	if attempt.SessionID == "" {
		return nil
	}

	prev, err := s.client.SetArgs(ctx, s.sessionKey(attempt.SessionID), attempt.State, redis.SetArgs{TTL: ttl, Get: true}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to index oauth session: %w", err)
	}
	if prev != "" && prev != attempt.State {
		if err := s.client.Del(ctx, s.stateKey(prev)).Err(); err != nil {
			return fmt.Errorf("failed to invalidate previous oauth state: %w", err)
		}
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (*domain.AuthorizationAttempt, error) {
	if state == "" {
		return nil, nil
	}

	payload, err := s.client.GetDel(ctx, s.stateKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	var attempt domain.AuthorizationAttempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return nil, fmt.Errorf("failed to decode oauth state: %w", err)
	}
	if attempt.Expired(s.now()) {
		return nil, nil
	}
	return &attempt, nil
}
