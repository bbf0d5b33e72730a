package statestore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shopify-support-chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttempt(state, session string, now time.Time) *domain.AuthorizationAttempt {
	return &domain.AuthorizationAttempt{
		State:      state,
		ShopDomain: "mystore.myshopify.com",
		SessionID:  session,
		CreatedAt:  now,
		ExpiresAt:  now.Add(domain.DefaultStateTTL),
	}
}

func TestMemoryStateStore_ConsumeIsSingleUse(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newAttempt("S1", "", time.Now())))

	got, err := store.Consume(ctx, "S1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mystore.myshopify.com", got.ShopDomain)

	again, err := store.Consume(ctx, "S1")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestMemoryStateStore_UnknownState(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)

	got, err := store.Consume(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Consume(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStateStore_Expired(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	ctx := context.Background()
	start := time.Now()

	require.NoError(t, store.Save(ctx, newAttempt("S1", "", start)))

	store.now = func() time.Time { return start.Add(domain.DefaultStateTTL + time.Second) }
	got, err := store.Consume(ctx, "S1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStateStore_AlreadyExpiredIsNotSaved(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	a := newAttempt("S1", "", time.Now().Add(-time.Hour))

	require.NoError(t, store.Save(context.Background(), a))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStateStore_NewAttemptInvalidatesSessionPredecessor(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newAttempt("first", "browser-1", time.Now())))
	require.NoError(t, store.Save(ctx, newAttempt("other", "browser-2", time.Now())))
	require.NoError(t, store.Save(ctx, newAttempt("second", "browser-1", time.Now())))

	got, err := store.Consume(ctx, "first")
	require.NoError(t, err)
	assert.Nil(t, got, "earlier attempt of the same session must be invalidated")

	got, err = store.Consume(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, got, "other sessions are untouched")

	got, err = store.Consume(ctx, "second")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMemoryStateStore_ConcurrentConsumeWinsOnce(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newAttempt("S1", "", time.Now())))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Consume(ctx, "S1")
			assert.NoError(t, err)
			if got != nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}
