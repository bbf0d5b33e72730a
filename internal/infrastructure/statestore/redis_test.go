package statestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only when REDIS_TEST_ADDR points at a disposable server.
func TestRedisStateStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisStateStore(client, "test:"+uuid.NewString()+":")

	require.NoError(t, store.Save(ctx, newAttempt("first", "browser-1", time.Now())))
	require.NoError(t, store.Save(ctx, newAttempt("second", "browser-1", time.Now())))

	got, err := store.Consume(ctx, "first")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Consume(ctx, "second")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mystore.myshopify.com", got.ShopDomain)

	got, err = store.Consume(ctx, "second")
	require.NoError(t, err)
	assert.Nil(t, got)
}
