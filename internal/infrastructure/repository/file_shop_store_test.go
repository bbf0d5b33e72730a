package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shopify-support-chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileShopStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "shops")
	store, err := NewFileShopStore(dir)
	require.NoError(t, err)
	return store, dir
}

func assertRecordEqual(t *testing.T, want, got *domain.ShopRecord) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ShopDomain, got.ShopDomain)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.Scope, got.Scope)
	assert.True(t, want.ConnectedAt.Equal(got.ConnectedAt), "connectedAt: want %s got %s", want.ConnectedAt, got.ConnectedAt)
}

func TestFileShopStore_PutGetRoundTrip(t *testing.T) {
	store, dir := newTestFileStore(t)
	ctx := context.Background()

	rec := &domain.ShopRecord{
		ShopDomain:  "mystore.myshopify.com",
		AccessToken: "shpat_1",
		Scope:       "read_orders",
		ConnectedAt: time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC),
	}
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "mystore.myshopify.com")
	require.NoError(t, err)
	assertRecordEqual(t, rec, got)

	info, err := os.Stat(filepath.Join(dir, "mystore.myshopify.com.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileShopStore_GetMissing(t *testing.T) {
	store, _ := newTestFileStore(t)

	got, err := store.Get(context.Background(), "absent.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Get(context.Background(), "../../etc/passwd")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileShopStore_OverwriteKeepsOnlyLatest(t *testing.T) {
	store, dir := newTestFileStore(t)
	ctx := context.Background()

	first := &domain.ShopRecord{ShopDomain: "mystore.myshopify.com", AccessToken: "old-token-with-a-much-longer-value", Scope: "read_orders,read_products", ConnectedAt: time.Now().UTC()}
	second := &domain.ShopRecord{ShopDomain: "mystore.myshopify.com", AccessToken: "new", Scope: "read_orders", ConnectedAt: time.Now().UTC().Add(time.Minute)}

	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, "mystore.myshopify.com")
	require.NoError(t, err)
	assertRecordEqual(t, second, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileShopStore_RejectsInvalidRecords(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	err := store.Put(ctx, &domain.ShopRecord{ShopDomain: "mystore.myshopify.com"})
	assert.ErrorIs(t, err, domain.ErrEmptyAccessToken)

	err = store.Put(ctx, &domain.ShopRecord{ShopDomain: "../escape", AccessToken: "t"})
	assert.ErrorIs(t, err, domain.ErrInvalidShopDomain)

	assert.Error(t, store.Put(ctx, nil))
}

func TestFileShopStore_ListSorted(t *testing.T) {
	store, dir := newTestFileStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Put(ctx, &domain.ShopRecord{ShopDomain: name + ".myshopify.com", AccessToken: "t-" + name}))
	}
	// Leftover temp files and foreign files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0o600))

	shops, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, shops, 3)
	assert.Equal(t, "alpha.myshopify.com", shops[0].ShopDomain)
	assert.Equal(t, "mid.myshopify.com", shops[1].ShopDomain)
	assert.Equal(t, "zeta.myshopify.com", shops[2].ShopDomain)
}

func TestFileShopStore_ConcurrentPutsNeverCorrupt(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()
	const writers = 16

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := &domain.ShopRecord{
				ShopDomain:  "race.myshopify.com",
				AccessToken: fmt.Sprintf("token-%02d", i),
				Scope:       fmt.Sprintf("scope-%02d", i),
			}
			assert.NoError(t, store.Put(ctx, rec))
		}(i)
	}

	// Readers racing the writers must only ever see whole records.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			got, err := store.Get(ctx, "race.myshopify.com")
			if !assert.NoError(t, err) {
				return
			}
			if got != nil {
				assert.Equal(t, got.AccessToken[len("token-"):], got.Scope[len("scope-"):])
			}
		}
	}()

	wg.Wait()
	<-done

	got, err := store.Get(ctx, "race.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, got.AccessToken[len("token-"):], got.Scope[len("scope-"):])
}

func TestFileShopStore_SurvivesReopen(t *testing.T) {
	store, dir := newTestFileStore(t)
	ctx := context.Background()
	rec := &domain.ShopRecord{ShopDomain: "durable.myshopify.com", AccessToken: "t", Scope: "read_orders"}
	require.NoError(t, store.Put(ctx, rec))

	reopened, err := NewFileShopStore(dir)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "durable.myshopify.com")
	require.NoError(t, err)
	assertRecordEqual(t, rec, got)
}

func TestFileShopStore_HonoursCanceledContext(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, &domain.ShopRecord{ShopDomain: "a.myshopify.com", AccessToken: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}
