package repository

import (
	"context"
	"encoding/base64"
	"testing"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/infrastructure/encryption"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptedShopStore_TokenEncryptedAtRest(t *testing.T) {
	inner, _ := newTestFileStore(t)
	svc, err := encryption.NewService(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	store := NewEncryptedShopStore(inner, svc)
	ctx := context.Background()

	rec := &domain.ShopRecord{ShopDomain: "enc.myshopify.com", AccessToken: "shpat_plain", Scope: "read_orders"}
	require.NoError(t, store.Put(ctx, rec))
	assert.Equal(t, "shpat_plain", rec.AccessToken, "caller's record must not be mutated")

	raw, err := inner.Get(ctx, "enc.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.NotEqual(t, "shpat_plain", raw.AccessToken)

	got, err := store.Get(ctx, "enc.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_plain", got.AccessToken)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "shpat_plain", all[0].AccessToken)

	missing, err := store.Get(ctx, "none.myshopify.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
