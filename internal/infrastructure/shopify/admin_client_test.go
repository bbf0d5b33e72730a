package shopify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport sends every request to target regardless of the requested host.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newAdminTestServer(t *testing.T, inventoryStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_X", r.Header.Get("X-Shopify-Access-Token"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/shop.json"):
			_, _ = w.Write([]byte(`{"shop":{"name":"My Store","domain":"mystore.com","currency":"EUR"}}`))
		case strings.HasSuffix(r.URL.Path, "/products.json"):
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"products":[` +
				`{"title":"Mug","variants":[{"price":"12.50","inventory_item_id":101}]},` +
				`{"title":"Poster","variants":[{"price":"5.00","inventory_item_id":202}]},` +
				`{"title":"Gift card","variants":[]}]}`))
		case strings.HasSuffix(r.URL.Path, "/inventory_levels.json"):
			assert.Equal(t, "101,202", r.URL.Query().Get("inventory_item_ids"))
			if inventoryStatus != http.StatusOK {
				w.WriteHeader(inventoryStatus)
				_, _ = w.Write([]byte(`{"errors":"forbidden"}`))
				return
			}
			_, _ = w.Write([]byte(`{"inventory_levels":[` +
				`{"inventory_item_id":101,"location_id":1,"available":3},` +
				`{"inventory_item_id":101,"location_id":2,"available":4}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAdminClient(t *testing.T) {
	server := newAdminTestServer(t, http.StatusOK)
	defer server.Close()
	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	client := NewAdminClient(testClientID, testClientSecret,
		&http.Client{Transport: rewriteTransport{target: target}}, zerolog.Nop())
	ctx := context.Background()

	shop, err := client.GetShop(ctx, "mystore.myshopify.com", "shpat_X")
	require.NoError(t, err)
	assert.Equal(t, "My Store", shop.Name)
	assert.Equal(t, "mystore.com", shop.PrimaryDomain)
	assert.Equal(t, "EUR", shop.Currency)

	products, err := client.ListProducts(ctx, "mystore.myshopify.com", "shpat_X", 2)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Mug", products[0].Title)
	assert.Equal(t, "12.5", products[0].Price)
	require.NotNil(t, products[0].Stock)
	assert.Equal(t, 7, *products[0].Stock)
	assert.Nil(t, products[1].Stock, "no inventory level means unknown stock")
	assert.Equal(t, "Gift card", products[2].Title)
	assert.Empty(t, products[2].Price)
	assert.Nil(t, products[2].Stock)
}

func TestAdminClient_InventoryUnavailable(t *testing.T) {
	server := newAdminTestServer(t, http.StatusForbidden)
	defer server.Close()
	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	client := NewAdminClient(testClientID, testClientSecret,
		&http.Client{Transport: rewriteTransport{target: target}}, zerolog.Nop())

	products, err := client.ListProducts(context.Background(), "mystore.myshopify.com", "shpat_X", 2)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "12.5", products[0].Price)
	for _, p := range products {
		assert.Nil(t, p.Stock)
	}
}
