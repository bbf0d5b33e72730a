package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shopify-support-chat/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type adminClient struct {
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ ports.StorefrontClient = (*adminClient)(nil)

type productListOptions struct {
	Limit  int    `url:"limit,omitempty"`
	Status string `url:"status,omitempty"`
	Fields string `url:"fields,omitempty"`
}

type inventoryLevelListOptions struct {
	InventoryItemIDs string `url:"inventory_item_ids"`
	Limit            int    `url:"limit,omitempty"`
}

// NewAdminClient creates a read-only Admin API adapter.
// httpClient may be nil to use the library default.
func NewAdminClient(clientID, clientSecret string, httpClient *http.Client, logger zerolog.Logger) ports.StorefrontClient {
	return &adminClient{
		app: goshopify.App{
			ApiKey:    clientID,
			ApiSecret: clientSecret,
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *adminClient) createClient(shopDomain, accessToken string) (*goshopify.Client, error) {
	var opts []goshopify.Option
	if c.httpClient != nil {
		opts = append(opts, goshopify.WithHTTPClient(c.httpClient))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (c *adminClient) GetShop(ctx context.Context, shopDomain, accessToken string) (*ports.StorefrontShop, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return &ports.StorefrontShop{
		Name:          shop.Name,
		PrimaryDomain: shop.Domain,
		Currency:      shop.Currency,
	}, nil
}

func (c *adminClient) ListProducts(ctx context.Context, shopDomain, accessToken string, limit int) ([]ports.StorefrontProduct, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	products, err := client.Product.List(ctx, productListOptions{
		Limit:  limit,
		Status: "active",
		Fields: "title,variants",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	out := make([]ports.StorefrontProduct, 0, len(products))
	itemIDs := make([]uint64, len(products))
	for i, p := range products {
		item := ports.StorefrontProduct{Title: p.Title}
		if len(p.Variants) > 0 {
			if p.Variants[0].Price != nil {
				item.Price = fmt.Sprintf("%v", p.Variants[0].Price)
			}
			itemIDs[i] = p.Variants[0].InventoryItemId
		}
		out = append(out, item)
	}

	available, err := c.availableByItem(ctx, client, itemIDs)
	if err != nil {
		c.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Failed to read inventory levels")
	}
	for i, id := range itemIDs {
		if n, ok := available[id]; ok && id != 0 {
			out[i].Stock = &n
		}
	}

	c.logger.Debug().
		Str("shop", shopDomain).
		Int("count", len(out)).
		Msg("Listed products for chat context")

	return out, nil
}

// availableByItem sums the available quantity across locations for each inventory item.
func (c *adminClient) availableByItem(ctx context.Context, client *goshopify.Client, itemIDs []uint64) (map[uint64]int, error) {
	ids := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		if id != 0 {
			ids = append(ids, strconv.FormatUint(id, 10))
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	levels, err := client.InventoryLevel.List(ctx, inventoryLevelListOptions{
		InventoryItemIDs: strings.Join(ids, ","),
		Limit:            250,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory levels: %w", err)
	}

	available := make(map[uint64]int, len(ids))
	for _, l := range levels {
		available[l.InventoryItemId] += l.Available
	}
	return available, nil
}
