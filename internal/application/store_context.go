package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	storeContextTTL      = 5 * time.Minute
	storeContextProducts = 20
	storeContextTimeout  = 10 * time.Second
)

var errShopNotConnected = errors.New("shop not connected")

// StoreContextLoader builds a short description of a connected shop for the chat prompt.
type StoreContextLoader struct {
	shops  ports.ShopStore
	client ports.StorefrontClient
	cache  *gocache.Cache
	sf     singleflight.Group
	logger zerolog.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

// NewStoreContextLoader creates a loader caching results per shop.
func NewStoreContextLoader(shops ports.ShopStore, client ports.StorefrontClient, logger zerolog.Logger) *StoreContextLoader {
	return &StoreContextLoader{
		shops:  shops,
		client: client,
		cache:       gocache.New(storeContextTTL, 2*storeContextTTL),
		logger:      logger,
		generations: make(map[string]uint64),
	}
}

// Load returns the context text for shop, or "" when the shop is unknown
// or the Admin API cannot be reached. Failures are not cached.
func (l *StoreContextLoader) Load(ctx context.Context, rawShop string) string {
	shop, err := domain.NormalizeShop(rawShop)
	if err != nil {
		return ""
	}
	if v, ok := l.cache.Get(shop); ok {
		return v.(string)
	}

	v, err, _ := l.sf.Do(shop, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeContextTimeout)
		defer cancel()

		gen := l.generation(shop)
		text, err := l.build(fetchCtx, shop)
		if err != nil {
			return "", err
		}
		l.storeIfCurrent(shop, gen, text)
		return text, nil
	})
	if errors.Is(err, errShopNotConnected) {
		return ""
	}
	if err != nil {
		l.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to load store context")
		return ""
	}
	return v.(string)
}

// Invalidate drops the cached context for shop. A fetch already in flight
// still answers its callers but is not cached.
func (l *StoreContextLoader) Invalidate(shop string) {
	l.mu.Lock()
	l.generations[shop]++
	l.cache.Delete(shop)
	l.mu.Unlock()
	l.sf.Forget(shop)
}

func (l *StoreContextLoader) generation(shop string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[shop]
}

func (l *StoreContextLoader) storeIfCurrent(shop string, gen uint64, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generations[shop] == gen {
		l.cache.SetDefault(shop, text)
	}
}

func (l *StoreContextLoader) build(ctx context.Context, shop string) (string, error) {
	record, err := l.shops.Get(ctx, shop)
	if err != nil {
		return "", fmt.Errorf("failed to get shop record: %w", err)
	}
	if record == nil {
		return "", errShopNotConnected
	}

	var parts []string
	info, err := l.client.GetShop(ctx, shop, record.AccessToken)
	if err != nil {
		return "", err
	}
	if info != nil {
		primary := info.PrimaryDomain
		if primary == "" {
			primary = shop
		}
		currency := info.Currency
		if currency == "" {
			currency = "USD"
		}
		parts = append(parts, fmt.Sprintf("Store: %s. Primary domain: %s. Currency: %s.", info.Name, primary, currency))
	}

	products, err := l.client.ListProducts(ctx, shop, record.AccessToken, storeContextProducts)
	if err != nil {
		return "", err
	}
	if len(products) > 0 {
		lines := make([]string, 0, len(products))
		for _, p := range products {
			line := "- " + p.Title
			if p.Price != "" {
				line += " " + p.Price
			}
			if p.Stock != nil {
				line += fmt.Sprintf(", %d in stock", *p.Stock)
			}
			lines = append(lines, line)
		}
		parts = append(parts, "Products (name, price, stock): "+strings.Join(lines, "; "))
	}

	return strings.Join(parts, " "), nil
}
