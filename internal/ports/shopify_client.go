package ports

import (
	"context"
	"net/url"
)

// TokenGrant is the result of a successful authorization-code exchange.
type TokenGrant struct {
	AccessToken string
	Scope       string
}

// OAuthProvider is the authorization server side of the install flow.
type OAuthProvider interface {
	// AuthorizeURL builds the URL the merchant's browser is sent to.
	AuthorizeURL(shop, state string) string

	// ExchangeCode trades an authorization code for an access token.
	// Failures are reported as *domain.TokenExchangeError.
	ExchangeCode(ctx context.Context, shop, code string) (*TokenGrant, error)

	// VerifyCallback checks the HMAC signature of the callback query.
	VerifyCallback(query url.Values) bool
}

// StorefrontShop is the subset of shop settings used for chat context.
type StorefrontShop struct {
	Name          string
	PrimaryDomain string
	Currency      string
}

// StorefrontProduct is the subset of product data used for chat context.
// Stock is nil when inventory levels could not be read.
type StorefrontProduct struct {
	Title string
	Price string
	Stock *int
}

// StorefrontClient reads catalog data from the Shopify Admin API.
type StorefrontClient interface {
	GetShop(ctx context.Context, shop, accessToken string) (*StorefrontShop, error)
	ListProducts(ctx context.Context, shop, accessToken string, limit int) ([]StorefrontProduct, error)
}
