package domain

import (
	"regexp"
	"strings"
)

// ShopifyDomainSuffix is the host suffix of every canonical shop domain.
const ShopifyDomainSuffix = ".myshopify.com"

var (
	shopNamePattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)
)

// NormalizeShop turns user input such as "MyStore", "mystore.myshopify.com" or
// "https://mystore.myshopify.com/admin" into "mystore.myshopify.com".
func NormalizeShop(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ShopifyDomainSuffix)
	if !shopNamePattern.MatchString(s) {
		return "", ErrInvalidShopIdentifier
	}
	return s + ShopifyDomainSuffix, nil
}

// IsValidShopDomain reports whether shop is already in canonical form.
func IsValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}
