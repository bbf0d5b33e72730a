package domain

import (
	"time"

	"github.com/rs/zerolog"
)

// ShopRecord is the persisted OAuth grant for a single connected shop.
// There is at most one record per ShopDomain; a new grant replaces the old one.
type ShopRecord struct {
	ShopDomain  string    `json:"shop_domain" bson:"shopDomain"`
	AccessToken string    `json:"access_token" bson:"accessToken"`
	Scope       string    `json:"scope" bson:"scope"`
	ConnectedAt time.Time `json:"connected_at" bson:"connectedAt"`
}

// MarshalZerologObject logs the record without its access token.
func (r *ShopRecord) MarshalZerologObject(e *zerolog.Event) {
	e.Str("shop", r.ShopDomain).
		Str("scope", r.Scope).
		Time("connectedAt", r.ConnectedAt)
}

// Clone returns a copy so callers can mutate the result freely.
func (r *ShopRecord) Clone() *ShopRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
