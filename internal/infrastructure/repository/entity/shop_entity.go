package entity

import (
	"time"

	"shopify-support-chat/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopDoc represents a connected shop in MongoDB
type MongoShopDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ShopDomain  string             `bson:"shopDomain"`
	AccessToken string             `bson:"accessToken"`
	Scope       string             `bson:"scope"`
	ConnectedAt time.Time          `bson:"connectedAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopDoc) ToDomain() *domain.ShopRecord {
	return &domain.ShopRecord{
		ShopDomain:  d.ShopDomain,
		AccessToken: d.AccessToken,
		Scope:       d.Scope,
		ConnectedAt: d.ConnectedAt.UTC(),
	}
}

// MongoShopDocFromDomain converts a domain entity to a MongoDB document
func MongoShopDocFromDomain(record *domain.ShopRecord) *MongoShopDoc {
	return &MongoShopDoc{
		ShopDomain:  record.ShopDomain,
		AccessToken: record.AccessToken,
		Scope:       record.Scope,
		ConnectedAt: record.ConnectedAt,
	}
}
