package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/infrastructure/repository/entity"
	"shopify-support-chat/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoShopStore implements ShopStore using MongoDB
type MongoShopStore struct {
	collection *mongo.Collection
}

var _ ports.ShopStore = (*MongoShopStore)(nil)

// NewMongoShopStore creates a MongoDB shop store and ensures the unique index on shopDomain
func NewMongoShopStore(ctx context.Context, db *mongo.Database) (*MongoShopStore, error) {
	collection := db.Collection("shops")

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "shopDomain", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create shops index: %w", err)
	}

	return &MongoShopStore{collection: collection}, nil
}

// Put replaces the whole document for the shop, inserting it if missing
func (r *MongoShopStore) Put(ctx context.Context, record *domain.ShopRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	doc := entity.MongoShopDocFromDomain(record)
	doc.UpdatedAt = time.Now().UTC()

	filter := bson.M{"shopDomain": record.ShopDomain}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}

	return nil
}

// Get retrieves a shop by domain
func (r *MongoShopStore) Get(ctx context.Context, shopDomain string) (*domain.ShopRecord, error) {
	var doc entity.MongoShopDoc
	filter := bson.M{"shopDomain": shopDomain}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return doc.ToDomain(), nil
}

// List retrieves all shops ordered by domain
func (r *MongoShopStore) List(ctx context.Context) ([]*domain.ShopRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "shopDomain", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer cursor.Close(ctx)

	shops := []*domain.ShopRecord{}
	for cursor.Next(ctx) {
		var doc entity.MongoShopDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode shop: %w", err)
		}
		shops = append(shops, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return shops, nil
}
