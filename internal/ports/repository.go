package ports

import (
	"context"

	"shopify-support-chat/internal/domain"
)

// ShopStore defines durable persistence for OAuth grants, one per shop domain.
type ShopStore interface {
	// Put inserts or replaces the record for record.ShopDomain.
	// Readers never observe a partially written record.
	Put(ctx context.Context, record *domain.ShopRecord) error

	// Get returns the record for shopDomain, or nil, nil when none exists.
	Get(ctx context.Context, shopDomain string) (*domain.ShopRecord, error)

	// List returns every stored record ordered by shop domain.
	List(ctx context.Context) ([]*domain.ShopRecord, error)
}

// StateStore holds pending authorization attempts for a short time.
type StateStore interface {
	// Save records the attempt until attempt.ExpiresAt. When attempt.SessionID
	// is set, any earlier pending attempt of that session is invalidated.
	Save(ctx context.Context, attempt *domain.AuthorizationAttempt) error

	// Consume returns and removes the attempt for state. It returns nil, nil
	// when the state was never issued, already consumed, or expired.
	Consume(ctx context.Context, state string) (*domain.AuthorizationAttempt, error)
}

// EncryptionService encrypts secrets before they reach storage.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
