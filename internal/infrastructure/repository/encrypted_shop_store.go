package repository

import (
	"context"
	"fmt"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"
)

// EncryptedShopStore encrypts access tokens before they reach the inner store
// and decrypts them on the way out.
type EncryptedShopStore struct {
	inner         ports.ShopStore
	encryptionSvc ports.EncryptionService
}

var _ ports.ShopStore = (*EncryptedShopStore)(nil)

// NewEncryptedShopStore wraps inner with token encryption
func NewEncryptedShopStore(inner ports.ShopStore, encryptionSvc ports.EncryptionService) *EncryptedShopStore {
	return &EncryptedShopStore{inner: inner, encryptionSvc: encryptionSvc}
}

func (s *EncryptedShopStore) Put(ctx context.Context, record *domain.ShopRecord) error {
	if record == nil || record.AccessToken == "" {
		return domain.ErrEmptyAccessToken
	}
	encrypted, err := s.encryptionSvc.Encrypt(record.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	stored := record.Clone()
	stored.AccessToken = encrypted
	return s.inner.Put(ctx, stored)
}

func (s *EncryptedShopStore) Get(ctx context.Context, shopDomain string) (*domain.ShopRecord, error) {
	rec, err := s.inner.Get(ctx, shopDomain)
	if err != nil || rec == nil {
		return rec, err
	}
	return s.decrypt(rec)
}

func (s *EncryptedShopStore) List(ctx context.Context) ([]*domain.ShopRecord, error) {
	recs, err := s.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ShopRecord, 0, len(recs))
	for _, rec := range recs {
		dec, err := s.decrypt(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, dec)
	}
	return out, nil
}

func (s *EncryptedShopStore) decrypt(rec *domain.ShopRecord) (*domain.ShopRecord, error) {
	token, err := s.encryptionSvc.Decrypt(rec.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for %s: %w", rec.ShopDomain, err)
	}
	out := rec.Clone()
	out.AccessToken = token
	return out, nil
}
