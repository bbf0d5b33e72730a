package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"
)

const shopFileExt = ".json"

// FileShopStore implements ShopStore with one JSON file per shop domain.
// Writes for the same domain are serialized; every write is an atomic rename.
type FileShopStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ ports.ShopStore = (*FileShopStore)(nil)

// NewFileShopStore creates a file store rooted at dir, creating it if needed.
func NewFileShopStore(dir string) (*FileShopStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("token store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token store directory: %w", err)
	}
	return &FileShopStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileShopStore) lockFor(shopDomain string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[shopDomain]
	if !ok {
		l = &sync.Mutex{}
		s.locks[shopDomain] = l
	}
	return l
}

func (s *FileShopStore) path(shopDomain string) string {
	return filepath.Join(s.dir, shopDomain+shopFileExt)
}

// Put writes the record, replacing any previous record for the same shop.
func (s *FileShopStore) Put(ctx context.Context, record *domain.ShopRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode shop: %w", err)
	}

	l := s.lockFor(record.ShopDomain)
	l.Lock()
	defer l.Unlock()

	if err := writeFileAtomic(s.path(record.ShopDomain), data, 0o600); err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}
	return nil
}

// Get reads the record for shopDomain; a missing shop yields nil, nil.
func (s *FileShopStore) Get(ctx context.Context, shopDomain string) (*domain.ShopRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Anything else could escape the store directory and cannot have been stored.
	if !domain.IsValidShopDomain(shopDomain) {
		return nil, nil
	}
	return s.read(s.path(shopDomain))
}

// List returns all stored shops sorted by domain.
func (s *FileShopStore) List(ctx context.Context) ([]*domain.ShopRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*domain.ShopRecord{}, nil
		}
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}

	shops := make([]*domain.ShopRecord, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tempFilePrefix) || !strings.HasSuffix(name, shopFileExt) {
			continue
		}
		rec, err := s.read(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		if rec != nil {
			shops = append(shops, rec)
		}
	}

	sort.Slice(shops, func(i, j int) bool { return shops[i].ShopDomain < shops[j].ShopDomain })
	return shops, nil
}

func (s *FileShopStore) read(path string) (*domain.ShopRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read shop: %w", err)
	}

	var rec domain.ShopRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode shop %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

func validateRecord(record *domain.ShopRecord) error {
	if record == nil {
		return errors.New("shop record is nil")
	}
	if !domain.IsValidShopDomain(record.ShopDomain) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, record.ShopDomain)
	}
	if record.AccessToken == "" {
		return domain.ErrEmptyAccessToken
	}
	return nil
}
