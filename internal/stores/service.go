// Package stores manages the lifecycle of file search stores: creation of
// the remote store, the local record, and a name to handle cache so hot
// paths do not hit the database for every resolution.
package stores

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kalambet/docvault/internal/searchstore"
	"github.com/kalambet/docvault/internal/storage"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateStore(rec storage.StoreRecord) error
	GetStore(id string) (storage.StoreRecord, error)
	GetStoreByName(name string) (storage.StoreRecord, error)
	ListStores() ([]storage.StoreRecord, error)
	DeleteStore(id string) error
}

// Service resolves store names to records, creating remote stores on
// demand. Resolution is cached; concurrent misses for the same name are
// collapsed into a single lookup.
type Service struct {
	db     Store
	remote searchstore.Client
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]storage.StoreRecord

	group singleflight.Group
}

func NewService(db Store, remote searchstore.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		remote: remote,
		logger: logger,
		cache:  make(map[string]storage.StoreRecord),
	}
}

// Create provisions a remote file search store and persists its record.
// The remote store is created first; if persistence fails the remote
// store is left orphaned and the error reported.
func (s *Service) Create(ctx context.Context, name string) (storage.StoreRecord, error) {
	if name == "" {
		return storage.StoreRecord{}, fmt.Errorf("store name is required")
	}
	if existing, err := s.db.GetStoreByName(name); err == nil {
		return existing, fmt.Errorf("store %q already exists", existing.Name)
	}

	remote, err := s.remote.CreateStore(ctx, name)
	if err != nil {
		return storage.StoreRecord{}, fmt.Errorf("create remote store: %w", err)
	}

	rec := storage.StoreRecord{
		ID:          uuid.New().String(),
		Name:        name,
		RemoteName:  remote.Name,
		DisplayName: name,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.CreateStore(rec); err != nil {
		s.logger.Error("store persist failed after remote create",
			"name", name, "remote", remote.Name, "error", err)
		return storage.StoreRecord{}, fmt.Errorf("persist store: %w", err)
	}

	s.mu.Lock()
	s.cache[name] = rec
	s.mu.Unlock()

	s.logger.Info("store created", "name", name, "remote", remote.Name)
	return rec, nil
}

// Resolve returns the record for a store name, hitting the database only
// on cache misses.
func (s *Service) Resolve(name string) (storage.StoreRecord, error) {
	s.mu.RLock()
	rec, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		rec, err := s.db.GetStoreByName(name)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[name] = rec
		s.mu.Unlock()
		return rec, nil
	})
	if err != nil {
		return storage.StoreRecord{}, err
	}
	return v.(storage.StoreRecord), nil
}

// ResolveID looks a store up by its local id. Unlike Resolve this is not
// cached; id lookups only happen on management routes.
func (s *Service) ResolveID(id string) (storage.StoreRecord, error) {
	return s.db.GetStore(id)
}

// List returns all known stores with their document counts.
func (s *Service) List() ([]storage.StoreRecord, error) {
	return s.db.ListStores()
}

// Delete removes the local record and evicts the cache entry. The remote
// store is retained; remote deletion is a manual operation.
func (s *Service) Delete(id string) error {
	rec, err := s.db.GetStore(id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteStore(id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, rec.Name)
	s.mu.Unlock()
	s.logger.Info("store deleted", "name", rec.Name, "id", id)
	return nil
}
