package stores

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/docvault/internal/searchstore"
	"github.com/kalambet/docvault/internal/storage"
)

type fakeRemote struct {
	createErr error
	created   []string
}

func (f *fakeRemote) CreateStore(_ context.Context, displayName string) (searchstore.RemoteStore, error) {
	if f.createErr != nil {
		return searchstore.RemoteStore{}, f.createErr
	}
	f.created = append(f.created, displayName)
	return searchstore.RemoteStore{Name: "fileSearchStores/" + displayName}, nil
}

func (f *fakeRemote) Upload(_ context.Context, req searchstore.UploadRequest) (searchstore.Operation, error) {
	return searchstore.Operation{Done: true}, nil
}

func (f *fakeRemote) Query(_ context.Context, _ searchstore.QueryRequest) (string, error) {
	return "", nil
}

// countingStore wraps a real store and counts name lookups.
type countingStore struct {
	*storage.Store
	lookups atomic.Int64
}

func (c *countingStore) GetStoreByName(name string) (storage.StoreRecord, error) {
	c.lookups.Add(1)
	return c.Store.GetStoreByName(name)
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreate(t *testing.T) {
	db := openTestStore(t)
	remote := &fakeRemote{}
	svc := NewService(db, remote, nil)

	rec, err := svc.Create(context.Background(), "tenders")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Name != "tenders" {
		t.Errorf("Name = %q, want tenders", rec.Name)
	}
	if rec.RemoteName != "fileSearchStores/tenders" {
		t.Errorf("RemoteName = %q, want fileSearchStores/tenders", rec.RemoteName)
	}
	if rec.ID == "" {
		t.Error("ID is empty")
	}

	persisted, err := db.GetStoreByName("tenders")
	if err != nil {
		t.Fatalf("GetStoreByName: %v", err)
	}
	if persisted.ID != rec.ID {
		t.Errorf("persisted ID = %q, want %q", persisted.ID, rec.ID)
	}
}

func TestCreateEmptyName(t *testing.T) {
	db := openTestStore(t)
	svc := NewService(db, &fakeRemote{}, nil)

	if _, err := svc.Create(context.Background(), ""); err == nil {
		t.Fatal("Create with empty name succeeded, want error")
	}
}

func TestCreateDuplicateName(t *testing.T) {
	db := openTestStore(t)
	remote := &fakeRemote{}
	svc := NewService(db, remote, nil)

	if _, err := svc.Create(context.Background(), "tenders"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), "tenders"); err == nil {
		t.Fatal("second Create succeeded, want error")
	}
	if len(remote.created) != 1 {
		t.Errorf("remote stores created = %d, want 1 (duplicate detected locally)", len(remote.created))
	}
}

func TestCreateRemoteFailure(t *testing.T) {
	db := openTestStore(t)
	remote := &fakeRemote{createErr: errors.New("permission denied")}
	svc := NewService(db, remote, nil)

	if _, err := svc.Create(context.Background(), "tenders"); err == nil {
		t.Fatal("Create succeeded despite remote failure")
	}
	if _, err := db.GetStoreByName("tenders"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("store persisted despite remote failure: %v", err)
	}
}

func TestResolveCaches(t *testing.T) {
	db := openTestStore(t)
	counting := &countingStore{Store: db}
	svc := NewService(counting, &fakeRemote{}, nil)

	if err := db.CreateStore(storage.StoreRecord{
		ID: "st-1", Name: "tenders", RemoteName: "fileSearchStores/t",
		DisplayName: "tenders", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	for i := 0; i < 3; i++ {
		rec, err := svc.Resolve("tenders")
		if err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
		if rec.ID != "st-1" {
			t.Errorf("Resolve #%d ID = %q, want st-1", i, rec.ID)
		}
	}
	if got := counting.lookups.Load(); got != 1 {
		t.Errorf("database lookups = %d, want 1 (cached after first hit)", got)
	}
}

func TestResolveNotFound(t *testing.T) {
	db := openTestStore(t)
	svc := NewService(db, &fakeRemote{}, nil)

	if _, err := svc.Resolve("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want storage.ErrNotFound", err)
	}
}

func TestResolveConcurrent(t *testing.T) {
	db := openTestStore(t)
	counting := &countingStore{Store: db}
	svc := NewService(counting, &fakeRemote{}, nil)

	if err := db.CreateStore(storage.StoreRecord{
		ID: "st-1", Name: "tenders", RemoteName: "fileSearchStores/t",
		DisplayName: "tenders", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Resolve("tenders"); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestDeleteEvictsCache(t *testing.T) {
	db := openTestStore(t)
	svc := NewService(db, &fakeRemote{}, nil)

	rec, err := svc.Create(context.Background(), "tenders")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Resolve("tenders"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Resolve after Delete = %v, want storage.ErrNotFound", err)
	}
}
