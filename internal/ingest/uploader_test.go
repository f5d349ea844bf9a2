package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/docvault/internal/searchstore"
	"github.com/kalambet/docvault/internal/storage"
)

// fakeRemote is an in-memory searchstore.Client.
type fakeRemote struct {
	mu       sync.Mutex
	uploads  []searchstore.UploadRequest
	uploadFn func(req searchstore.UploadRequest) (searchstore.Operation, error)
}

func (f *fakeRemote) CreateStore(_ context.Context, displayName string) (searchstore.RemoteStore, error) {
	return searchstore.RemoteStore{Name: "fileSearchStores/" + displayName}, nil
}

func (f *fakeRemote) Upload(_ context.Context, req searchstore.UploadRequest) (searchstore.Operation, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, req)
	f.mu.Unlock()
	if f.uploadFn != nil {
		return f.uploadFn(req)
	}
	return searchstore.Operation{Done: true, Name: "operations/" + req.DisplayName}, nil
}

func (f *fakeRemote) Query(_ context.Context, _ searchstore.QueryRequest) (string, error) {
	return "", nil
}

func (f *fakeRemote) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// flakyCommitStore wraps a BatchStore and fails Commit on selected windows.
type flakyCommitStore struct {
	inner       BatchStore
	failWindows map[int]bool
	window      int
}

func (s *flakyCommitStore) GetStore(id string) (storage.StoreRecord, error) {
	return s.inner.GetStore(id)
}

func (s *flakyCommitStore) BeginBatch() (BatchTx, error) {
	idx := s.window
	s.window++
	b, err := s.inner.BeginBatch()
	if err != nil {
		return nil, err
	}
	if s.failWindows[idx] {
		return failingCommitBatch{b}, nil
	}
	return b, nil
}

type failingCommitBatch struct {
	BatchTx
}

func (f failingCommitBatch) Commit() error {
	f.BatchTx.Rollback()
	return fmt.Errorf("disk I/O error")
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

func seedStore(t *testing.T, s *storage.Store) storage.StoreRecord {
	t.Helper()
	rec := storage.StoreRecord{
		ID:          "st-1",
		Name:        "tenders",
		RemoteName:  "fileSearchStores/tenders",
		DisplayName: "tenders",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.CreateStore(rec); err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	return rec
}

func descriptors(names ...string) []FileDescriptor {
	files := make([]FileDescriptor, len(names))
	for i, n := range names {
		files[i] = FileDescriptor{
			Path:      "/scan/compliance/" + n,
			Filename:  n,
			Category:  "compliance",
			SizeBytes: 100,
		}
	}
	return files
}

func checkInvariant(t *testing.T, result *BatchResult, wantTotal int) {
	t.Helper()
	if result.Total != wantTotal {
		t.Errorf("Total = %d, want %d", result.Total, wantTotal)
	}
	if got := result.Success + result.Failed + result.Skipped; got != result.Total {
		t.Errorf("Success+Failed+Skipped = %d, want Total = %d", got, result.Total)
	}
	if len(result.Files) != result.Total {
		t.Errorf("len(Files) = %d, want Total = %d", len(result.Files), result.Total)
	}
}

func TestUploadBatch_AllSucceed(t *testing.T) {
	db := openTestStore(t)
	rec := seedStore(t, db)
	remote := &fakeRemote{}
	u := NewUploader(db, remote, 2)

	files := descriptors("a.pdf", "b.pdf", "c.pdf")
	result, err := u.UploadBatch(context.Background(), files, rec.ID)
	if err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}

	checkInvariant(t, result, 3)
	if result.Success != 3 {
		t.Errorf("Success = %d, want 3", result.Success)
	}

	// Outcomes retain scan order.
	for i, f := range files {
		if result.Files[i].Filename != f.Filename {
			t.Errorf("Files[%d].Filename = %q, want %q", i, result.Files[i].Filename, f.Filename)
		}
		if result.Files[i].Status != StatusSuccess {
			t.Errorf("Files[%d].Status = %q, want success", i, result.Files[i].Status)
		}
	}

	// Records are durable and carry the remote file id.
	docs, err := db.ListDocuments(rec.ID, 100, 0)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("persisted %d documents, want 3", len(docs))
	}
	for _, d := range docs {
		if d.RemoteFileID == "" {
			t.Errorf("document %s has empty RemoteFileID", d.Filename)
		}
		if d.Category != "compliance" {
			t.Errorf("document %s category = %q, want compliance", d.Filename, d.Category)
		}
	}
}

func TestUploadBatch_StoreNotFound(t *testing.T) {
	db := openTestStore(t)
	remote := &fakeRemote{}
	u := NewUploader(db, remote, 10)

	_, err := u.UploadBatch(context.Background(), descriptors("a.pdf"), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want storage.ErrNotFound", err)
	}
	if remote.uploadCount() != 0 {
		t.Errorf("remote uploads = %d, want 0 (fail fast before processing)", remote.uploadCount())
	}
}

// TestUploadBatch_SkipsDuplicates covers a pre-existing record: the
// duplicate is skipped with no remote call.
func TestUploadBatch_SkipsDuplicates(t *testing.T) {
	db := openTestStore(t)
	rec := seedStore(t, db)
	if err := db.SaveDocument(storage.Document{
		ID:         "doc-0",
		StoreID:    rec.ID,
		Filename:   "policy1.pdf",
		UploadedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	remote := &fakeRemote{}
	u := NewUploader(db, remote, 10)

	files := descriptors("a.pdf", "policy1.pdf", "b.pdf")
	result, err := u.UploadBatch(context.Background(), files, rec.ID)
	if err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}

	checkInvariant(t, result, 3)
	if result.Success != 2 || result.Skipped != 1 {
		t.Errorf("Success/Skipped = %d/%d, want 2/1", result.Success, result.Skipped)
	}
	if result.Files[1].Status != StatusSkipped {
		t.Errorf("Files[1].Status = %q, want skipped", result.Files[1].Status)
	}
	if result.Files[1].Error != "File already exists" {
		t.Errorf("Files[1].Error = %q, want %q", result.Files[1].Error, "File already exists")
	}
	if remote.uploadCount() != 2 {
		t.Errorf("remote uploads = %d, want 2 (duplicate never uploaded)", remote.uploadCount())
	}
}

// TestUploadBatch_DuplicateWithinRun verifies a filename repeated in the same
// run is caught by the staged-row check.
func TestUploadBatch_DuplicateWithinRun(t *testing.T) {
	db := openTestStore(t)
	rec := seedStore(t, db)
	u := NewUploader(db, &fakeRemote{}, 10)

	files := descriptors("same.pdf", "same.pdf")
	result, err := u.UploadBatch(context.Background(), files, rec.ID)
	if err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}

	checkInvariant(t, result, 2)
	if result.Success != 1 || result.Skipped != 1 {
		t.Errorf("Success/Skipped = %d/%d, want 1/1", result.Success, result.Skipped)
	}
}

// TestUploadBatch_RemoteFailure covers a remote error on the 2nd of 3 files:
// the item fails, no local record is written for it, the batch continues.
func TestUploadBatch_RemoteFailure(t *testing.T) {
	db := openTestStore(t)
	rec := seedStore(t, db)
	remote := &fakeRemote{
		uploadFn: func(req searchstore.UploadRequest) (searchstore.Operation, error) {
			if req.DisplayName == "b.pdf" {
				return searchstore.Operation{}, fmt.Errorf("quota exceeded")
			}
			return searchstore.Operation{Done: true, Name: "operations/" + req.DisplayName}, nil
		},
	}
	u := NewUploader(db, remote, 10)

	result, err := u.UploadBatch(context.Background(), descriptors("a.pdf", "b.pdf", "c.pdf"), rec.ID)
	if err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}

	checkInvariant(t, result, 3)
	if result.Success != 2 || result.Failed != 1 {
		t.Errorf("Success/Failed = %d/%d, want 2/1", result.Success, result.Failed)
	}
	if result.Files[1].Filename != "b.pdf" || result.Files[1].Status != StatusFailed {
		t.Errorf("Files[1] = %+v, want b.pdf failed", result.Files[1])
	}
	if !strings.Contains(result.Files[1].Error, "quota exceeded") {
		t.Errorf("Files[1].Error = %q, want stringified remote error", result.Files[1].Error)
	}

	docs, err := db.ListDocuments(rec.ID, 100, 0)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("persisted %d documents, want 2 (no record for failed upload)", len(docs))
	}
	for _, d := range docs {
		if d.Filename == "b.pdf" {
			t.Error("found persisted record for failed upload b.pdf")
		}
	}
}

// TestUploadBatch_CommitFailure covers the retroactive reclassification: a
// window whose commit fails flips its successes to failed, counters follow,
// nothing from that window persists, and later windows still process.
func TestUploadBatch_CommitFailure(t *testing.T) {
	db := openTestStore(t)
	rec := seedStore(t, db)
	remote := &fakeRemote{}

	flaky := &flakyCommitStore{
		inner:       storeAdapter{db},
		failWindows: map[int]bool{0: true},
	}
	u := newUploader(flaky, remote, 2)

	// Window 0: a.pdf, b.pdf (commit fails). Window 1: c.pdf (commits).
	result, err := u.UploadBatch(context.Background(), descriptors("a.pdf", "b.pdf", "c.pdf"), rec.ID)
	if err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}

	checkInvariant(t, result, 3)
	if result.Success != 1 || result.Failed != 2 {
		t.Errorf("Success/Failed = %d/%d, want 1/2", result.Success, result.Failed)
	}
	for i := 0; i < 2; i++ {
		if result.Files[i].Status != StatusFailed {
			t.Errorf("Files[%d].Status = %q, want failed after commit failure", i, result.Files[i].Status)
		}
		if !strings.Contains(result.Files[i].Error, "database error") {
			t.Errorf("Files[%d].Error = %q, want database error message", i, result.Files[i].Error)
		}
	}
	if result.Files[2].Status != StatusSuccess {
		t.Errorf("Files[2].Status = %q, want success (later window unaffected)", result.Files[2].Status)
	}

	docs, err := db.ListDocuments(rec.ID, 100, 0)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != "c.pdf" {
		t.Errorf("persisted documents = %+v, want only c.pdf", docs)
	}
}

// TestUploadBatch_CommitFailureSparesSkipped verifies reclassification only
// touches successes: a skip in a failing window stays skipped.
func TestUploadBatch_CommitFailureSparesSkipped(t *testing.T) {
	db := openTestStore(t)
	rec := seedStore(t, db)
	if err := db.SaveDocument(storage.Document{
		ID:         "doc-0",
		StoreID:    rec.ID,
		Filename:   "dup.pdf",
		UploadedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	flaky := &flakyCommitStore{
		inner:       storeAdapter{db},
		failWindows: map[int]bool{0: true},
	}
	u := newUploader(flaky, &fakeRemote{}, 10)

	result, err := u.UploadBatch(context.Background(), descriptors("a.pdf", "dup.pdf"), rec.ID)
	if err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}

	checkInvariant(t, result, 2)
	if result.Failed != 1 || result.Skipped != 1 || result.Success != 0 {
		t.Errorf("Failed/Skipped/Success = %d/%d/%d, want 1/1/0",
			result.Failed, result.Skipped, result.Success)
	}
	if result.Files[1].Status != StatusSkipped || result.Files[1].Error != "File already exists" {
		t.Errorf("Files[1] = %+v, want untouched skip", result.Files[1])
	}
}

// TestUploadBatch_Idempotent runs the same file set twice: the second run
// skips everything.
func TestUploadBatch_Idempotent(t *testing.T) {
	db := openTestStore(t)
	rec := seedStore(t, db)
	u := NewUploader(db, &fakeRemote{}, 2)

	files := descriptors("a.pdf", "b.pdf", "c.pdf")

	first, err := u.UploadBatch(context.Background(), files, rec.ID)
	if err != nil {
		t.Fatalf("first UploadBatch: %v", err)
	}
	if first.Success != 3 {
		t.Fatalf("first run Success = %d, want 3", first.Success)
	}

	second, err := u.UploadBatch(context.Background(), files, rec.ID)
	if err != nil {
		t.Fatalf("second UploadBatch: %v", err)
	}
	checkInvariant(t, second, 3)
	if second.Skipped != 3 || second.Success != 0 {
		t.Errorf("second run Skipped/Success = %d/%d, want 3/0", second.Skipped, second.Success)
	}
}

// TestUploadBatch_BatchSizeIndependence verifies the multiset of statuses
// does not depend on the window size.
func TestUploadBatch_BatchSizeIndependence(t *testing.T) {
	files := descriptors("a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf")
	failing := map[string]bool{"b.pdf": true, "d.pdf": true}

	for _, batchSize := range []int{1, 2, 3, 10} {
		db := openTestStore(t)
		rec := seedStore(t, db)
		remote := &fakeRemote{
			uploadFn: func(req searchstore.UploadRequest) (searchstore.Operation, error) {
				if failing[req.DisplayName] {
					return searchstore.Operation{}, fmt.Errorf("network error")
				}
				return searchstore.Operation{Done: true}, nil
			},
		}
		u := NewUploader(db, remote, batchSize)

		result, err := u.UploadBatch(context.Background(), files, rec.ID)
		if err != nil {
			t.Fatalf("batchSize=%d: UploadBatch: %v", batchSize, err)
		}
		checkInvariant(t, result, 5)
		if result.Success != 3 || result.Failed != 2 || result.Skipped != 0 {
			t.Errorf("batchSize=%d: Success/Failed/Skipped = %d/%d/%d, want 3/2/0",
				batchSize, result.Success, result.Failed, result.Skipped)
		}
	}
}

func TestUploadBatch_EmptyFileSet(t *testing.T) {
	db := openTestStore(t)
	rec := seedStore(t, db)
	u := NewUploader(db, &fakeRemote{}, 10)

	result, err := u.UploadBatch(context.Background(), nil, rec.ID)
	if err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}
	checkInvariant(t, result, 0)
}
