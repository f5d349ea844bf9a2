package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/docvault/internal/searchstore"
	"github.com/kalambet/docvault/internal/storage"
)

// Terminal statuses for one file's ingestion attempt.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

const errDuplicate = "File already exists"

// FileOutcome is the terminal classification of one file in a batch run.
type FileOutcome struct {
	Filename string `json:"filename"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// BatchResult aggregates a whole upload run. Total always equals
// Success + Failed + Skipped, and Files holds exactly Total entries in scan
// order.
type BatchResult struct {
	Total   int           `json:"total"`
	Success int           `json:"success_count"`
	Failed  int           `json:"failed_count"`
	Skipped int           `json:"skipped_count"`
	Files   []FileOutcome `json:"files"`
}

// BatchTx is one window's staging transaction.
type BatchTx interface {
	DocumentExists(storeID, filename string) (bool, error)
	StageDocument(d storage.Document) error
	Commit() error
	Rollback() error
}

// BatchStore abstracts the persistence operations the uploader needs.
type BatchStore interface {
	GetStore(id string) (storage.StoreRecord, error)
	BeginBatch() (BatchTx, error)
}

// storeAdapter lifts *storage.Store's concrete BeginBatch into BatchStore.
type storeAdapter struct {
	*storage.Store
}

func (a storeAdapter) BeginBatch() (BatchTx, error) {
	return a.Store.BeginBatch()
}

// Uploader pushes scanned files to the remote search store in fixed-size
// windows, persisting one local document record per successful upload and
// committing each window as a single transaction. Processing is deliberately
// sequential: one file, one remote call, one commit at a time.
type Uploader struct {
	store     BatchStore
	remote    searchstore.Client
	batchSize int
	logger    *slog.Logger
}

// NewUploader creates an Uploader. If batchSize is <= 0, it defaults to 10.
func NewUploader(store *storage.Store, remote searchstore.Client, batchSize int) *Uploader {
	return newUploader(storeAdapter{store}, remote, batchSize)
}

func newUploader(store BatchStore, remote searchstore.Client, batchSize int) *Uploader {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Uploader{
		store:     store,
		remote:    remote,
		batchSize: batchSize,
		logger:    slog.Default(),
	}
}

// WithBatchSize returns a copy of the Uploader using a different window
// size. Sizes <= 0 leave the original size in place.
func (u *Uploader) WithBatchSize(batchSize int) *Uploader {
	if batchSize <= 0 {
		return u
	}
	clone := *u
	clone.batchSize = batchSize
	return &clone
}

// UploadBatch ingests files into the store identified by storeID.
//
// The store is resolved once up front; an unknown storeID fails the whole
// call (wrapping storage.ErrNotFound) before any file is touched. After that
// no per-file condition aborts the run: duplicates are skipped, remote upload
// errors are recorded as failed, and a window whose commit fails has its
// staged records rolled back and its successes retroactively reclassified as
// failed. Every input file ends up with exactly one outcome in the result.
func (u *Uploader) UploadBatch(ctx context.Context, files []FileDescriptor, storeID string) (*BatchResult, error) {
	store, err := u.store.GetStore(storeID)
	if err != nil {
		return nil, fmt.Errorf("resolving store %q: %w", storeID, err)
	}

	result := &BatchResult{
		Total: len(files),
		Files: make([]FileOutcome, 0, len(files)),
	}

	for start := 0; start < len(files); start += u.batchSize {
		end := min(start+u.batchSize, len(files))
		u.processWindow(ctx, files[start:end], store, result)
	}

	return result, nil
}

// processWindow runs the per-item state machine for one window, then commits
// its staged records. Outcomes are buffered locally and only merged into the
// result once the window's commit outcome is known, so a commit failure can
// reclassify the window's successes without rewriting published history.
func (u *Uploader) processWindow(ctx context.Context, window []FileDescriptor, store storage.StoreRecord, result *BatchResult) {
	outcomes := make([]FileOutcome, 0, len(window))

	batch, err := u.store.BeginBatch()
	if err != nil {
		u.logger.Error("beginning batch transaction failed", "store", store.Name, "error", err)
		for _, f := range window {
			outcomes = append(outcomes, FileOutcome{
				Filename: f.Filename,
				Category: f.Category,
				Status:   StatusFailed,
				Error:    fmt.Sprintf("database error: %v", err),
			})
			result.Failed++
		}
		result.Files = append(result.Files, outcomes...)
		return
	}

	for _, f := range window {
		outcome := u.processFile(ctx, batch, store, f)
		switch outcome.Status {
		case StatusSuccess:
			result.Success++
		case StatusSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		outcomes = append(outcomes, outcome)
	}

	if err := batch.Commit(); err != nil {
		batch.Rollback()
		u.logger.Warn("batch commit failed, reclassifying window",
			"store", store.Name, "window_size", len(window), "error", err)
		for i := range outcomes {
			if outcomes[i].Status == StatusSuccess {
				outcomes[i].Status = StatusFailed
				outcomes[i].Error = fmt.Sprintf("database error: %v", err)
				result.Success--
				result.Failed++
			}
		}
	}

	result.Files = append(result.Files, outcomes...)
}

// processFile runs the per-item state machine: duplicate check, remote
// upload, local stage. Errors never escape; they become the item's outcome.
func (u *Uploader) processFile(ctx context.Context, batch BatchTx, store storage.StoreRecord, f FileDescriptor) FileOutcome {
	outcome := FileOutcome{Filename: f.Filename, Category: f.Category}

	dup, err := batch.DocumentExists(store.ID, f.Filename)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		return outcome
	}
	if dup {
		outcome.Status = StatusSkipped
		outcome.Error = errDuplicate
		return outcome
	}

	op, err := u.remote.Upload(ctx, searchstore.UploadRequest{
		FilePath:    f.Path,
		StoreName:   store.RemoteName,
		DisplayName: f.Filename,
	})
	if err != nil {
		// No local write for a failed remote upload.
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		return outcome
	}

	doc := storage.Document{
		ID:           uuid.New().String(),
		StoreID:      store.ID,
		Filename:     f.Filename,
		Category:     f.Category,
		SourcePath:   f.Path,
		RemoteFileID: op.Name,
		SizeBytes:    f.SizeBytes,
		UploadedAt:   time.Now().UTC(),
	}
	if err := batch.StageDocument(doc); err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = StatusSuccess
	return outcome
}
