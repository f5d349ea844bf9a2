package storage

import (
	"database/sql"
	"time"
)

// Batch is one ingestion window's transaction. Documents staged into it are
// invisible to other readers until Commit; duplicate lookups made through the
// batch see both committed rows and rows staged earlier in the same window.
type Batch struct {
	tx *sql.Tx
}

// BeginBatch starts a transaction for one ingestion window.
func (s *Store) BeginBatch() (*Batch, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &Batch{tx: tx}, nil
}

// DocumentExists reports whether a document with the given filename exists
// for the store, including documents staged in this batch.
func (b *Batch) DocumentExists(storeID, filename string) (bool, error) {
	var count int
	err := b.tx.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE store_id = ? AND filename = ?`,
		storeID, filename,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// StageDocument inserts a document record into the batch transaction.
// It becomes durable only when Commit succeeds.
func (b *Batch) StageDocument(d Document) error {
	_, err := b.tx.Exec(`
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, nullable(d.StoreID), d.Filename, nullable(d.Category),
		nullable(d.SourcePath), nullable(d.RemoteFileID), d.SizeBytes,
		d.UploadedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Commit makes all staged documents durable.
func (b *Batch) Commit() error {
	return b.tx.Commit()
}

// Rollback discards all staged documents. Safe to call after a failed Commit.
func (b *Batch) Rollback() error {
	err := b.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}
