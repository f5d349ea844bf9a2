package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// StoreRecord is the local metadata for a remote file search store.
type StoreRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RemoteName  string    `json:"remote_name"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`

	// DocumentCount is populated by ListStores only.
	DocumentCount int `json:"document_count"`
}

// Document tracks one ingested file: its remote index entry plus the local
// metadata used for duplicate detection and category reporting.
type Document struct {
	ID           string    `json:"id"`
	StoreID      string    `json:"store_id"`
	Filename     string    `json:"filename"`
	Category     string    `json:"category"`
	SourcePath   string    `json:"source_path"`
	RemoteFileID string    `json:"remote_file_id"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// QueryRecord is one entry of the query history kept for analytics.
type QueryRecord struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"store_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Mode           string    `json:"mode"`
	CategoryFilter string    `json:"category_filter"`
	CreatedAt      time.Time `json:"created_at"`
	ElapsedMS      int64     `json:"elapsed_ms"`
}
