// Package query answers questions against a file search store, shaping the
// response with a selectable mode and recording each exchange.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/docvault/internal/category"
	"github.com/kalambet/docvault/internal/searchstore"
	"github.com/kalambet/docvault/internal/storage"
)

// StoreResolver maps a store name to its record.
type StoreResolver interface {
	Resolve(name string) (storage.StoreRecord, error)
}

// History is the persistence surface for the query log.
type History interface {
	SaveQueryRecord(rec storage.QueryRecord) error
	ListQueryHistory(limit, offset int) ([]storage.QueryRecord, error)
	CountDocumentsInCategories(storeID string, categories []string) (int, error)
}

// Request is one question against a named store.
type Request struct {
	Question   string   `json:"question"`
	StoreName  string   `json:"store_name"`
	Mode       string   `json:"mode"`
	Categories []string `json:"categories,omitempty"`
}

// CategoryFilter reports which categories a query was scoped to and how
// many documents they cover.
type CategoryFilter struct {
	Categories    []string `json:"filtered_categories"`
	DocumentCount int      `json:"document_count"`
}

// Response carries the model's answer plus the mode actually applied.
type Response struct {
	Answer    string          `json:"answer"`
	Mode      string          `json:"mode"`
	ModeName  string          `json:"mode_name"`
	ModeIcon  string          `json:"mode_icon"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Filter    *CategoryFilter `json:"category_filter,omitempty"`
}

// Service wires store resolution, the remote model, and the query log.
type Service struct {
	resolver StoreResolver
	remote   searchstore.Client
	history  History
	logger   *slog.Logger
}

func NewService(resolver StoreResolver, remote searchstore.Client, history History, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{resolver: resolver, remote: remote, history: history, logger: logger}
}

// Ask runs one question. Unknown modes fall back to quick, unknown category
// names are dropped from the filter. The exchange is recorded even when
// history persistence fails; a log entry is the only trace of that failure.
func (s *Service) Ask(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Response{}, fmt.Errorf("question is required")
	}
	store, err := s.resolver.Resolve(req.StoreName)
	if err != nil {
		return Response{}, fmt.Errorf("resolve store %q: %w", req.StoreName, err)
	}

	mode := ModeFor(req.Mode)

	var filter *CategoryFilter
	valid := category.Validate(req.Categories)
	if len(valid) > 0 {
		count, err := s.history.CountDocumentsInCategories(store.ID, valid)
		if err != nil {
			return Response{}, fmt.Errorf("count filtered documents: %w", err)
		}
		filter = &CategoryFilter{Categories: valid, DocumentCount: count}
	}

	start := time.Now()
	answer, err := s.remote.Query(ctx, searchstore.QueryRequest{
		Question:     req.Question,
		StoreName:    store.RemoteName,
		SystemPrompt: mode.Prompt,
		Temperature:  &mode.Temperature,
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return Response{}, fmt.Errorf("query store %q: %w", req.StoreName, err)
	}

	rec := storage.QueryRecord{
		ID:             uuid.New().String(),
		StoreID:        store.ID,
		Question:       req.Question,
		Answer:         answer,
		Mode:           mode.Key,
		CategoryFilter: strings.Join(valid, ","),
		CreatedAt:      time.Now().UTC(),
		ElapsedMS:      elapsed,
	}
	if err := s.history.SaveQueryRecord(rec); err != nil {
		s.logger.Warn("query history write failed", "store", store.Name, "error", err)
	}

	return Response{
		Answer:    answer,
		Mode:      mode.Key,
		ModeName:  mode.Name,
		ModeIcon:  mode.Icon,
		ElapsedMS: elapsed,
		Filter:    filter,
	}, nil
}

// History returns the most recent query records.
func (s *Service) History(limit, offset int) ([]storage.QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.history.ListQueryHistory(limit, offset)
}
