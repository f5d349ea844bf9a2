// Package api implements the REST surface: store management, uploads, the
// bulk ingestion endpoint, and retrieval-augmented query routes.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/docvault/internal/ingest"
	"github.com/kalambet/docvault/internal/query"
	"github.com/kalambet/docvault/internal/storage"
	"github.com/kalambet/docvault/internal/stores"
)

type AppDeps struct {
	Store     *storage.Store
	Stores    *stores.Service
	Uploader  *ingest.Uploader
	Query     *query.Service
	UploadDir string
	Logger    *slog.Logger
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Post("/stores", handleCreateStore(deps))
			r.Get("/stores", handleListStores(deps))
			r.Delete("/stores/{id}", handleDeleteStore(deps))
			r.Post("/upload", handleUpload(deps))
			r.Post("/bulk_upload", handleBulkUpload(deps))
			r.Get("/documents", handleListDocuments(deps))
			r.Delete("/documents/{id}", handleDeleteDocument(deps))
		})
		r.Post("/query", handleQuery(deps))
		r.Get("/query/history", handleQueryHistory(deps))
		r.Get("/query/modes", handleQueryModes)
		r.Get("/categories", handleListCategories)
		r.Get("/categories/stats", handleCategoryStats(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
