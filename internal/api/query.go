package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kalambet/docvault/internal/category"
	"github.com/kalambet/docvault/internal/query"
	"github.com/kalambet/docvault/internal/storage"
)

func handleQuery(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBulkBodySize)
		defer r.Body.Close()

		var req query.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}
		if req.StoreName == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "store_name is required")
			return
		}

		resp, err := deps.Query.Ask(r.Context(), req)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "store not found: %s", req.StoreName)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "query failed: %v", err)
			return
		}

		writeJSON(w, resp)
	}
}

func handleQueryHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 200)
		offset := parseIntParam(r, "offset", 0, 0)

		records, err := deps.Query.History(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list history: %v", err)
			return
		}
		if records == nil {
			records = []storage.QueryRecord{}
		}
		writeJSON(w, map[string]any{"history": records})
	}
}

func handleQueryModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"modes": query.Modes()})
}

func handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"categories": category.All()})
}

// handleCategoryStats returns per-category document counts. Every catalog
// category appears in the response, zero counts included.
func handleCategoryStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := deps.Store.CategoryCounts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get category stats: %v", err)
			return
		}

		stats := make(map[string]int, len(category.Names()))
		for _, name := range category.Names() {
			stats[name] = counts[name]
		}
		writeJSON(w, map[string]any{"stats": stats})
	}
}
