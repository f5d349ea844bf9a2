package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ledongthuc/pdf"

	"github.com/kalambet/docvault/internal/category"
	"github.com/kalambet/docvault/internal/ingest"
	"github.com/kalambet/docvault/internal/storage"
)

const maxUploadSize = 50 << 20 // 50MB
const maxBulkBodySize = 1 << 20

type CreateStoreRequest struct {
	StoreName string `json:"store_name"`
}

func handleCreateStore(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBulkBodySize)
		defer r.Body.Close()

		var req CreateStoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.StoreName == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "store_name is required")
			return
		}

		rec, err := deps.Stores.Create(r.Context(), req.StoreName)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create store: %v", err)
			return
		}

		writeJSON(w, rec)
	}
}

func handleListStores(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Stores.List()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list stores: %v", err)
			return
		}
		if list == nil {
			list = []storage.StoreRecord{}
		}
		writeJSON(w, map[string]any{"stores": list})
	}
}

func handleDeleteStore(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Stores.Delete(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "store not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete store: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

// handleUpload ingests a single multipart file into a store. PDF payloads
// are opened locally before the remote call so a corrupt file fails fast.
func handleUpload(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no file provided")
			return
		}
		defer file.Close()

		if header.Filename == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no file selected")
			return
		}
		storeName := r.FormValue("store_name")
		if storeName == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "store_name is required")
			return
		}

		tempPath, size, err := saveUpload(deps.UploadDir, header.Filename, file)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save upload: %v", err)
			return
		}
		defer os.Remove(tempPath)

		if strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			if err := checkPDF(tempPath); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid pdf: %v", err)
				return
			}
		}

		cat := r.FormValue("category")
		if cat == "" {
			cat = category.FromPath(tempPath)
		}

		store, err := deps.Stores.Resolve(storeName)
		if errors.Is(err, storage.ErrNotFound) {
			store, err = deps.Stores.Create(r.Context(), storeName)
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to resolve store: %v", err)
			return
		}

		result, err := deps.Uploader.UploadBatch(r.Context(), []ingest.FileDescriptor{{
			Path:      tempPath,
			Filename:  header.Filename,
			Category:  cat,
			SizeBytes: size,
		}}, store.ID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "upload failed: %v", err)
			return
		}

		outcome := result.Files[0]
		if outcome.Status == ingest.StatusFailed {
			httpError(w, http.StatusBadGateway, "api_error", "upload failed: %s", outcome.Error)
			return
		}

		writeJSON(w, map[string]any{
			"success":    true,
			"filename":   outcome.Filename,
			"status":     outcome.Status,
			"store_name": store.Name,
			"category":   cat,
		})
	}
}

// saveUpload streams the multipart part to a temp file under dir and
// returns its path and size.
func saveUpload(dir, filename string, src io.Reader) (string, int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	dst, err := os.CreateTemp(dir, "upload-*-"+filepath.Base(filename))
	if err != nil {
		return "", 0, err
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(dst.Name())
		return "", 0, err
	}
	return dst.Name(), size, nil
}

func checkPDF(path string) error {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if reader.NumPage() < 1 {
		return errors.New("document has no pages")
	}
	return nil
}

type BulkUploadRequest struct {
	SourceDirectory string `json:"source_directory"`
	StoreName       string `json:"store_name"`
	AutoCategorize  *bool  `json:"auto_categorize"`
	ScanOnly        bool   `json:"scan_only"`
	BatchSize       int    `json:"batch_size"`
}

func handleBulkUpload(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBulkBodySize)
		defer r.Body.Close()

		var req BulkUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.SourceDirectory == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "source_directory is required")
			return
		}
		if req.StoreName == "" && !req.ScanOnly {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "store_name is required for upload")
			return
		}

		autoCategorize := true
		if req.AutoCategorize != nil {
			autoCategorize = *req.AutoCategorize
		}

		files, err := ingest.ScanDirectory(req.SourceDirectory, autoCategorize)
		if errors.Is(err, ingest.ErrDirectoryNotFound) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "directory not found: %s", req.SourceDirectory)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "error scanning directory: %v", err)
			return
		}

		dist := ingest.Distribution(files)

		if req.ScanOnly {
			writeJSON(w, map[string]any{
				"success":               true,
				"total":                 len(files),
				"files":                 files,
				"category_distribution": dist,
			})
			return
		}

		store, err := deps.Stores.Resolve(req.StoreName)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "store not found: %s", req.StoreName)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to resolve store: %v", err)
			return
		}

		uploader := deps.Uploader
		if req.BatchSize > 0 {
			uploader = uploader.WithBatchSize(req.BatchSize)
		}

		result, err := uploader.UploadBatch(r.Context(), files, store.ID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "bulk upload failed: %v", err)
			return
		}

		writeJSON(w, map[string]any{
			"success":               true,
			"total":                 result.Total,
			"success_count":         result.Success,
			"failed_count":          result.Failed,
			"skipped_count":         result.Skipped,
			"files":                 result.Files,
			"category_distribution": dist,
		})
	}
}

func handleListDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 200)
		offset := parseIntParam(r, "offset", 0, 0)
		storeID := r.URL.Query().Get("store_id")

		docs, err := deps.Store.ListDocuments(storeID, limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}
		if docs == nil {
			docs = []storage.Document{}
		}
		writeJSON(w, map[string]any{"documents": docs})
	}
}

func handleDeleteDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete document: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}
