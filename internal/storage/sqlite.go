package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for stores, documents, and
// query history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "docvault.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	// Foreign keys must be on for store -> documents cascade deletes.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle. Used by tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// nullable maps empty strings to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// --- Stores ---

func (s *Store) CreateStore(rec StoreRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO stores (id, name, remote_name, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.RemoteName, nullable(rec.DisplayName),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) scanStore(row *sql.Row) (StoreRecord, error) {
	var rec StoreRecord
	var displayName sql.NullString
	var createdAt string
	err := row.Scan(&rec.ID, &rec.Name, &rec.RemoteName, &displayName, &createdAt)
	if err == sql.ErrNoRows {
		return StoreRecord{}, ErrNotFound
	}
	if err != nil {
		return StoreRecord{}, err
	}
	rec.DisplayName = displayName.String
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return StoreRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	rec.CreatedAt = t
	return rec, nil
}

func (s *Store) GetStore(id string) (StoreRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, name, remote_name, display_name, created_at
		FROM stores WHERE id = ?`, id)
	return s.scanStore(row)
}

func (s *Store) GetStoreByName(name string) (StoreRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, name, remote_name, display_name, created_at
		FROM stores WHERE name = ?`, name)
	return s.scanStore(row)
}

func (s *Store) ListStores() ([]StoreRecord, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.name, s.remote_name, s.display_name, s.created_at,
			COUNT(d.id)
		FROM stores s
		LEFT JOIN documents d ON d.store_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StoreRecord
	for rows.Next() {
		var rec StoreRecord
		var displayName sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.RemoteName, &displayName, &createdAt, &rec.DocumentCount); err != nil {
			return nil, err
		}
		rec.DisplayName = displayName.String
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		rec.CreatedAt = t
		results = append(results, rec)
	}
	return results, rows.Err()
}

// DeleteStore removes a store. Its documents go with it via the cascade.
func (s *Store) DeleteStore(id string) error {
	res, err := s.db.Exec(`DELETE FROM stores WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Documents ---

const documentColumns = `id, store_id, filename, category, source_path, remote_file_id, size_bytes, uploaded_at`

func scanDocument(scan func(dest ...any) error) (Document, error) {
	var d Document
	var storeID, category, sourcePath, remoteFileID sql.NullString
	var sizeBytes sql.NullInt64
	var uploadedAt string
	if err := scan(&d.ID, &storeID, &d.Filename, &category, &sourcePath, &remoteFileID, &sizeBytes, &uploadedAt); err != nil {
		return Document{}, err
	}
	d.StoreID = storeID.String
	d.Category = category.String
	d.SourcePath = sourcePath.String
	d.RemoteFileID = remoteFileID.String
	d.SizeBytes = sizeBytes.Int64
	t, err := time.Parse(time.RFC3339, uploadedAt)
	if err != nil {
		return Document{}, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	d.UploadedAt = t
	return d, nil
}

// SaveDocument inserts a document record outside of any batch. Used by the
// single-file upload path.
func (s *Store) SaveDocument(d Document) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, nullable(d.StoreID), d.Filename, nullable(d.Category),
		nullable(d.SourcePath), nullable(d.RemoteFileID), d.SizeBytes,
		d.UploadedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// DocumentExists reports whether a document with the given filename is
// already recorded for the store.
func (s *Store) DocumentExists(storeID, filename string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE store_id = ? AND filename = ?`,
		storeID, filename,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetDocument(id string) (Document, error) {
	row := s.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	return d, err
}

// ListDocuments returns documents for a store in upload order. Pass an empty
// storeID to list documents across all stores.
func (s *Store) ListDocuments(storeID string, limit, offset int) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	args := []any{}
	if storeID != "" {
		query += ` WHERE store_id = ?`
		args = append(args, storeID)
	}
	query += ` ORDER BY uploaded_at ASC, id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

func (s *Store) DeleteDocument(id string) error {
	res, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryCounts returns per-category document counts across all stores.
// Uncategorized documents (NULL or empty category) are excluded.
func (s *Store) CategoryCounts() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT category, COUNT(id)
		FROM documents
		WHERE category IS NOT NULL AND category != ''
		GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

// CountDocumentsInCategories counts a store's documents whose category is
// in the given set. An empty set counts nothing.
func (s *Store) CountDocumentsInCategories(storeID string, categories []string) (int, error) {
	if len(categories) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(categories))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(categories)+1)
	args = append(args, storeID)
	for _, c := range categories {
		args = append(args, c)
	}

	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(id) FROM documents WHERE store_id = ? AND category IN (`+placeholders+`)`,
		args...,
	).Scan(&count)
	return count, err
}

// --- Query history ---

func (s *Store) SaveQueryRecord(q QueryRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO query_history (id, store_id, question, answer, mode, category_filter, created_at, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, nullable(q.StoreID), q.Question, nullable(q.Answer), nullable(q.Mode),
		nullable(q.CategoryFilter), q.CreatedAt.UTC().Format(time.RFC3339), q.ElapsedMS,
	)
	return err
}

func (s *Store) ListQueryHistory(limit, offset int) ([]QueryRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, store_id, question, answer, mode, category_filter, created_at, elapsed_ms
		FROM query_history ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []QueryRecord
	for rows.Next() {
		var q QueryRecord
		var storeID, answer, mode, categoryFilter sql.NullString
		var createdAt string
		if err := rows.Scan(&q.ID, &storeID, &q.Question, &answer, &mode, &categoryFilter, &createdAt, &q.ElapsedMS); err != nil {
			return nil, err
		}
		q.StoreID = storeID.String
		q.Answer = answer.String
		q.Mode = mode.String
		q.CategoryFilter = categoryFilter.String
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		q.CreatedAt = t
		results = append(results, q)
	}
	return results, rows.Err()
}
