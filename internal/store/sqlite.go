package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
)

// SQLiteFileStore implements FileStore using a single SQLite connection.
// Readers and writers share one mutex; WAL mode keeps other processes
// reading while a batch is being committed.
type SQLiteFileStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool

	// now is swapped in tests to pin click timestamps.
	now func() time.Time
}

// Verify interface implementation at compile time
var _ FileStore = (*SQLiteFileStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	filepath TEXT NOT NULL UNIQUE,
	extension TEXT NOT NULL DEFAULT '',
	file_size INTEGER NOT NULL DEFAULT 0,
	modified_at INTEGER NOT NULL DEFAULT 0,
	file_type TEXT NOT NULL DEFAULT 'other',
	click_count INTEGER NOT NULL DEFAULT 0,
	last_accessed INTEGER NOT NULL DEFAULT 0,
	icon_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_filename ON files(filename);
CREATE INDEX IF NOT EXISTS idx_filepath ON files(filepath);
CREATE INDEX IF NOT EXISTS idx_extension ON files(extension);
CREATE INDEX IF NOT EXISTS idx_file_type ON files(file_type);
CREATE INDEX IF NOT EXISTS idx_click_count ON files(click_count DESC);
CREATE INDEX IF NOT EXISTS idx_modified_at ON files(modified_at DESC);

CREATE TABLE IF NOT EXISTS index_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const upsertSQL = `
INSERT INTO files (filename, filepath, extension, file_size, modified_at, file_type)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(filepath) DO UPDATE SET
	filename = excluded.filename,
	file_size = excluded.file_size,
	modified_at = excluded.modified_at,
	file_type = excluded.file_type`

// searchSQL ranks by match tier, then type priority, then usage.
// ?1 is the raw query, ?2 the escaped prefix pattern, ?3 the escaped
// substring pattern.
const searchSQL = `
SELECT id, filename, filepath, extension, file_size, modified_at,
       file_type, click_count, last_accessed, icon_path,
       CASE
           WHEN LOWER(filename) = LOWER(?1) THEN 100
           WHEN LOWER(filename) LIKE LOWER(?2) ESCAPE '\' THEN 75
           WHEN LOWER(filename) LIKE LOWER(?3) ESCAPE '\' THEN 50
           WHEN LOWER(filepath) LIKE LOWER(?3) ESCAPE '\' THEN 25
           ELSE 0
       END AS match_score
FROM files
WHERE LOWER(filename) LIKE LOWER(?3) ESCAPE '\'
   OR LOWER(filepath) LIKE LOWER(?3) ESCAPE '\'
ORDER BY
    match_score DESC,
    CASE file_type
        WHEN 'app' THEN 5
        WHEN 'shortcut' THEN 4
        WHEN 'document' THEN 3
        WHEN 'folder' THEN 2
        ELSE 1
    END DESC,
    click_count DESC,
    last_accessed DESC,
    modified_at DESC
LIMIT ?4`

// searchPrealloc bounds the result slice capacity taken from the limit.
const searchPrealloc = 256

const selectEntryColumns = `id, filename, filepath, extension, file_size, modified_at,
       file_type, click_count, last_accessed, icon_path`

// ValidateIntegrity runs PRAGMA integrity_check on an existing index file.
// Returns nil if the file is absent or healthy.
func ValidateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteFileStore opens or creates the index database at path.
// If path is empty, an in-memory store is created for testing.
func NewSQLiteFileStore(path string) (*SQLiteFileStore, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		// The index only mirrors the filesystem, so a corrupt file is
		// dropped and rebuilt by the next pass.
		if validErr := ValidateIntegrity(path); validErr != nil {
			slog.Warn("file_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, apperrors.New(apperrors.ErrCodeCorruptIndex,
					fmt.Sprintf("index corrupted at %s and cannot be removed", path), removeErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("file_index_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, reindex required"))
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreOpen, "failed to open database", err)
	}

	// One connection is the single access point for every reader and writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // ~64MB (negative = KB)
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456", // 256MB
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, apperrors.New(apperrors.ErrCodeStoreOpen, "failed to set pragma", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, apperrors.New(apperrors.ErrCodeStoreOpen, "failed to initialize schema", err)
	}

	return &SQLiteFileStore{
		db:   db,
		path: path,
		now:  time.Now,
	}, nil
}

// Path returns the database file path (empty for in-memory stores).
func (s *SQLiteFileStore) Path() string {
	return s.path
}

// DB exposes the underlying connection so auxiliary tables (telemetry)
// can live in the same file.
func (s *SQLiteFileStore) DB() *sql.DB {
	return s.db
}

// Upsert inserts or refreshes a single entry.
func (s *SQLiteFileStore) Upsert(ctx context.Context, entry *FileEntry) error {
	if entry == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperrors.ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, upsertSQL, entryArgs(entry)...); err != nil {
		return storeErr("failed to upsert file", err)
	}
	return nil
}

// UpsertBatch writes all entries in one transaction.
func (s *SQLiteFileStore) UpsertBatch(ctx context.Context, entries []*FileEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperrors.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return storeErr("failed to prepare upsert statement", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, entryArgs(entry)...); err != nil {
			return storeErr(fmt.Sprintf("failed to upsert %s", entry.Filepath), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("failed to commit batch", err)
	}
	return nil
}

// Search runs the SQL prefilter.
func (s *SQLiteFileStore) Search(ctx context.Context, queryLower string, limit int) ([]*FileEntry, error) {
	if limit <= 0 {
		return []*FileEntry{}, nil
	}

	escaped := escapeLike(queryLower)
	prefix := escaped + "%"
	substring := "%" + escaped + "%"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, searchSQL, queryLower, prefix, substring, limit)
	if err != nil {
		return nil, storeErr("failed to search files", err)
	}
	defer rows.Close()

	results := make([]*FileEntry, 0, min(limit, searchPrealloc))
	for rows.Next() {
		var matchScore int
		entry, err := scanEntry(rows, &matchScore)
		if err != nil {
			return nil, storeErr("failed to scan search row", err)
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to read search rows", err)
	}

	return results, nil
}

// RecordClick bumps usage statistics for filepath.
func (s *SQLiteFileStore) RecordClick(ctx context.Context, filepath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperrors.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET click_count = click_count + 1, last_accessed = ? WHERE filepath = ?`,
		s.now().Unix(), filepath)
	if err != nil {
		return storeErr("failed to record click", err)
	}
	return nil
}

// ReconcileMissing stats every stored path and deletes vanished ones.
// The lock is held for the whole scan.
func (s *SQLiteFileStore) ReconcileMissing(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, apperrors.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT filepath FROM files`)
	if err != nil {
		return 0, storeErr("failed to list file paths", err)
	}

	var missing []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, storeErr("failed to scan file path", err)
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			missing = append(missing, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, storeErr("failed to read file paths", err)
	}
	rows.Close()

	if len(missing) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM files WHERE filepath = ?`)
	if err != nil {
		return 0, storeErr("failed to prepare delete statement", err)
	}
	defer stmt.Close()

	removed := 0
	for _, path := range missing {
		res, err := stmt.ExecContext(ctx, path)
		if err != nil {
			return 0, storeErr(fmt.Sprintf("failed to delete %s", path), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr("failed to commit removals", err)
	}
	return removed, nil
}

// Count returns the number of indexed rows.
func (s *SQLiteFileStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, apperrors.ErrStoreClosed
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&count); err != nil {
		return 0, storeErr("failed to count files", err)
	}
	return count, nil
}

// GetMeta reads a bookkeeping value.
func (s *SQLiteFileStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, apperrors.ErrStoreClosed
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("failed to get meta "+key, err)
	}
	return value, true, nil
}

// SetMeta writes a bookkeeping value.
func (s *SQLiteFileStore) SetMeta(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperrors.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO index_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return storeErr("failed to set meta "+key, err)
	}
	return nil
}

// ListAll reads every row's searchable fields.
func (s *SQLiteFileStore) ListAll(ctx context.Context) ([]*ListedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, filepath, file_type, click_count, last_accessed, modified_at FROM files`)
	if err != nil {
		return nil, storeErr("failed to list files", err)
	}
	defer rows.Close()

	var entries []*ListedEntry
	for rows.Next() {
		e := &ListedEntry{}
		var fileType string
		if err := rows.Scan(&e.ID, &e.Filename, &e.Filepath, &fileType,
			&e.ClickCount, &e.LastAccessed, &e.ModifiedAt); err != nil {
			return nil, storeErr("failed to scan file", err)
		}
		e.FileType = FileType(fileType)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to read files", err)
	}
	return entries, nil
}

// GetByID returns one entry, or nil if id is unknown.
func (s *SQLiteFileStore) GetByID(ctx context.Context, id int64) (*FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectEntryColumns+` FROM files WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to get file", err)
	}
	return entry, nil
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner, extra ...any) (*FileEntry, error) {
	e := &FileEntry{}
	var fileType string
	var icon sql.NullString
	dest := []any{&e.ID, &e.Filename, &e.Filepath, &e.Extension, &e.FileSize,
		&e.ModifiedAt, &fileType, &e.ClickCount, &e.LastAccessed, &icon}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.FileType = FileType(fileType)
	e.IconPath = icon.String
	return e, nil
}

func entryArgs(e *FileEntry) []any {
	fileType := e.FileType
	if fileType == "" {
		fileType = FileTypeOther
	}
	return []any{e.Filename, e.Filepath, e.Extension, e.FileSize, e.ModifiedAt, string(fileType)}
}

// escapeLike escapes LIKE metacharacters so they match literally under
// ESCAPE '\'. The escape character itself is doubled first so Windows
// path separators survive.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// storeErr converts a driver error into a coded storage error.
// Lock contention is reported as retryable.
func storeErr(message string, err error) error {
	if isBusy(err) {
		return apperrors.New(apperrors.ErrCodeStoreBusy, message, err)
	}
	return apperrors.New(apperrors.ErrCodeStoreQuery, message, err)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
