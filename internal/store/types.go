// Package store provides the persistent file index (SQLite).
// This is the persistence layer for all indexed entries and usage statistics.
package store

import (
	"context"
)

// FileType is the category assigned to an entry by the classifier.
type FileType string

const (
	FileTypeApp      FileType = "app"
	FileTypeShortcut FileType = "shortcut"
	FileTypeFolder   FileType = "folder"
	FileTypeDocument FileType = "document"
	FileTypeImage    FileType = "image"
	FileTypeCode     FileType = "code"
	FileTypeOther    FileType = "other"
)

// Metadata keys written by the indexer.
const (
	// MetaKeyLastFullIndex stores epoch seconds of the last full pass.
	MetaKeyLastFullIndex = "last_full_index"
	// MetaKeyLastIncrementalIndex stores epoch seconds of the last incremental pass.
	MetaKeyLastIncrementalIndex = "last_incremental_index"
)

// FileEntry is a single indexed filesystem entry.
type FileEntry struct {
	ID         int64    `json:"id"`
	Filename   string   `json:"filename"`
	Filepath   string   `json:"filepath"`
	Extension  string   `json:"extension"`
	FileSize   int64    `json:"file_size"`
	ModifiedAt int64    `json:"modified_at"`
	FileType   FileType `json:"file_type"`

	// Usage statistics. Never touched by indexing.
	ClickCount   int64 `json:"click_count"`
	LastAccessed int64 `json:"last_accessed"`

	// IconPath is filled by external enrichment, never by the indexer.
	IconPath string `json:"icon_path,omitempty"`
}

// ListedEntry is the searchable projection of a row returned by ListAll.
type ListedEntry struct {
	ID           int64
	Filename     string
	Filepath     string
	FileType     FileType
	ClickCount   int64
	LastAccessed int64
	ModifiedAt   int64
}

// FileStore persists indexed entries and index bookkeeping.
// All access is serialized through a single connection.
type FileStore interface {
	// Upsert inserts an entry or, on filepath conflict, refreshes its
	// filename, size, modified time and type. Usage stats are preserved.
	Upsert(ctx context.Context, entry *FileEntry) error

	// UpsertBatch applies Upsert to every entry in one transaction.
	// Either all entries are written or none are.
	UpsertBatch(ctx context.Context, entries []*FileEntry) error

	// Search returns up to limit entries whose filename or filepath
	// contains queryLower, in tier/type/usage order.
	Search(ctx context.Context, queryLower string, limit int) ([]*FileEntry, error)

	// RecordClick bumps the click counter and access time of filepath.
	// Unknown paths are ignored.
	RecordClick(ctx context.Context, filepath string) error

	// ReconcileMissing deletes rows whose path no longer exists on disk
	// and returns how many were removed.
	ReconcileMissing(ctx context.Context) (int, error)

	// Count returns the number of indexed rows.
	Count(ctx context.Context) (int64, error)

	// GetMeta returns the value stored under key.
	GetMeta(ctx context.Context, key string) (string, bool, error)

	// SetMeta stores value under key, replacing any previous value.
	SetMeta(ctx context.Context, key, value string) error

	// ListAll returns every row's searchable fields.
	ListAll(ctx context.Context) ([]*ListedEntry, error)

	// GetByID returns the entry with id, or nil if there is none.
	GetByID(ctx context.Context, id int64) (*FileEntry, error)

	// Close checkpoints the WAL and releases the connection.
	Close() error
}
