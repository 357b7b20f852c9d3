// Package scanner discovers filesystem entries under a set of root
// directories for the file index. It applies the depth bound, the
// directory skip-list and the exclude globs, and classifies every entry.
package scanner

import (
	"github.com/Aman-CERP/ancheck/internal/store"
)

// DefaultMaxDepth bounds traversal below each root.
const DefaultMaxDepth = 6

// DefaultSkipDirs are directory names (case-insensitive) never descended into.
var DefaultSkipDirs = []string{
	"node_modules",
	".git",
	".svn",
	"__pycache__",
	".cache",
	"cache",
	".tmp",
	"temp",
	"$recycle.bin",
	"system volume information",
	"windows",
	"appdata",
}

// Entry is a discovered filesystem entry.
type Entry struct {
	Filename   string         // Last path component
	Filepath   string         // Full path as reached from the root
	Extension  string         // Lower-cased, without the dot
	FileSize   int64          // 0 unless a regular file
	ModifiedAt int64          // Epoch seconds, 0 if unavailable
	FileType   store.FileType // Classifier output
	IsDir      bool
	Depth      int // 0 for the root itself
}

// ToFileEntry converts the entry into its persisted form.
func (e *Entry) ToFileEntry() *store.FileEntry {
	return &store.FileEntry{
		Filename:   e.Filename,
		Filepath:   e.Filepath,
		Extension:  e.Extension,
		FileSize:   e.FileSize,
		ModifiedAt: e.ModifiedAt,
		FileType:   e.FileType,
	}
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// Roots are the directories to walk, in order. Roots that do not
	// exist are skipped with a warning.
	Roots []string

	// MaxDepth bounds depth below each root (0 = DefaultMaxDepth).
	MaxDepth int

	// SkipDirs lists directory names to prune (nil = DefaultSkipDirs).
	SkipDirs []string

	// ExcludeGlobs are doublestar patterns matched against the
	// slash-separated, lower-cased full path.
	ExcludeGlobs []string

	// FollowSymlinks descends into symlinked directories and reports
	// the target's metadata for symlinked files.
	FollowSymlinks bool
}
