package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
)

// resultBuffer is the capacity of the entry channel.
const resultBuffer = 256

// Windows error codes treated like permission-denied: access denied,
// sharing violation, file cannot be accessed, and the 1921 variant.
var windowsInaccessibleCodes = map[syscall.Errno]struct{}{
	5:    {},
	32:   {},
	1920: {},
	1921: {},
}

// Scanner discovers entries below a set of root directories.
type Scanner struct{}

// New creates a new Scanner instance.
func New() (*Scanner, error) {
	return &Scanner{}, nil
}

// walker holds the normalized options for a single Scan call.
type walker struct {
	maxDepth int
	skip     map[string]struct{}
	globs    []string
	follow   bool
	results  chan<- Entry
}

// Scan walks every root in order and streams entries as they are found.
// The channel is closed when all roots are done or ctx is cancelled.
// Per-entry errors never stop the walk.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan Entry, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	skipDirs := opts.SkipDirs
	if skipDirs == nil {
		skipDirs = DefaultSkipDirs
	}
	skip := make(map[string]struct{}, len(skipDirs))
	for _, name := range skipDirs {
		skip[strings.ToLower(name)] = struct{}{}
	}

	globs := make([]string, 0, len(opts.ExcludeGlobs))
	for _, pattern := range opts.ExcludeGlobs {
		pattern = normalizeGlobPath(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
		globs = append(globs, pattern)
	}

	results := make(chan Entry, resultBuffer)
	w := &walker{
		maxDepth: maxDepth,
		skip:     skip,
		globs:    globs,
		follow:   opts.FollowSymlinks,
		results:  results,
	}

	roots := append([]string(nil), opts.Roots...)

	go func() {
		defer close(results)
		for _, root := range roots {
			if ctx.Err() != nil {
				return
			}
			w.scanRoot(ctx, root)
		}
	}()

	return results, nil
}

func (w *walker) scanRoot(ctx context.Context, root string) {
	info, err := os.Stat(root)
	if err != nil {
		slog.Warn("scan_root_unavailable",
			slog.String("root", root),
			slog.String("error", err.Error()))
		return
	}
	if !info.IsDir() {
		slog.Warn("scan_root_not_directory", slog.String("root", root))
		return
	}

	slog.Info("scan_root_started", slog.String("root", root))
	w.visit(ctx, filepath.Clean(root), info, 0, nil)
}

// visit emits path and descends into it when it is a directory within
// the depth bound. Returns false once ctx is cancelled.
func (w *walker) visit(ctx context.Context, path string, info fs.FileInfo, depth int, ancestors []fs.FileInfo) bool {
	if ctx.Err() != nil {
		return false
	}

	if info.IsDir() && isLoop(info, ancestors) {
		slog.Warn("scan_walk_error",
			slog.String("path", path),
			slog.String("error", "file system loop found"))
		return true
	}

	if entry, ok := w.makeEntry(path, info, depth); ok {
		select {
		case w.results <- entry:
		case <-ctx.Done():
			return false
		}
	}

	if !info.IsDir() || depth >= w.maxDepth {
		return true
	}

	children, err := os.ReadDir(path)
	if err != nil {
		reportWalkError(path, err)
		return true
	}

	ancestors = append(ancestors, info)
	for _, child := range children {
		childPath := filepath.Join(path, child.Name())

		childInfo, err := w.stat(childPath, child)
		if err != nil {
			reportWalkError(childPath, err)
			continue
		}

		if childInfo.IsDir() {
			if w.pruneDir(child.Name(), childPath) {
				continue
			}
		} else if w.excluded(childPath) {
			continue
		}

		if !w.visit(ctx, childPath, childInfo, depth+1, ancestors) {
			return false
		}
	}
	return true
}

// stat resolves a directory entry. Symlinks are followed only when
// enabled; a dangling link surfaces as a not-found error.
func (w *walker) stat(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 && w.follow {
		return os.Stat(path)
	}
	return d.Info()
}

// pruneDir reports whether a directory is skipped before descent.
func (w *walker) pruneDir(name, path string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if _, ok := w.skip[strings.ToLower(name)]; ok {
		return true
	}
	return w.excluded(path)
}

// excluded reports whether path matches any exclude glob.
func (w *walker) excluded(path string) bool {
	if len(w.globs) == 0 {
		return false
	}
	normalized := normalizeGlobPath(path)
	for _, pattern := range w.globs {
		if ok, _ := doublestar.Match(pattern, normalized); ok {
			return true
		}
	}
	return false
}

// normalizeGlobPath lower-cases, slash-separates and drops the leading
// slash so patterns and paths compare segment by segment.
func normalizeGlobPath(p string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.ToSlash(p)), "/")
}

func (w *walker) makeEntry(path string, info fs.FileInfo, depth int) (Entry, bool) {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) || strings.HasSuffix(name, ":") {
		// Filesystem roots have no file name to index
		return Entry{}, false
	}

	ext := Extension(name)
	isDir := info.IsDir()

	var size int64
	if info.Mode().IsRegular() {
		size = info.Size()
	}

	var modified int64
	if t := info.ModTime(); !t.IsZero() && t.Unix() > 0 {
		modified = t.Unix()
	}

	return Entry{
		Filename:   name,
		Filepath:   path,
		Extension:  ext,
		FileSize:   size,
		ModifiedAt: modified,
		FileType:   ClassifyWithDir(ext, path, isDir),
		IsDir:      isDir,
		Depth:      depth,
	}, true
}

func isLoop(info fs.FileInfo, ancestors []fs.FileInfo) bool {
	for _, a := range ancestors {
		if os.SameFile(a, info) {
			return true
		}
	}
	return false
}

// reportWalkError logs unexpected traversal errors. Expected ones
// (permission denied, vanished entries, inaccessible system files) are
// dropped without a log line.
func reportWalkError(path string, err error) {
	if IsSkippable(err) {
		return
	}
	slog.Warn("scan_walk_error",
		slog.String("path", path),
		slog.String("error", err.Error()))
}

// IsSkippable reports whether err is an expected per-entry failure.
func IsSkippable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if runtime.GOOS != "windows" {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		_, ok := windowsInaccessibleCodes[errno]
		return ok
	}
	return false
}
