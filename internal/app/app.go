// Package app is the host boundary: the operations a front-end (CLI,
// terminal picker, MCP server) invokes against the index.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/ancheck/internal/async"
	"github.com/Aman-CERP/ancheck/internal/calc"
	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
	"github.com/Aman-CERP/ancheck/internal/index"
	"github.com/Aman-CERP/ancheck/internal/launcher"
	"github.com/Aman-CERP/ancheck/internal/search"
	"github.com/Aman-CERP/ancheck/internal/store"
	"github.com/Aman-CERP/ancheck/internal/telemetry"
)

// Indexer runs index passes.
type Indexer interface {
	FullIndex(ctx context.Context) (int, error)
	IncrementalIndex(ctx context.Context) (indexed, removed int, err error)
	Progress() *async.IndexProgress
}

// Searcher ranks entries for a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]*search.SearchResult, error)
}

// Dependencies contains the injected collaborators of App.
type Dependencies struct {
	Store    store.FileStore         // required
	Indexer  Indexer                 // required
	Searcher Searcher                // required
	Launcher launcher.Launcher       // required
	Metrics  *telemetry.QueryMetrics // optional
}

// Options configures App.
type Options struct {
	// MaxResults caps Search (0 = search.DefaultMaxResults).
	MaxResults int

	// LockPath is the cross-process index lock file. Empty disables it.
	LockPath string

	// DBPath is reported by Status.
	DBPath string

	// Background configures the periodic incremental loop.
	Background async.IndexerConfig
}

// App owns the store and coordinates index passes with searches.
// Searches never wait on an index pass.
type App struct {
	store    store.FileStore
	indexer  Indexer
	searcher Searcher
	launcher launcher.Launcher
	metrics  *telemetry.QueryMetrics
	opts     Options

	gate     async.Gate
	lock     *async.FileLock
	progress *async.IndexProgress

	mu         sync.Mutex
	background *async.BackgroundIndexer
	closed     bool
}

// New creates an App from its collaborators.
func New(deps Dependencies, opts Options) (*App, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("store is required")
	case deps.Indexer == nil:
		return nil, fmt.Errorf("indexer is required")
	case deps.Searcher == nil:
		return nil, fmt.Errorf("searcher is required")
	case deps.Launcher == nil:
		return nil, fmt.Errorf("launcher is required")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = search.DefaultMaxResults
	}

	a := &App{
		store:    deps.Store,
		indexer:  deps.Indexer,
		searcher: deps.Searcher,
		launcher: deps.Launcher,
		metrics:  deps.Metrics,
		opts:     opts,
		progress: deps.Indexer.Progress(),
	}
	if opts.LockPath != "" {
		a.lock = async.NewFileLock(opts.LockPath)
	}
	return a, nil
}

// Search returns ranked results capped at the configured maximum.
func (a *App) Search(ctx context.Context, query string) ([]*search.SearchResult, error) {
	return a.SearchN(ctx, query, a.opts.MaxResults)
}

// SearchN returns at most limit results; limit <= 0 uses the default cap.
func (a *App) SearchN(ctx context.Context, query string, limit int) ([]*search.SearchResult, error) {
	if limit <= 0 {
		limit = a.opts.MaxResults
	}
	results, err := a.searcher.Search(ctx, query, limit)
	if err != nil {
		slog.Error("search_failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil, err
	}
	return results, nil
}

// EvalMath evaluates a calculator query. ok is false when query is not
// arithmetic.
func (a *App) EvalMath(query string) (result string, ok bool) {
	start := time.Now()
	result, ok = calc.Evaluate(query)
	if ok && a.metrics != nil {
		a.metrics.Record(telemetry.QueryEvent{
			Query:       query,
			QueryType:   telemetry.QueryTypeMath,
			ResultCount: 1,
			Latency:     time.Since(start),
		})
	}
	return result, ok
}

// LaunchFile records a click for path and opens it. A failure to record
// the click is logged and does not prevent the launch.
func (a *App) LaunchFile(ctx context.Context, path string) error {
	if err := a.store.RecordClick(ctx, path); err != nil {
		slog.Warn("record_click_failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	return a.launcher.Launch(path)
}

// OpenContainingFolder reveals path in the file manager.
func (a *App) OpenContainingFolder(path string) error {
	return a.launcher.Reveal(path)
}

// RebuildIndex runs a full pass. It fails immediately with
// ErrIndexingInProgress when another pass holds the gate or, across
// processes, the lock file.
func (a *App) RebuildIndex(ctx context.Context) (int, error) {
	release, err := a.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	return a.indexer.FullIndex(ctx)
}

// IncrementalIndex reconciles deletions and re-walks, under the same
// exclusion as RebuildIndex.
func (a *App) IncrementalIndex(ctx context.Context) (indexed, removed int, err error) {
	release, err := a.acquire()
	if err != nil {
		return 0, 0, err
	}
	defer release()

	return a.indexer.IncrementalIndex(ctx)
}

// acquire takes the in-process gate and then the lock file.
func (a *App) acquire() (func(), error) {
	if a.isClosed() {
		return nil, apperrors.ErrStoreClosed
	}

	release, ok := a.gate.TryAcquire()
	if !ok {
		return nil, indexingInProgress()
	}
	if a.lock == nil {
		return release, nil
	}

	locked, err := a.lock.TryLock()
	if err != nil {
		release()
		return nil, apperrors.New(apperrors.ErrCodeIndexFailed, "failed to acquire index lock", err).
			WithDetail("lock", a.lock.Path())
	}
	if !locked {
		release()
		return nil, indexingInProgress().WithDetail("lock", a.lock.Path())
	}

	return func() {
		if err := a.lock.Unlock(); err != nil {
			slog.Warn("index_lock_release_failed", slog.String("error", err.Error()))
		}
		release()
	}, nil
}

func indexingInProgress() *apperrors.AncheckError {
	return apperrors.New(apperrors.ErrCodeIndexingInProgress, apperrors.ErrIndexingInProgress.Message, nil)
}

// GetIndexCount returns the number of indexed entries.
func (a *App) GetIndexCount(ctx context.Context) (int64, error) {
	return a.store.Count(ctx)
}

// IsIndexing reports whether a pass is running in this process.
func (a *App) IsIndexing() bool {
	return a.gate.Busy()
}

// Status is a point-in-time view of the index.
type Status struct {
	Count                int64                       `json:"count"`
	Indexing             bool                        `json:"indexing"`
	LastFullIndex        time.Time                   `json:"last_full_index"`
	LastIncrementalIndex time.Time                   `json:"last_incremental_index"`
	DBPath               string                      `json:"db_path,omitempty"`
	Progress             async.IndexProgressSnapshot `json:"progress"`
}

// Status reports entry count, indexing state and last pass times.
func (a *App) Status(ctx context.Context) (*Status, error) {
	count, err := a.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	lastFull, err := index.LastRun(ctx, a.store, store.MetaKeyLastFullIndex)
	if err != nil {
		return nil, err
	}
	lastIncr, err := index.LastRun(ctx, a.store, store.MetaKeyLastIncrementalIndex)
	if err != nil {
		return nil, err
	}

	return &Status{
		Count:                count,
		Indexing:             a.IsIndexing(),
		LastFullIndex:        lastFull,
		LastIncrementalIndex: lastIncr,
		DBPath:               a.opts.DBPath,
		Progress:             a.progress.Snapshot(),
	}, nil
}

// Metrics returns the query metrics collector, or nil when disabled.
func (a *App) Metrics() *telemetry.QueryMetrics {
	return a.metrics
}

// Progress returns the live progress of the current or last pass.
func (a *App) Progress() *async.IndexProgress {
	return a.progress
}

// StartBackground launches the periodic incremental loop, optionally
// preceded by a full pass. Passes that find the gate busy are skipped.
// Calling it again returns the running indexer.
func (a *App) StartBackground(ctx context.Context, initialFull bool) *async.BackgroundIndexer {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.background != nil {
		return a.background
	}

	cfg := a.opts.Background
	cfg.InitialFull = initialFull
	bg := async.NewBackgroundIndexer(cfg)
	bg.FullFunc = func(ctx context.Context) error {
		_, err := a.RebuildIndex(ctx)
		return err
	}
	bg.IncrementalFunc = func(ctx context.Context) error {
		_, _, err := a.IncrementalIndex(ctx)
		return err
	}
	bg.Start(ctx)

	a.background = bg
	return bg
}

func (a *App) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Close stops the background loop, flushes metrics and closes the store.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	bg := a.background
	a.mu.Unlock()

	if bg != nil {
		bg.Stop()
		bg.Wait()
	}

	var firstErr error
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			slog.Warn("telemetry_close_failed", slog.String("error", err.Error()))
		}
	}
	if err := a.store.Close(); err != nil {
		firstErr = err
	}
	return firstErr
}
