// Package index provides the indexing Runner: full and incremental passes
// that feed scanner output into the file store in batches.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/ancheck/internal/async"
	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
	"github.com/Aman-CERP/ancheck/internal/scanner"
	"github.com/Aman-CERP/ancheck/internal/store"
)

// DefaultBatchSize is the number of entries written per transaction.
const DefaultBatchSize = 500

// EntryScanner streams discovered entries.
type EntryScanner interface {
	Scan(ctx context.Context, opts *scanner.ScanOptions) (<-chan scanner.Entry, error)
}

// RunnerConfig configures indexing passes.
type RunnerConfig struct {
	// Scan holds the roots and walk options.
	Scan scanner.ScanOptions

	// BatchSize is the number of entries per UpsertBatch (0 = DefaultBatchSize).
	BatchSize int

	// Retry governs retries of a busy store during batch writes.
	Retry apperrors.RetryConfig
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Store receives the entries (required).
	Store store.FileStore

	// Scanner discovers entries (required).
	Scanner EntryScanner

	// Progress is updated during passes (optional).
	Progress *async.IndexProgress
}

// Runner executes indexing passes. It does not guard against concurrent
// passes; callers serialize them.
type Runner struct {
	store    store.FileStore
	scanner  EntryScanner
	progress *async.IndexProgress
	config   RunnerConfig
	now      func() time.Time
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies, cfg RunnerConfig) (*Runner, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retry.RetryIf == nil && cfg.Retry.MaxRetries == 0 {
		cfg.Retry = apperrors.DefaultRetryConfig()
	}

	progress := deps.Progress
	if progress == nil {
		progress = async.NewIndexProgress()
	}

	return &Runner{
		store:    deps.Store,
		scanner:  deps.Scanner,
		progress: progress,
		config:   cfg,
		now:      time.Now,
	}, nil
}

// Progress returns the tracker updated by this runner.
func (r *Runner) Progress() *async.IndexProgress {
	return r.progress
}

// walkResult summarizes one walk.
type walkResult struct {
	indexed       int
	failedBatches int
}

// FullIndex walks every root and upserts all entries. It returns the
// number of entries processed, including entries of batches that failed.
func (r *Runner) FullIndex(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	start := time.Now()
	r.progress.Begin(runID)

	slog.Info("index_full_started",
		slog.String("run_id", runID),
		slog.Int("roots", len(r.config.Scan.Roots)))

	res, err := r.walk(ctx, runID)
	if err != nil {
		return r.fail(runID, "full", res.indexed, err)
	}

	if err := r.stamp(ctx, store.MetaKeyLastFullIndex); err != nil {
		return r.fail(runID, "full", res.indexed, err)
	}

	r.progress.SetReady()
	slog.Info("index_full_completed",
		slog.String("run_id", runID),
		slog.Int("indexed", res.indexed),
		slog.Int("failed_batches", res.failedBatches),
		slog.Duration("duration", time.Since(start)))

	return res.indexed, nil
}

// IncrementalIndex removes rows for vanished paths, then performs a
// complete walk. It is not a differential scan.
func (r *Runner) IncrementalIndex(ctx context.Context) (indexed, removed int, err error) {
	runID := uuid.NewString()
	start := time.Now()
	r.progress.Begin(runID)
	r.progress.SetStage(async.StageReconciling)

	slog.Info("index_incremental_started", slog.String("run_id", runID))

	removed, err = r.store.ReconcileMissing(ctx)
	if err != nil {
		_, err = r.fail(runID, "incremental", 0, err)
		return 0, 0, err
	}
	r.progress.SetRemoved(removed)
	r.progress.SetStage(async.StageScanning)

	res, err := r.walk(ctx, runID)
	if err != nil {
		_, err = r.fail(runID, "incremental", res.indexed, err)
		return res.indexed, removed, err
	}

	if err := r.stamp(ctx, store.MetaKeyLastFullIndex); err != nil {
		_, err = r.fail(runID, "incremental", res.indexed, err)
		return res.indexed, removed, err
	}
	if err := r.stamp(ctx, store.MetaKeyLastIncrementalIndex); err != nil {
		_, err = r.fail(runID, "incremental", res.indexed, err)
		return res.indexed, removed, err
	}

	r.progress.SetReady()
	slog.Info("index_incremental_completed",
		slog.String("run_id", runID),
		slog.Int("indexed", res.indexed),
		slog.Int("removed", removed),
		slog.Int("failed_batches", res.failedBatches),
		slog.Duration("duration", time.Since(start)))

	return res.indexed, removed, nil
}

// walk consumes the scanner stream, flushing full batches as they fill
// and the remainder at the end. A failed flush is logged and skipped.
func (r *Runner) walk(ctx context.Context, runID string) (walkResult, error) {
	var res walkResult

	opts := r.config.Scan
	entries, err := r.scanner.Scan(ctx, &opts)
	if err != nil {
		return res, apperrors.New(apperrors.ErrCodeIndexFailed, "failed to start scan", err)
	}

	batch := make([]*store.FileEntry, 0, r.config.BatchSize)
	for e := range entries {
		batch = append(batch, e.ToFileEntry())
		if len(batch) < r.config.BatchSize {
			continue
		}
		res.indexed += len(batch)
		if !r.flush(ctx, runID, batch) {
			res.failedBatches++
		}
		r.progress.UpdateFiles(res.indexed)
		batch = make([]*store.FileEntry, 0, r.config.BatchSize)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	if len(batch) > 0 {
		r.progress.SetStage(async.StageWriting)
		res.indexed += len(batch)
		if !r.flush(ctx, runID, batch) {
			res.failedBatches++
		}
		r.progress.UpdateFiles(res.indexed)
	}

	return res, nil
}

// flush writes one batch, retrying while the store reports busy.
func (r *Runner) flush(ctx context.Context, runID string, batch []*store.FileEntry) bool {
	err := apperrors.Retry(ctx, r.config.Retry, func() error {
		return r.store.UpsertBatch(ctx, batch)
	})
	if err != nil {
		slog.Warn("index_batch_failed",
			slog.String("run_id", runID),
			slog.Int("size", len(batch)),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

func (r *Runner) stamp(ctx context.Context, key string) error {
	return r.store.SetMeta(ctx, key, strconv.FormatInt(r.now().Unix(), 10))
}

func (r *Runner) fail(runID, kind string, indexed int, err error) (int, error) {
	r.progress.SetError(err.Error())
	slog.Error("index_failed",
		slog.String("run_id", runID),
		slog.String("kind", kind),
		slog.Int("indexed", indexed),
		slog.String("error", err.Error()))
	return indexed, err
}

// LastRun returns the time stored under a last-index meta key, or the
// zero time if no pass has recorded one.
func LastRun(ctx context.Context, st store.FileStore, key string) (time.Time, error) {
	value, ok, err := st.GetMeta(ctx, key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, apperrors.New(apperrors.ErrCodeStoreQuery,
			fmt.Sprintf("invalid timestamp for %s", key), err)
	}
	return time.Unix(secs, 0), nil
}
