package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
)

const (
	// DefaultInitialDelay is the wait before the first incremental pass.
	DefaultInitialDelay = 120 * time.Second
	// DefaultInterval is the period between incremental passes.
	DefaultInterval = 300 * time.Second
)

// IndexFunc performs one indexing pass.
type IndexFunc func(ctx context.Context) error

// IndexerConfig configures the BackgroundIndexer.
type IndexerConfig struct {
	// InitialFull runs FullFunc once as soon as the loop starts.
	InitialFull bool

	// InitialDelay is the wait before the first incremental pass.
	InitialDelay time.Duration

	// Interval is the period between incremental passes (0 = DefaultInterval).
	Interval time.Duration
}

// DefaultIndexerConfig returns the standard schedule.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		InitialFull:  true,
		InitialDelay: DefaultInitialDelay,
		Interval:     DefaultInterval,
	}
}

// BackgroundIndexer keeps the index fresh from a background goroutine:
// an optional initial full pass, then incremental passes on a fixed period.
type BackgroundIndexer struct {
	config IndexerConfig

	// FullFunc runs the initial full pass.
	FullFunc IndexFunc

	// IncrementalFunc runs each periodic pass.
	IncrementalFunc IndexFunc

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
	running bool
	passes  int
	lastErr error
}

// NewBackgroundIndexer creates a new background indexer.
func NewBackgroundIndexer(cfg IndexerConfig) *BackgroundIndexer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	return &BackgroundIndexer{
		config: cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// IsRunning returns true while the loop goroutine is alive.
func (b *BackgroundIndexer) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Passes returns how many passes have completed, successful or not.
func (b *BackgroundIndexer) Passes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.passes
}

// LastError returns the error of the most recent failed pass.
func (b *BackgroundIndexer) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Start launches the loop. It is non-blocking and only effective once.
func (b *BackgroundIndexer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.running = true
	b.mu.Unlock()

	go b.run(ctx)
}

func (b *BackgroundIndexer) run(ctx context.Context) {
	defer close(b.doneCh)
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("background_indexer_started",
		slog.Bool("initial_full", b.config.InitialFull),
		slog.Duration("initial_delay", b.config.InitialDelay),
		slog.Duration("interval", b.config.Interval))

	if b.config.InitialFull && b.FullFunc != nil {
		b.runPass(ctx, "full", b.FullFunc)
	}

	if !sleep(ctx, b.config.InitialDelay) {
		slog.Info("background_indexer_stopped")
		return
	}

	ticker := time.NewTicker(b.config.Interval)
	defer ticker.Stop()

	for {
		if b.IncrementalFunc != nil {
			b.runPass(ctx, "incremental", b.IncrementalFunc)
		}

		select {
		case <-ctx.Done():
			slog.Info("background_indexer_stopped")
			return
		case <-ticker.C:
		}
	}
}

// runPass executes fn and records its outcome. A pass refused because
// another one holds the gate is a skipped tick, not a failure.
func (b *BackgroundIndexer) runPass(ctx context.Context, kind string, fn IndexFunc) {
	if ctx.Err() != nil {
		return
	}

	err := fn(ctx)

	b.mu.Lock()
	b.passes++
	if err != nil && ctx.Err() == nil {
		b.lastErr = err
	}
	b.mu.Unlock()

	switch {
	case err == nil:
	case apperrors.GetCode(err) == apperrors.ErrCodeIndexingInProgress:
		slog.Debug("background_index_skipped", slog.String("kind", kind))
	case ctx.Err() != nil:
		slog.Debug("background_index_cancelled", slog.String("kind", kind))
	default:
		slog.Warn("background_index_failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()))
	}
}

// Stop signals the loop to exit and waits for it to finish.
func (b *BackgroundIndexer) Stop() {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()

	b.stopOnce.Do(func() { close(b.stopCh) })
	if started {
		<-b.doneCh
	}
}

// Wait blocks until the loop exits. It returns immediately if the loop
// was never started.
func (b *BackgroundIndexer) Wait() {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()

	if started {
		<-b.doneCh
	}
}

// sleep waits for d or until ctx is done. Returns false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
