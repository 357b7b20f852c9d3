// Package ui provides terminal components: the interactive search picker,
// index progress renderers and the status view.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/ancheck/internal/async"
)

// Stage represents an indexing stage.
type Stage int

const (
	// StageScanning is the directory walk.
	StageScanning Stage = iota
	// StageReconciling removes rows for deleted paths.
	StageReconciling
	// StageWriting is the final batch flush.
	StageWriting
	// StageComplete indicates the pass finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageReconciling:
		return "Reconciling"
	case StageWriting:
		return "Writing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageReconciling:
		return "CLEAN"
	case StageWriting:
		return "WRITE"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// StageFromIndexing maps a progress stage name to a Stage.
func StageFromIndexing(stage string) Stage {
	switch async.IndexingStage(stage) {
	case async.StageReconciling:
		return StageReconciling
	case async.StageWriting:
		return StageWriting
	default:
		return StageScanning
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage     Stage
	Processed int
	Removed   int
	Message   string
}

// ErrorEvent represents an error during processing.
type ErrorEvent struct {
	Path   string
	Err    error
	IsWarn bool
}

// CompletionStats contains final pass statistics.
type CompletionStats struct {
	Kind     string // "full" or "incremental"
	Indexed  int
	Removed  int
	Duration time.Duration
	Errors   int
}

// Renderer displays index progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the progress renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Title      string // shown in the TUI header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithTitle sets the TUI header title.
func WithTitle(title string) ConfigOption {
	return func(c *Config) {
		c.Title = title
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output: output,
		Title:  "ancheck index",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a
// plain text renderer for pipes, CI or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// WatchProgress polls progress every interval and forwards changes to r
// until ctx is done. A final snapshot is always forwarded.
func WatchProgress(ctx context.Context, progress *async.IndexProgress, r Renderer, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last async.IndexProgressSnapshot
	forward := func() {
		snap := progress.Snapshot()
		if snap == last {
			return
		}
		last = snap
		r.UpdateProgress(ProgressEvent{
			Stage:     StageFromIndexing(snap.Stage),
			Processed: snap.FilesProcessed,
			Removed:   snap.FilesRemoved,
		})
	}

	for {
		select {
		case <-ctx.Done():
			forward()
			return
		case <-ticker.C:
			forward()
		}
	}
}
