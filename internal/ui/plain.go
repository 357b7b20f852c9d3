package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress for CI and pipes. It prints
// one line per stage change and then at most one line per step entries.
type PlainRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	stage     Stage
	started   bool
	lastShown int
	step      int
	errors    []ErrorEvent
}

// defaultPlainStep is the entry interval between plain progress lines.
const defaultPlainStep = 10000

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:  cfg.Output,
		step: defaultPlainStep,
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stageChanged := !r.started || event.Stage != r.stage
	if !stageChanged && event.Processed-r.lastShown < r.step && event.Message == "" {
		return
	}
	r.started = true
	r.stage = event.Stage
	r.lastShown = event.Processed

	switch {
	case event.Message != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), event.Message)
	case event.Stage == StageReconciling:
		_, _ = fmt.Fprintf(r.out, "[%s] removing deleted entries\n", event.Stage.Icon())
	default:
		_, _ = fmt.Fprintf(r.out, "[%s] %d entries\n", event.Stage.Icon(), event.Processed)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.Path != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.Path, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := stats.Kind
	if kind == "" {
		kind = "full"
	}
	_, _ = fmt.Fprintf(r.out, "Complete (%s): %d entries indexed", kind, stats.Indexed)
	if stats.Removed > 0 {
		_, _ = fmt.Fprintf(r.out, ", %d removed", stats.Removed)
	}
	_, _ = fmt.Fprintf(r.out, " in %s", stats.Duration.Round(100*time.Millisecond))
	if stats.Errors > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors)", stats.Errors)
	}
	_, _ = fmt.Fprintln(r.out)
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

var _ Renderer = (*PlainRenderer)(nil)
