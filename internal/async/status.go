// Package async provides background indexing infrastructure for ancheck:
// the indexing gate, the periodic indexer loop and progress tracking.
package async

import (
	"sync"
	"time"
)

// IndexingStatus represents the overall indexing state.
type IndexingStatus string

const (
	// StatusIdle indicates no pass has run yet.
	StatusIdle IndexingStatus = "idle"
	// StatusIndexing indicates a pass is in progress.
	StatusIndexing IndexingStatus = "indexing"
	// StatusReady indicates the last pass completed.
	StatusReady IndexingStatus = "ready"
	// StatusError indicates the last pass failed.
	StatusError IndexingStatus = "error"
)

// IndexingStage represents the current stage of an indexing pass.
type IndexingStage string

const (
	// StageScanning indicates the filesystem walk.
	StageScanning IndexingStage = "scanning"
	// StageReconciling indicates removal of rows for deleted paths.
	StageReconciling IndexingStage = "reconciling"
	// StageWriting indicates the final batch flush.
	StageWriting IndexingStage = "writing"
)

// IndexProgressSnapshot is an immutable snapshot of indexing progress.
type IndexProgressSnapshot struct {
	Status         string `json:"status"`
	Stage          string `json:"stage,omitempty"`
	RunID          string `json:"run_id,omitempty"`
	FilesProcessed int    `json:"files_processed"`
	FilesRemoved   int    `json:"files_removed"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// IndexProgress provides thread-safe tracking of indexing progress.
type IndexProgress struct {
	mu sync.RWMutex

	status         IndexingStatus
	stage          IndexingStage
	runID          string
	filesProcessed int
	filesRemoved   int
	startTime      time.Time
	endTime        time.Time
	errorMessage   string
}

// NewIndexProgress creates an idle progress tracker.
func NewIndexProgress() *IndexProgress {
	return &IndexProgress{status: StatusIdle}
}

// Begin resets the tracker for a new pass.
func (p *IndexProgress) Begin(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusIndexing
	p.stage = StageScanning
	p.runID = runID
	p.filesProcessed = 0
	p.filesRemoved = 0
	p.startTime = time.Now()
	p.endTime = time.Time{}
	p.errorMessage = ""
}

// SetStage updates the current stage.
func (p *IndexProgress) SetStage(stage IndexingStage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
}

// UpdateFiles updates the number of processed entries.
func (p *IndexProgress) UpdateFiles(processed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesProcessed = processed
}

// SetRemoved records how many stale rows were removed.
func (p *IndexProgress) SetRemoved(removed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filesRemoved = removed
}

// SetError marks the pass as failed with an error message.
func (p *IndexProgress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
	p.endTime = time.Now()
}

// SetReady marks the pass as complete.
func (p *IndexProgress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
	p.stage = ""
	p.endTime = time.Now()
}

// IsIndexing returns true while a pass is in progress.
func (p *IndexProgress) IsIndexing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusIndexing
}

// Snapshot returns an immutable copy of the current progress state.
func (p *IndexProgress) Snapshot() IndexProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var elapsed time.Duration
	switch {
	case p.startTime.IsZero():
	case p.endTime.IsZero():
		elapsed = time.Since(p.startTime)
	default:
		elapsed = p.endTime.Sub(p.startTime)
	}

	return IndexProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		RunID:          p.runID,
		FilesProcessed: p.filesProcessed,
		FilesRemoved:   p.filesRemoved,
		ElapsedSeconds: int(elapsed.Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
