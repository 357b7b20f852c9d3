package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_StageLines(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))
	require.NoError(t, r.Start(context.Background()))

	// When: a pass moves through its stages
	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Processed: 0})
	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Processed: 10})
	r.UpdateProgress(ProgressEvent{Stage: StageReconciling, Processed: 10})
	r.UpdateProgress(ProgressEvent{Stage: StageWriting, Processed: 12})

	// Then: one line per stage change, small increments are dropped
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[SCAN] 0 entries", lines[0])
	assert.Equal(t, "[CLEAN] removing deleted entries", lines[1])
	assert.Equal(t, "[WRITE] 12 entries", lines[2])
	assert.NoError(t, r.Stop())
}

func TestPlainRenderer_StepThrottling(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Processed: 1})
	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Processed: 9000})
	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Processed: 10001})

	output := buf.String()
	assert.NotContains(t, output, "9000")
	assert.Contains(t, output, "[SCAN] 10001 entries")
}

func TestPlainRenderer_MessageAlwaysShown(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Processed: 1})
	r.UpdateProgress(ProgressEvent{Stage: StageScanning, Processed: 2, Message: "C:\\Users"})

	assert.Contains(t, buf.String(), "[SCAN] C:\\Users")
}

func TestPlainRenderer_AddError(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{Path: "/root/secret", Err: errors.New("permission denied")})
	r.AddError(ErrorEvent{Err: errors.New("symlink loop"), IsWarn: true})

	output := buf.String()
	assert.Contains(t, output, "ERROR: /root/secret: permission denied")
	assert.Contains(t, output, "WARN: symlink loop")
}

func TestPlainRenderer_Complete(t *testing.T) {
	tests := []struct {
		name  string
		stats CompletionStats
		want  string
	}{
		{
			name:  "full default",
			stats: CompletionStats{Indexed: 120, Duration: 1500 * time.Millisecond},
			want:  "Complete (full): 120 entries indexed in 1.5s\n",
		},
		{
			name:  "incremental with removals and errors",
			stats: CompletionStats{Kind: "incremental", Indexed: 5, Removed: 2, Duration: 2 * time.Second, Errors: 1},
			want:  "Complete (incremental): 5 entries indexed, 2 removed in 2s (1 errors)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			NewPlainRenderer(NewConfig(buf)).Complete(tt.stats)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_NoANSICodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	for _, stage := range []Stage{StageScanning, StageReconciling, StageWriting} {
		r.UpdateProgress(ProgressEvent{Stage: stage, Processed: 50})
	}
	r.Complete(CompletionStats{Indexed: 50})

	assert.NotContains(t, buf.String(), "\x1b[")
}
