package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProgressTracker_SpeedSampling(t *testing.T) {
	// Given: a tracker on a fake clock
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	p := newProgressTracker(clock.now)

	// When: updates arrive inside the sampling window
	clock.advance(100 * time.Millisecond)
	p.Update(ProgressEvent{Stage: StageScanning, Processed: 50})

	// Then: no speed sample is taken yet
	assert.Zero(t, p.Stats().Speed.Current)
	assert.Equal(t, 50, p.Stats().Processed)

	// When: a full second has passed since the start
	clock.advance(900 * time.Millisecond)
	p.Update(ProgressEvent{Stage: StageScanning, Processed: 1000})

	// Then: speed is entries per second over the window
	stats := p.Stats()
	assert.InDelta(t, 1000.0, stats.Speed.Current, 0.001)
	assert.InDelta(t, 1000.0, stats.Speed.Avg, 0.001)
	assert.InDelta(t, 1000.0, stats.Speed.Peak, 0.001)
	assert.Equal(t, time.Second, stats.Elapsed)
}

func TestProgressTracker_AverageIsSmoothed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	p := newProgressTracker(clock.now)

	clock.advance(time.Second)
	p.Update(ProgressEvent{Processed: 1000})
	clock.advance(time.Second)
	p.Update(ProgressEvent{Processed: 1500})

	stats := p.Stats()
	assert.InDelta(t, 500.0, stats.Speed.Current, 0.001)
	// 0.2*500 + 0.8*1000
	assert.InDelta(t, 900.0, stats.Speed.Avg, 0.001)
	assert.InDelta(t, 1000.0, stats.Speed.Peak, 0.001)
}

func TestProgressTracker_ErrorsAndWarnings(t *testing.T) {
	p := NewProgressTracker()

	p.AddError(ErrorEvent{Path: "/a", Err: errors.New("denied")})
	p.AddError(ErrorEvent{Path: "/b", Err: errors.New("skipped"), IsWarn: true})

	stats := p.Stats()
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
	require.Len(t, p.Errors(), 1)
	assert.Equal(t, "/a", p.Errors()[0].Path)
}

func TestProgressTracker_SparklineFeedsFromSamples(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	p := newProgressTracker(clock.now)

	for i := 1; i <= 3; i++ {
		clock.advance(time.Second)
		p.Update(ProgressEvent{Processed: i * 100})
	}

	line := p.RenderSparkline(5)
	assert.Equal(t, 5, len([]rune(line)))
	assert.True(t, strings.HasPrefix(line, "  "))
}

func TestSparkline_Render(t *testing.T) {
	s := NewSparkline(4)
	assert.Equal(t, "   ", s.Render(3))

	for _, v := range []float64{0, 1, 2, 4, 8} {
		s.Add(v)
	}

	// Capacity 4 drops the first sample.
	assert.Equal(t, 4, s.Len())
	line := []rune(s.Render(4))
	require.Len(t, line, 4)
	assert.Equal(t, '█', line[3])
	assert.Equal(t, '▁', line[0])
}

func TestSparkline_ScalesToShownPeak(t *testing.T) {
	s := NewSparkline(0)
	s.Add(100)
	s.Add(1)
	s.Add(1)

	// Only the last two samples are shown, so they are the peak.
	assert.Equal(t, "██", s.Render(2))
}
