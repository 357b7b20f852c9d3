package ui

import "strings"

// sparkChars are the eight bar heights, lowest first.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline keeps the most recent samples and renders them as bars
// scaled to the largest retained sample.
type Sparkline struct {
	samples  []float64
	capacity int
}

// NewSparkline creates a sparkline that retains capacity samples
// (60 when capacity <= 0).
func NewSparkline(capacity int) *Sparkline {
	if capacity <= 0 {
		capacity = 60
	}
	return &Sparkline{capacity: capacity}
}

// Add appends a sample, dropping the oldest when full.
func (s *Sparkline) Add(v float64) {
	if len(s.samples) == s.capacity {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:s.capacity-1]
	}
	s.samples = append(s.samples, v)
}

// Len returns the number of retained samples.
func (s *Sparkline) Len() int {
	return len(s.samples)
}

// Render draws the newest width samples, left-padded with spaces to
// width runes. width <= 0 renders all retained samples.
func (s *Sparkline) Render(width int) string {
	if width <= 0 {
		width = s.capacity
	}
	shown := s.samples
	if len(shown) > width {
		shown = shown[len(shown)-width:]
	}

	peak := 0.0
	for _, v := range shown {
		if v > peak {
			peak = v
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", width-len(shown)))
	for _, v := range shown {
		idx := 0
		if peak > 0 && v > 0 {
			idx = int(v / peak * float64(len(sparkChars)-1))
		}
		sb.WriteRune(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}
	return sb.String()
}
