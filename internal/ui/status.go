package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo contains index health information.
type StatusInfo struct {
	Count                int64     `json:"count"`
	Indexing             bool      `json:"indexing"`
	LastFullIndex        time.Time `json:"last_full_index"`
	LastIncrementalIndex time.Time `json:"last_incremental_index"`
	DBPath               string    `json:"db_path"`
	DBSize               int64     `json:"db_size"`
	Roots                []string  `json:"roots"`
	LastError            string    `json:"last_error,omitempty"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
		now:    time.Now,
	}
}

// Render displays status info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status"))

	_, _ = fmt.Fprintf(r.out, "  Entries:          %d\n", info.Count)
	state := r.styles.Success.Render("idle")
	if info.Indexing {
		state = r.styles.Warning.Render("indexing")
	}
	_, _ = fmt.Fprintf(r.out, "  State:            %s\n", state)
	_, _ = fmt.Fprintf(r.out, "  Last full:        %s\n", r.formatTime(info.LastFullIndex))
	_, _ = fmt.Fprintf(r.out, "  Last incremental: %s\n", r.formatTime(info.LastIncrementalIndex))
	if info.LastError != "" {
		_, _ = fmt.Fprintf(r.out, "  Last error:       %s\n", r.styles.Error.Render(info.LastError))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintf(r.out, "  Database: %s (%s)\n", info.DBPath, FormatBytes(info.DBSize))
	if len(info.Roots) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Roots:")
		for _, root := range info.Roots {
			_, _ = fmt.Fprintf(r.out, "    %s\n", root)
		}
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// formatTime formats a time relative to now; the zero time is "never".
func (r *StatusRenderer) formatTime(t time.Time) string {
	if t.IsZero() {
		return r.styles.Dim.Render("never")
	}
	diff := r.now().Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
