package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/ancheck/internal/search"
)

const (
	defaultLimit = search.DefaultMaxResults
	maxLimit     = 50
)

// FormatSearchResults formats ranked entries as markdown. math, when
// non-empty, is shown above the results.
func FormatSearchResults(query, math string, results []*search.SearchResult) string {
	valid := filterValidResults(results)

	var sb strings.Builder
	if math != "" {
		fmt.Fprintf(&sb, "**= %s**\n\n", math)
	}
	if len(valid) == 0 {
		fmt.Fprintf(&sb, "No results found for \"%s\"", query)
		return sb.String()
	}

	fmt.Fprintf(&sb, "## Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d result", len(valid))
	if len(valid) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range valid {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

func filterValidResults(results []*search.SearchResult) []*search.SearchResult {
	valid := make([]*search.SearchResult, 0, len(results))
	for _, r := range results {
		if r != nil && r.Filepath != "" {
			valid = append(valid, r)
		}
	}
	return valid
}

// formatResult writes "N. **name** (type, match, score)" and the path.
func formatResult(sb *strings.Builder, num int, r *search.SearchResult) {
	fmt.Fprintf(sb, "%d. **%s** (%s, %s, score: %.1f)\n", num, r.Filename, r.FileType, r.MatchType, r.Score)
	fmt.Fprintf(sb, "   `%s`", r.Filepath)

	var meta []string
	if r.FileSize > 0 {
		meta = append(meta, humanSize(r.FileSize))
	}
	if r.ModifiedAt > 0 {
		meta = append(meta, "modified "+time.Unix(r.ModifiedAt, 0).UTC().Format("2006-01-02"))
	}
	if r.ClickCount > 0 {
		meta = append(meta, fmt.Sprintf("opened %d×", r.ClickCount))
	}
	if len(meta) > 0 {
		fmt.Fprintf(sb, " · %s", strings.Join(meta, " · "))
	}
	sb.WriteString("\n")
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > max {
		return max
	}
	return limit
}

// ToSearchResultOutput converts a search result to the tool output format.
func ToSearchResultOutput(r *search.SearchResult) SearchResultOutput {
	if r == nil {
		return SearchResultOutput{}
	}
	return SearchResultOutput{
		Filename:     r.Filename,
		Filepath:     r.Filepath,
		FileType:     string(r.FileType),
		MimeType:     MimeTypeForEntry(r.Filepath, r.FileType),
		FileSize:     r.FileSize,
		ModifiedAt:   r.ModifiedAt,
		ClickCount:   r.ClickCount,
		Score:        r.Score,
		MatchType:    string(r.MatchType),
		MatchedRunes: r.MatchedIndices,
	}
}

// humanSize formats bytes as a human-readable string.
func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
