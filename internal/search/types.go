// Package search ranks indexed entries against an interactive query.
// A store-backed substring phase is followed, when it yields too few
// results, by an exhaustive fuzzy pass over every indexed filename.
package search

import (
	"context"

	"github.com/Aman-CERP/ancheck/internal/store"
)

// DefaultMaxResults caps result lists when the caller asks for none.
const DefaultMaxResults = 15

// MaxResultsLimit is the largest cap a caller may request. Larger
// requests are clamped.
const MaxResultsLimit = 1000

// candidateMultiplier over-fetches store candidates for re-ranking.
const candidateMultiplier = 3

// MatchType describes how a result matched the query.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchPrefix    MatchType = "prefix"
	MatchSubstring MatchType = "substring"
	MatchFuzzy     MatchType = "fuzzy"
	MatchPath      MatchType = "path"
	MatchNone      MatchType = "none"
)

// Base scores per match kind.
const (
	scoreExact     = 1000.0
	scoreStem      = 950.0
	scorePrefix    = 800.0
	scoreSubstring = 600.0
	scorePath      = 300.0
	minFuzzyName   = 10.0
	minFuzzyPath   = 5.0

	// fuzzyWeight scales fuzzy scores on the filepath and in the
	// exhaustive pass.
	fuzzyWeight = 0.5
)

// SearchResult is a scored projection of an indexed entry.
type SearchResult struct {
	ID           int64          `json:"id"`
	Filename     string         `json:"filename"`
	Filepath     string         `json:"filepath"`
	Extension    string         `json:"extension"`
	FileSize     int64          `json:"file_size"`
	ModifiedAt   int64          `json:"modified_at"`
	FileType     store.FileType `json:"file_type"`
	ClickCount   int64          `json:"click_count"`
	LastAccessed int64          `json:"last_accessed"`

	Score     float64   `json:"score"`
	MatchType MatchType `json:"match_type"`

	// MatchedIndices are rune offsets into Filename for highlighting.
	MatchedIndices []int `json:"matched_indices"`
}

// Source is the read side of the file store used by the engine.
type Source interface {
	Search(ctx context.Context, queryLower string, limit int) ([]*store.FileEntry, error)
	ListAll(ctx context.Context) ([]*store.ListedEntry, error)
}
