package search

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Aman-CERP/ancheck/internal/store"
)

// typeBoost ranks launchable entries above plain files.
func typeBoost(t store.FileType) float64 {
	switch t {
	case store.FileTypeApp:
		return 50
	case store.FileTypeShortcut:
		return 40
	case store.FileTypeDocument:
		return 20
	case store.FileTypeFolder:
		return 15
	case store.FileTypeCode:
		return 10
	case store.FileTypeImage:
		return 5
	default:
		return 0
	}
}

// usageBoost combines a logarithmic click boost with a recency boost
// that decays with hours since the last access.
func usageBoost(clickCount, lastAccessed int64, now time.Time) float64 {
	var boost float64
	if clickCount > 0 {
		boost += math.Log(float64(clickCount)) * 15
	}
	if lastAccessed > 0 {
		ageHours := math.Max(float64(now.Unix()-lastAccessed)/3600, 1)
		boost += math.Min(100/ageHours, 30)
	}
	return boost
}

// scoreEntry applies the first matching rule and adds the boosts.
// queryLower must already be lower-cased.
func scoreEntry(e *store.FileEntry, queryLower string, m Matcher, now time.Time) (float64, MatchType, []int) {
	base, kind, indices := matchEntry(e.Filename, e.Filepath, queryLower, m)
	return base + typeBoost(e.FileType) + usageBoost(e.ClickCount, e.LastAccessed, now), kind, indices
}

func matchEntry(filename, filepath, queryLower string, m Matcher) (float64, MatchType, []int) {
	nameLower := strings.ToLower(filename)
	queryRunes := utf8.RuneCountInString(queryLower)

	stem := nameLower
	if i := strings.IndexByte(nameLower, '.'); i >= 0 {
		stem = nameLower[:i]
	}

	switch {
	case nameLower == queryLower:
		return scoreExact, MatchExact, runeRange(0, utf8.RuneCountInString(filename))
	case stem == queryLower:
		return scoreStem, MatchExact, runeRange(0, queryRunes)
	case strings.HasPrefix(nameLower, queryLower):
		return scorePrefix, MatchPrefix, runeRange(0, queryRunes)
	}

	if pos := strings.Index(nameLower, queryLower); pos >= 0 {
		start := utf8.RuneCountInString(nameLower[:pos])
		return scoreSubstring, MatchSubstring, runeRange(start, queryRunes)
	}

	pathLower := strings.ToLower(filepath)
	if strings.Contains(pathLower, queryLower) {
		return scorePath, MatchPath, []int{}
	}

	if score, indices, ok := m.Match(nameLower, queryLower); ok {
		return math.Max(float64(score), minFuzzyName), MatchFuzzy, indices
	}
	if score, indices, ok := m.Match(pathLower, queryLower); ok {
		return math.Max(float64(score)*fuzzyWeight, minFuzzyPath), MatchPath, indices
	}

	return 0, MatchNone, []int{}
}
