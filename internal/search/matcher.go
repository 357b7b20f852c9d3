package search

import (
	"github.com/sahilm/fuzzy"
)

// Matcher scores approximate subsequence matches.
type Matcher interface {
	// Match reports whether every rune of pattern occurs in text in
	// order. Indices are rune offsets into text.
	Match(text, pattern string) (score int, indices []int, ok bool)
}

// perRuneBonus lifts scores so that a clean subsequence match is positive
// regardless of the length of the text it was found in.
const perRuneBonus = 16

// minMatchScore is the floor for any successful match. sahilm/fuzzy
// deducts a point per unmatched character, so long names can go negative.
const minMatchScore = 1

// SubsequenceMatcher is the default Matcher, backed by sahilm/fuzzy.
type SubsequenceMatcher struct{}

var _ Matcher = SubsequenceMatcher{}

// Match implements Matcher.
func (SubsequenceMatcher) Match(text, pattern string) (int, []int, bool) {
	if pattern == "" || text == "" {
		return 0, nil, false
	}

	matches := fuzzy.Find(pattern, []string{text})
	if len(matches) == 0 {
		return 0, nil, false
	}
	m := matches[0]

	score := max(m.Score+perRuneBonus*len(m.MatchedIndexes), minMatchScore)
	return score, byteToRuneOffsets(text, m.MatchedIndexes), true
}

// byteToRuneOffsets converts ascending byte offsets into rune offsets.
func byteToRuneOffsets(s string, byteOffsets []int) []int {
	if len(byteOffsets) == 0 {
		return nil
	}
	out := make([]int, 0, len(byteOffsets))
	runeIdx, next := 0, 0
	for i := range s {
		if next >= len(byteOffsets) {
			break
		}
		for next < len(byteOffsets) && byteOffsets[next] == i {
			out = append(out, runeIdx)
			next++
		}
		runeIdx++
	}
	return out
}

// runeRange returns [start, start+n) as a slice of offsets.
func runeRange(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}
