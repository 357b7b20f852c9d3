package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/ancheck/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("required dependency is nil")

// Engine ranks store entries against a query. It keeps no state between
// calls besides its matcher and clock, and is safe for concurrent use.
type Engine struct {
	source     Source
	matcher    Matcher
	now        func() time.Time
	metrics    *telemetry.QueryMetrics
	maxResults int
	multiplier int
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithMatcher replaces the default fuzzy matcher.
func WithMatcher(m Matcher) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.matcher = m
		}
	}
}

// WithClock sets the time source used by the recency boost.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMetrics sets an optional query metrics collector.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithDefaultMaxResults sets the cap used when Search gets maxResults <= 0.
func WithDefaultMaxResults(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxResults = n
		}
	}
}

// WithCandidateMultiplier sets how many store candidates are fetched per
// requested result.
func WithCandidateMultiplier(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.multiplier = n
		}
	}
}

// NewEngine creates a search engine over source.
func NewEngine(source Source, opts ...EngineOption) (*Engine, error) {
	if source == nil {
		return nil, ErrNilDependency
	}
	e := &Engine{
		source:     source,
		matcher:    SubsequenceMatcher{},
		now:        time.Now,
		maxResults: DefaultMaxResults,
		multiplier: candidateMultiplier,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MaxResults returns the default result cap.
func (e *Engine) MaxResults() int {
	return e.maxResults
}

// Search returns at most maxResults entries ordered by descending score,
// ties broken by ascending id. An empty query yields an empty list.
func (e *Engine) Search(ctx context.Context, query string, maxResults int) ([]*SearchResult, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		e.recordMetrics(query, telemetry.QueryTypeEmpty, 0, time.Since(start))
		return []*SearchResult{}, nil
	}
	if maxResults <= 0 {
		maxResults = e.maxResults
	}
	maxResults = min(maxResults, MaxResultsLimit)

	queryLower := strings.ToLower(query)
	now := e.now()

	candidates, err := e.source.Search(ctx, queryLower, maxResults*e.multiplier)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(candidates))
	seen := make(map[int64]struct{}, len(candidates))

	for _, c := range candidates {
		score, kind, indices := scoreEntry(c, queryLower, e.matcher, now)
		seen[c.ID] = struct{}{}
		if indices == nil {
			indices = []int{}
		}
		results = append(results, &SearchResult{
			ID:             c.ID,
			Filename:       c.Filename,
			Filepath:       c.Filepath,
			Extension:      c.Extension,
			FileSize:       c.FileSize,
			ModifiedAt:     c.ModifiedAt,
			FileType:       c.FileType,
			ClickCount:     c.ClickCount,
			LastAccessed:   c.LastAccessed,
			Score:          score,
			MatchType:      kind,
			MatchedIndices: indices,
		})
	}

	if len(results) < maxResults {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fuzzyResults, err := e.exhaustive(ctx, queryLower, seen, now)
		if err != nil {
			return nil, err
		}
		results = append(results, fuzzyResults...)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}

	e.recordMetrics(query, telemetry.QueryTypeSearch, len(results), time.Since(start))
	return results, nil
}

// exhaustive fuzzy-matches every unseen filename. Its weighting differs
// from the fuzzy rules of the store-backed phase: half the raw score plus
// boosts, with no floor.
func (e *Engine) exhaustive(ctx context.Context, queryLower string, seen map[int64]struct{}, now time.Time) ([]*SearchResult, error) {
	all, err := e.source.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var results []*SearchResult
	for _, entry := range all {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		raw, indices, ok := e.matcher.Match(strings.ToLower(entry.Filename), queryLower)
		if !ok || raw <= 0 {
			continue
		}
		seen[entry.ID] = struct{}{}
		if indices == nil {
			indices = []int{}
		}

		score := float64(raw)*fuzzyWeight +
			typeBoost(entry.FileType) +
			usageBoost(entry.ClickCount, entry.LastAccessed, now)

		results = append(results, &SearchResult{
			ID:             entry.ID,
			Filename:       entry.Filename,
			Filepath:       entry.Filepath,
			ModifiedAt:     entry.ModifiedAt,
			FileType:       entry.FileType,
			ClickCount:     entry.ClickCount,
			LastAccessed:   entry.LastAccessed,
			Score:          score,
			MatchType:      MatchFuzzy,
			MatchedIndices: indices,
		})
	}
	return results, nil
}

func (e *Engine) recordMetrics(query string, queryType telemetry.QueryType, resultCount int, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   queryType,
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}
