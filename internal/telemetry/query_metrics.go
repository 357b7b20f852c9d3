// Package telemetry records local query statistics: query kinds, latency
// buckets, frequent terms and zero-result queries. Nothing is reported
// externally and nothing here influences ranking.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryType classifies a recorded query.
type QueryType string

const (
	QueryTypeSearch QueryType = "search"
	QueryTypeMath   QueryType = "math"
	QueryTypeEmpty  QueryType = "empty"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is a single query observation.
type QueryEvent struct {
	Query       string
	QueryType   QueryType
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether a real search found nothing. Empty
// queries never count as zero-result.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0 && e.QueryType == QueryTypeSearch
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends an item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
		return result
	}
	n := copy(result, b.items[b.head:])
	copy(result[n:], b.items[:b.head])
	return result
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// ExtractTerms splits a query into lower-cased terms of at least 3 runes.
// Path separators and dots split terms so "docs/report.pdf" yields
// "docs", "report" and "pdf".
func ExtractTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '/', '\\', '.', '_', '-':
			return true
		}
		return false
	})

	var terms []string
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// TermCount is a term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryMetricsSnapshot is an immutable copy of the in-memory aggregates.
type QueryMetricsSnapshot struct {
	QueryTypeCounts     map[QueryType]int64     `json:"query_type_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryMetricsStore persists flushed aggregates.
type QueryMetricsStore interface {
	AddQueryTypeCounts(ctx context.Context, date string, counts map[QueryType]int64) error
	GetQueryTypeCounts(ctx context.Context, from, to string) (map[QueryType]int64, error)
	AddTermCounts(ctx context.Context, terms map[string]int64) error
	GetTopTerms(ctx context.Context, limit int) ([]TermCount, error)
	AddZeroResultQueries(ctx context.Context, queries []ZeroResultQuery) error
	GetZeroResultQueries(ctx context.Context, limit int) ([]string, error)
	AddLatencyCounts(ctx context.Context, date string, counts map[LatencyBucket]int64) error
	GetLatencyCounts(ctx context.Context, from, to string) (map[LatencyBucket]int64, error)
}

// ZeroResultQuery is a query that found nothing.
type ZeroResultQuery struct {
	Query     string
	Timestamp time.Time
}

// QueryMetricsConfig configures the collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int           // Max terms tracked in memory (default 100)
	ZeroResultsCapacity   int           // Max zero-result queries kept (default 100)
	RecentQueriesCapacity int           // Window for exact-repeat detection (default 500)
	FlushInterval         time.Duration // Auto-flush period (0 = manual only)
}

// DefaultQueryMetricsConfig returns the standard configuration.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
		FlushInterval:         60 * time.Second,
	}
}

// pending holds counts not yet written to the store.
type pending struct {
	types     map[QueryType]int64
	latencies map[LatencyBucket]int64
	terms     map[string]int64
	zero      []ZeroResultQuery
}

func newPending() pending {
	return pending{
		types:     make(map[QueryType]int64),
		latencies: make(map[LatencyBucket]int64),
		terms:     make(map[string]int64),
	}
}

func (p pending) empty() bool {
	return len(p.types) == 0 && len(p.latencies) == 0 && len(p.terms) == 0 && len(p.zero) == 0
}

// QueryMetrics collects query telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	queryTypes      map[QueryType]int64
	latencies       map[LatencyBucket]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	recentQueries   *lru.Cache[string, struct{}]
	totalQueries    int64
	zeroResultCount int64
	exactRepeats    int64
	startTime       time.Time

	pending pending

	flushMu  sync.Mutex
	store    QueryMetricsStore
	config   QueryMetricsConfig
	stopCh   chan struct{}
	loopDone chan struct{}
	closed   bool
}

// NewQueryMetrics creates a collector with the default configuration.
// A nil store keeps metrics in memory only.
func NewQueryMetrics(store QueryMetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector with cfg.
func NewQueryMetricsWithConfig(store QueryMetricsStore, cfg QueryMetricsConfig) *QueryMetrics {
	defaults := DefaultQueryMetricsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = defaults.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = defaults.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = defaults.RecentQueriesCapacity
	}

	// lru.New only fails on a non-positive size
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		queryTypes:    make(map[QueryType]int64),
		latencies:     make(map[LatencyBucket]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		recentQueries: recent,
		startTime:     time.Now(),
		pending:       newPending(),
		store:         store,
		config:        cfg,
		stopCh:        make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.loopDone = make(chan struct{})
		go m.flushLoop(cfg.FlushInterval)
	}
	return m
}

func (m *QueryMetrics) flushLoop(interval time.Duration) {
	defer close(m.loopDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Flush(context.Background()); err != nil {
				slog.Warn("telemetry_flush_failed", slog.String("error", err.Error()))
			}
		case <-m.stopCh:
			return
		}
	}
}

// Record captures one query event. It never blocks on I/O.
func (m *QueryMetrics) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.totalQueries++
	m.queryTypes[event.QueryType]++
	m.pending.types[event.QueryType]++

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	m.pending.latencies[bucket]++

	if event.QueryType == QueryTypeSearch {
		for _, term := range ExtractTerms(event.Query) {
			count, _ := m.topTerms.Get(term)
			m.topTerms.Add(term, count+1)
			m.pending.terms[term]++
		}
	}

	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults.Add(event.Query)
		m.pending.zero = append(m.pending.zero, ZeroResultQuery{Query: event.Query, Timestamp: event.Timestamp})
	}

	if event.QueryType != QueryTypeEmpty {
		key := hashQuery(event.Query)
		if _, seen := m.recentQueries.Get(key); seen {
			m.exactRepeats++
		}
		m.recentQueries.Add(key, struct{}{})
	}
}

// hashQuery normalizes a query into a short key for repeat detection.
func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:16])
}

// Snapshot returns the in-memory aggregates since startup.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make(map[QueryType]int64, len(m.queryTypes))
	for k, v := range m.queryTypes {
		types[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	terms := make([]TermCount, 0, m.topTerms.Len())
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	return &QueryMetricsSnapshot{
		QueryTypeCounts:     types,
		TopTerms:            terms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		ExactRepeatCount:    m.exactRepeats,
		Since:               m.startTime,
	}
}

// Flush writes counts recorded since the previous flush to the store.
// On failure the unwritten counts are kept for the next attempt.
func (m *QueryMetrics) Flush(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.Lock()
	batch := m.pending
	m.pending = newPending()
	m.mu.Unlock()

	if batch.empty() {
		return nil
	}

	today := time.Now().Format("2006-01-02")

	if err := m.store.AddQueryTypeCounts(ctx, today, batch.types); err != nil {
		m.restore(batch)
		return err
	}
	batch.types = nil

	if err := m.store.AddLatencyCounts(ctx, today, batch.latencies); err != nil {
		m.restore(batch)
		return err
	}
	batch.latencies = nil

	if err := m.store.AddTermCounts(ctx, batch.terms); err != nil {
		m.restore(batch)
		return err
	}
	batch.terms = nil

	if err := m.store.AddZeroResultQueries(ctx, batch.zero); err != nil {
		m.restore(batch)
		return err
	}
	return nil
}

// restore merges unwritten counts back into pending.
func (m *QueryMetrics) restore(batch pending) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range batch.types {
		m.pending.types[k] += v
	}
	for k, v := range batch.latencies {
		m.pending.latencies[k] += v
	}
	for k, v := range batch.terms {
		m.pending.terms[k] += v
	}
	m.pending.zero = append(batch.zero, m.pending.zero...)
}

// Close stops the flush loop and performs a final flush.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	if m.loopDone != nil {
		<-m.loopDone
	}
	return m.Flush(context.Background())
}
