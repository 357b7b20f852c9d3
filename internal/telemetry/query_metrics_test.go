package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore records flushed batches for assertions.
type memoryStore struct {
	mu        sync.Mutex
	types     map[QueryType]int64
	latencies map[LatencyBucket]int64
	terms     map[string]int64
	zero      []string
	failTerms error
	flushes   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		types:     make(map[QueryType]int64),
		latencies: make(map[LatencyBucket]int64),
		terms:     make(map[string]int64),
	}
}

func (s *memoryStore) AddQueryTypeCounts(_ context.Context, _ string, counts map[QueryType]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	for k, v := range counts {
		s.types[k] += v
	}
	return nil
}

func (s *memoryStore) GetQueryTypeCounts(context.Context, string, string) (map[QueryType]int64, error) {
	return s.types, nil
}

func (s *memoryStore) AddTermCounts(_ context.Context, terms map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTerms != nil {
		return s.failTerms
	}
	for k, v := range terms {
		s.terms[k] += v
	}
	return nil
}

func (s *memoryStore) GetTopTerms(context.Context, int) ([]TermCount, error) { return nil, nil }

func (s *memoryStore) AddZeroResultQueries(_ context.Context, queries []ZeroResultQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range queries {
		s.zero = append(s.zero, q.Query)
	}
	return nil
}

func (s *memoryStore) GetZeroResultQueries(context.Context, int) ([]string, error) {
	return s.zero, nil
}

func (s *memoryStore) AddLatencyCounts(_ context.Context, _ string, counts map[LatencyBucket]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range counts {
		s.latencies[k] += v
	}
	return nil
}

func (s *memoryStore) GetLatencyCounts(context.Context, string, string) (map[LatencyBucket]int64, error) {
	return s.latencies, nil
}

func manualConfig() QueryMetricsConfig {
	cfg := DefaultQueryMetricsConfig()
	cfg.FlushInterval = 0
	return cfg
}

func TestCircularBuffer(t *testing.T) {
	buf := NewCircularBuffer[int](3)
	assert.Empty(t, buf.Items())

	buf.Add(1)
	buf.Add(2)
	assert.Equal(t, []int{1, 2}, buf.Items())

	buf.Add(3)
	buf.Add(4)
	buf.Add(5)
	assert.Equal(t, []int{3, 4, 5}, buf.Items())
	assert.Equal(t, 3, buf.Size())
}

func TestCircularBuffer_NonPositiveCapacity(t *testing.T) {
	buf := NewCircularBuffer[string](0)
	for i := 0; i < 150; i++ {
		buf.Add(fmt.Sprintf("item-%d", i))
	}
	assert.Equal(t, 100, buf.Size())
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{0, BucketP10},
		{9 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{49 * time.Millisecond, BucketP50},
		{50 * time.Millisecond, BucketP100},
		{100 * time.Millisecond, BucketP500},
		{499 * time.Millisecond, BucketP500},
		{500 * time.Millisecond, BucketP1000},
		{3 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LatencyToBucket(tt.latency))
		})
	}
}

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"Quarterly Report", []string{"quarterly", "report"}},
		{"docs/report.pdf", []string{"docs", "report", "pdf"}},
		{"my_tax-2024 go", []string{"tax", "2024"}},
		{"ab cd", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTerms(tt.query))
		})
	}
}

func TestQueryEvent_IsZeroResult(t *testing.T) {
	assert.True(t, QueryEvent{QueryType: QueryTypeSearch}.IsZeroResult())
	assert.False(t, QueryEvent{QueryType: QueryTypeSearch, ResultCount: 1}.IsZeroResult())
	assert.False(t, QueryEvent{QueryType: QueryTypeEmpty}.IsZeroResult())
	assert.False(t, QueryEvent{QueryType: QueryTypeMath}.IsZeroResult())
}

func TestQueryMetrics_Record(t *testing.T) {
	// Given: a collector without a store
	m := NewQueryMetricsWithConfig(nil, manualConfig())

	// When: recording a mix of queries
	m.Record(QueryEvent{Query: "budget report", QueryType: QueryTypeSearch, ResultCount: 4, Latency: 2 * time.Millisecond})
	m.Record(QueryEvent{Query: "report", QueryType: QueryTypeSearch, ResultCount: 0, Latency: 20 * time.Millisecond})
	m.Record(QueryEvent{Query: "2+2", QueryType: QueryTypeMath, ResultCount: 1})
	m.Record(QueryEvent{Query: "", QueryType: QueryTypeEmpty})

	// Then: the snapshot reflects every event
	snap := m.Snapshot()
	assert.Equal(t, int64(4), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.QueryTypeCounts[QueryTypeSearch])
	assert.Equal(t, int64(1), snap.QueryTypeCounts[QueryTypeMath])
	assert.Equal(t, int64(1), snap.QueryTypeCounts[QueryTypeEmpty])
	assert.Equal(t, int64(3), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP50])
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, []string{"report"}, snap.ZeroResultQueries)
	assert.InDelta(t, 25.0, snap.ZeroResultPercentage(), 0.001)

	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, TermCount{Term: "report", Count: 2}, snap.TopTerms[0])
}

func TestQueryMetrics_MathQueriesDoNotFeedTerms(t *testing.T) {
	m := NewQueryMetricsWithConfig(nil, manualConfig())
	m.Record(QueryEvent{Query: "100 * 250", QueryType: QueryTypeMath, ResultCount: 1})

	assert.Empty(t, m.Snapshot().TopTerms)
}

func TestQueryMetrics_ExactRepeats(t *testing.T) {
	m := NewQueryMetricsWithConfig(nil, manualConfig())

	m.Record(QueryEvent{Query: "Invoice", QueryType: QueryTypeSearch, ResultCount: 1})
	m.Record(QueryEvent{Query: "  invoice ", QueryType: QueryTypeSearch, ResultCount: 1})
	m.Record(QueryEvent{Query: "notes", QueryType: QueryTypeSearch, ResultCount: 1})
	m.Record(QueryEvent{Query: "", QueryType: QueryTypeEmpty})
	m.Record(QueryEvent{Query: "", QueryType: QueryTypeEmpty})

	assert.Equal(t, int64(1), m.Snapshot().ExactRepeatCount)
}

func TestQueryMetrics_TopTermsEviction(t *testing.T) {
	cfg := manualConfig()
	cfg.TopTermsCapacity = 2
	m := NewQueryMetricsWithConfig(nil, cfg)

	m.Record(QueryEvent{Query: "alpha", QueryType: QueryTypeSearch, ResultCount: 1})
	m.Record(QueryEvent{Query: "bravo", QueryType: QueryTypeSearch, ResultCount: 1})
	m.Record(QueryEvent{Query: "charlie", QueryType: QueryTypeSearch, ResultCount: 1})

	terms := m.Snapshot().TopTerms
	require.Len(t, terms, 2)
	names := []string{terms[0].Term, terms[1].Term}
	assert.NotContains(t, names, "alpha")
}

func TestQueryMetrics_Concurrent(t *testing.T) {
	m := NewQueryMetricsWithConfig(nil, manualConfig())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(QueryEvent{Query: fmt.Sprintf("query %d", n), QueryType: QueryTypeSearch, ResultCount: j % 2})
				_ = m.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(1000), snap.TotalQueries)
	assert.Equal(t, int64(500), snap.ZeroResultCount)
}

func TestQueryMetrics_FlushWritesDeltasOnly(t *testing.T) {
	// Given: a collector that has already flushed once
	store := newMemoryStore()
	m := NewQueryMetricsWithConfig(store, manualConfig())
	ctx := context.Background()

	m.Record(QueryEvent{Query: "budget", QueryType: QueryTypeSearch, ResultCount: 0})
	require.NoError(t, m.Flush(ctx))

	// When: one more query is recorded and flushed
	m.Record(QueryEvent{Query: "budget", QueryType: QueryTypeSearch, ResultCount: 3})
	require.NoError(t, m.Flush(ctx))

	// Then: the store holds each event once
	assert.Equal(t, int64(2), store.types[QueryTypeSearch])
	assert.Equal(t, int64(2), store.terms["budget"])
	assert.Equal(t, int64(2), store.latencies[BucketP10])
	assert.Equal(t, []string{"budget"}, store.zero)
}

func TestQueryMetrics_FlushNothingPending(t *testing.T) {
	store := newMemoryStore()
	m := NewQueryMetricsWithConfig(store, manualConfig())

	require.NoError(t, m.Flush(context.Background()))
	assert.Zero(t, store.flushes)
}

func TestQueryMetrics_FlushFailureKeepsCounts(t *testing.T) {
	// Given: a store whose term write fails once
	store := newMemoryStore()
	store.failTerms = errors.New("disk I/O error")
	m := NewQueryMetricsWithConfig(store, manualConfig())
	ctx := context.Background()

	m.Record(QueryEvent{Query: "roadmap", QueryType: QueryTypeSearch, ResultCount: 1})
	require.Error(t, m.Flush(ctx))

	// When: the store recovers
	store.failTerms = nil
	require.NoError(t, m.Flush(ctx))

	// Then: terms arrive and already written counts are not duplicated
	assert.Equal(t, int64(1), store.terms["roadmap"])
	assert.Equal(t, int64(1), store.types[QueryTypeSearch])
}

func TestQueryMetrics_NilStore(t *testing.T) {
	m := NewQueryMetrics(nil)
	m.Record(QueryEvent{Query: "anything", QueryType: QueryTypeSearch, ResultCount: 1})

	assert.NoError(t, m.Flush(context.Background()))
	assert.NoError(t, m.Close())
}

func TestQueryMetrics_CloseFlushesAndIgnoresLaterEvents(t *testing.T) {
	store := newMemoryStore()
	cfg := DefaultQueryMetricsConfig()
	cfg.FlushInterval = time.Hour
	m := NewQueryMetricsWithConfig(store, cfg)

	m.Record(QueryEvent{Query: "slides", QueryType: QueryTypeSearch, ResultCount: 2})
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	m.Record(QueryEvent{Query: "slides", QueryType: QueryTypeSearch, ResultCount: 2})

	assert.Equal(t, int64(1), store.types[QueryTypeSearch])
	assert.Equal(t, int64(1), m.Snapshot().TotalQueries)
}

func TestQueryMetrics_FlushToSQLite(t *testing.T) {
	store := newTestMetricsStore(t)
	m := NewQueryMetricsWithConfig(store, manualConfig())
	ctx := context.Background()

	m.Record(QueryEvent{Query: "tax return", QueryType: QueryTypeSearch, ResultCount: 0})
	m.Record(QueryEvent{Query: "tax", QueryType: QueryTypeSearch, ResultCount: 2})
	require.NoError(t, m.Flush(ctx))

	today := time.Now().Format("2006-01-02")
	types, err := store.GetQueryTypeCounts(ctx, today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), types[QueryTypeSearch])

	top, err := store.GetTopTerms(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, TermCount{Term: "tax", Count: 2}, top[0])

	zero, err := store.GetZeroResultQueries(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"tax return"}, zero)
}
