package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetricsStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteMetricsStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

func TestNewSQLiteMetricsStore_NilDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(context.Background(), nil)
	assert.Error(t, err)
}

func TestSQLiteMetricsStore_QueryTypeCountsAccumulate(t *testing.T) {
	// Given: a store with counts written twice on the same day
	store := newTestMetricsStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddQueryTypeCounts(ctx, "2026-03-01", map[QueryType]int64{
		QueryTypeSearch: 10,
		QueryTypeMath:   2,
	}))
	require.NoError(t, store.AddQueryTypeCounts(ctx, "2026-03-01", map[QueryType]int64{
		QueryTypeSearch: 5,
	}))

	// When: reading the day back
	got, err := store.GetQueryTypeCounts(ctx, "2026-03-01", "2026-03-01")
	require.NoError(t, err)

	// Then: counts are summed
	assert.Equal(t, int64(15), got[QueryTypeSearch])
	assert.Equal(t, int64(2), got[QueryTypeMath])
}

func TestSQLiteMetricsStore_DateRange(t *testing.T) {
	store := newTestMetricsStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddQueryTypeCounts(ctx, "2026-03-01", map[QueryType]int64{QueryTypeSearch: 1}))
	require.NoError(t, store.AddQueryTypeCounts(ctx, "2026-03-02", map[QueryType]int64{QueryTypeSearch: 2}))
	require.NoError(t, store.AddQueryTypeCounts(ctx, "2026-03-05", map[QueryType]int64{QueryTypeSearch: 4}))

	got, err := store.GetQueryTypeCounts(ctx, "2026-03-01", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got[QueryTypeSearch])

	got, err = store.GetQueryTypeCounts(ctx, "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got[QueryTypeSearch])
}

func TestSQLiteMetricsStore_LatencyCounts(t *testing.T) {
	store := newTestMetricsStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddLatencyCounts(ctx, "2026-03-01", map[LatencyBucket]int64{
		BucketP10: 7,
		BucketP50: 3,
	}))
	require.NoError(t, store.AddLatencyCounts(ctx, "2026-03-01", map[LatencyBucket]int64{
		BucketP10: 1,
	}))

	got, err := store.GetLatencyCounts(ctx, "2026-03-01", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(8), got[BucketP10])
	assert.Equal(t, int64(3), got[BucketP50])
	assert.Zero(t, got[BucketP1000])
}

func TestSQLiteMetricsStore_TopTerms(t *testing.T) {
	store := newTestMetricsStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddTermCounts(ctx, map[string]int64{"report": 3, "invoice": 5, "notes": 1}))
	require.NoError(t, store.AddTermCounts(ctx, map[string]int64{"report": 4}))

	top, err := store.GetTopTerms(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, TermCount{Term: "report", Count: 7}, top[0])
	assert.Equal(t, TermCount{Term: "invoice", Count: 5}, top[1])
}

func TestSQLiteMetricsStore_EmptyInputsAreNoops(t *testing.T) {
	store := newTestMetricsStore(t)
	ctx := context.Background()

	assert.NoError(t, store.AddTermCounts(ctx, nil))
	assert.NoError(t, store.AddQueryTypeCounts(ctx, "2026-03-01", nil))
	assert.NoError(t, store.AddLatencyCounts(ctx, "2026-03-01", map[LatencyBucket]int64{}))
	assert.NoError(t, store.AddZeroResultQueries(ctx, nil))

	top, err := store.GetTopTerms(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestSQLiteMetricsStore_ZeroResultQueriesNewestFirst(t *testing.T) {
	store := newTestMetricsStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.AddZeroResultQueries(ctx, []ZeroResultQuery{
		{Query: "first", Timestamp: now},
		{Query: "second", Timestamp: now},
	}))
	require.NoError(t, store.AddZeroResultQueries(ctx, []ZeroResultQuery{
		{Query: "third", Timestamp: now},
	}))

	got, err := store.GetZeroResultQueries(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, got)
}

func TestSQLiteMetricsStore_ZeroResultQueriesTrimmed(t *testing.T) {
	// Given: more zero-result queries than the retention size
	store := newTestMetricsStore(t)
	store.retention = 5
	ctx := context.Background()

	batch := make([]ZeroResultQuery, 0, 8)
	for i := 0; i < 8; i++ {
		batch = append(batch, ZeroResultQuery{Query: fmt.Sprintf("q%d", i), Timestamp: time.Now()})
	}
	require.NoError(t, store.AddZeroResultQueries(ctx, batch))

	// Then: only the newest rows survive
	got, err := store.GetZeroResultQueries(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"q7", "q6", "q5", "q4", "q3"}, got)
}
