package telemetry

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultZeroResultRetention is how many zero-result queries are kept.
const DefaultZeroResultRetention = 100

const telemetrySchema = `
CREATE TABLE IF NOT EXISTS query_type_counts (
	date TEXT NOT NULL,
	query_type TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, query_type)
);

CREATE TABLE IF NOT EXISTS query_terms (
	term TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 1,
	last_seen INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

CREATE TABLE IF NOT EXISTS zero_result_queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS query_latency_counts (
	date TEXT NOT NULL,
	bucket TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, bucket)
);
`

// SQLiteMetricsStore implements QueryMetricsStore on a shared *sql.DB.
// The connection is owned by the caller and never closed here.
type SQLiteMetricsStore struct {
	db        *sql.DB
	retention int
}

var _ QueryMetricsStore = (*SQLiteMetricsStore)(nil)

// NewSQLiteMetricsStore creates the telemetry tables if needed.
func NewSQLiteMetricsStore(ctx context.Context, db *sql.DB) (*SQLiteMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if _, err := db.ExecContext(ctx, telemetrySchema); err != nil {
		return nil, fmt.Errorf("create telemetry schema: %w", err)
	}
	return &SQLiteMetricsStore{db: db, retention: DefaultZeroResultRetention}, nil
}

// AddQueryTypeCounts adds to the daily query type counters.
func (s *SQLiteMetricsStore) AddQueryTypeCounts(ctx context.Context, date string, counts map[QueryType]int64) error {
	return s.addCounts(ctx, `
		INSERT INTO query_type_counts (date, query_type, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, query_type) DO UPDATE SET count = count + excluded.count`,
		date, stringKeys(counts))
}

// AddLatencyCounts adds to the daily latency histogram.
func (s *SQLiteMetricsStore) AddLatencyCounts(ctx context.Context, date string, counts map[LatencyBucket]int64) error {
	return s.addCounts(ctx, `
		INSERT INTO query_latency_counts (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count`,
		date, stringKeys(counts))
}

func (s *SQLiteMetricsStore) addCounts(ctx context.Context, query, date string, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for key, count := range counts {
		if _, err := stmt.ExecContext(ctx, date, key, count); err != nil {
			return fmt.Errorf("add count for %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// GetQueryTypeCounts sums query type counters over [from, to].
func (s *SQLiteMetricsStore) GetQueryTypeCounts(ctx context.Context, from, to string) (map[QueryType]int64, error) {
	raw, err := s.sumCounts(ctx, `
		SELECT query_type, SUM(count) FROM query_type_counts
		WHERE date >= ? AND date <= ? GROUP BY query_type`, from, to)
	if err != nil {
		return nil, err
	}
	out := make(map[QueryType]int64, len(raw))
	for k, v := range raw {
		out[QueryType(k)] = v
	}
	return out, nil
}

// GetLatencyCounts sums latency buckets over [from, to].
func (s *SQLiteMetricsStore) GetLatencyCounts(ctx context.Context, from, to string) (map[LatencyBucket]int64, error) {
	raw, err := s.sumCounts(ctx, `
		SELECT bucket, SUM(count) FROM query_latency_counts
		WHERE date >= ? AND date <= ? GROUP BY bucket`, from, to)
	if err != nil {
		return nil, err
	}
	out := make(map[LatencyBucket]int64, len(raw))
	for k, v := range raw {
		out[LatencyBucket(k)] = v
	}
	return out, nil
}

func (s *SQLiteMetricsStore) sumCounts(ctx context.Context, query, from, to string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[key] = count
	}
	return out, rows.Err()
}

// AddTermCounts adds to the persistent term frequencies.
func (s *SQLiteMetricsStore) AddTermCounts(ctx context.Context, terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = excluded.last_seen`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for term, count := range terms {
		if _, err := stmt.ExecContext(ctx, term, count); err != nil {
			return fmt.Errorf("upsert term %q: %w", term, err)
		}
	}
	return tx.Commit()
}

// GetTopTerms returns the most frequent terms.
func (s *SQLiteMetricsStore) GetTopTerms(ctx context.Context, limit int) ([]TermCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT term, count FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// AddZeroResultQueries appends queries and trims the table to the
// retention size, dropping the oldest rows.
func (s *SQLiteMetricsStore) AddZeroResultQueries(ctx context.Context, queries []ZeroResultQuery) error {
	if len(queries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO zero_result_queries (query, recorded_at) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, q := range queries {
		if _, err := stmt.ExecContext(ctx, q.Query, q.Timestamp.Unix()); err != nil {
			return fmt.Errorf("insert zero-result query: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM zero_result_queries
		WHERE id NOT IN (SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?)`,
		s.retention); err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}
	return tx.Commit()
}

// GetZeroResultQueries returns the most recent zero-result queries, newest first.
func (s *SQLiteMetricsStore) GetZeroResultQueries(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

func stringKeys[K ~string](m map[K]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
