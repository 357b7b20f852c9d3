package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/ancheck/internal/async"
	"github.com/Aman-CERP/ancheck/internal/config"
	"github.com/Aman-CERP/ancheck/internal/index"
	"github.com/Aman-CERP/ancheck/internal/launcher"
	"github.com/Aman-CERP/ancheck/internal/scanner"
	"github.com/Aman-CERP/ancheck/internal/search"
	"github.com/Aman-CERP/ancheck/internal/store"
	"github.com/Aman-CERP/ancheck/internal/telemetry"
)

// OpenOption customizes Open.
type OpenOption func(*openSettings)

type openSettings struct {
	launcher launcher.Launcher
}

// WithLauncher replaces the platform launcher.
func WithLauncher(l launcher.Launcher) OpenOption {
	return func(s *openSettings) {
		if l != nil {
			s.launcher = l
		}
	}
}

// Open builds an App from configuration: it opens (or creates) the index
// database and wires the scanner, runner, search engine and telemetry.
func Open(ctx context.Context, cfg *config.Config, opts ...OpenOption) (*App, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	settings := openSettings{launcher: launcher.New()}
	for _, opt := range opts {
		opt(&settings)
	}

	dbPath := cfg.EffectiveDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.NewSQLiteFileStore(dbPath)
	if err != nil {
		return nil, err
	}

	var metrics *telemetry.QueryMetrics
	if cfg.Telemetry.Enabled {
		metricsStore, err := telemetry.NewSQLiteMetricsStore(ctx, st.DB())
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		mcfg := telemetry.DefaultQueryMetricsConfig()
		mcfg.FlushInterval = cfg.Telemetry.FlushInterval
		metrics = telemetry.NewQueryMetricsWithConfig(metricsStore, mcfg)
	}

	sc, err := scanner.New()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	runner, err := index.NewRunner(
		index.RunnerDependencies{Store: st, Scanner: sc, Progress: async.NewIndexProgress()},
		index.RunnerConfig{Scan: cfg.ScanOptions(), BatchSize: cfg.Index.BatchSize},
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engineOpts := []search.EngineOption{
		search.WithDefaultMaxResults(cfg.Search.MaxResults),
		search.WithCandidateMultiplier(cfg.Search.CandidateMultiplier),
	}
	if metrics != nil {
		engineOpts = append(engineOpts, search.WithMetrics(metrics))
	}
	engine, err := search.NewEngine(st, engineOpts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a, err := New(Dependencies{
		Store:    st,
		Indexer:  runner,
		Searcher: engine,
		Launcher: settings.launcher,
		Metrics:  metrics,
	}, Options{
		MaxResults: cfg.Search.MaxResults,
		LockPath:   filepath.Join(filepath.Dir(dbPath), config.LockFileName),
		DBPath:     dbPath,
		Background: async.IndexerConfig{
			InitialDelay: cfg.Index.InitialDelay,
			Interval:     cfg.Index.Interval,
		},
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	slog.Info("app_opened",
		slog.String("db_path", dbPath),
		slog.Int("roots", len(cfg.EffectiveRoots())),
		slog.Bool("telemetry", metrics != nil))
	return a, nil
}
