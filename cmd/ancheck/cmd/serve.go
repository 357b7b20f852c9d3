package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/ancheck/internal/app"
	"github.com/Aman-CERP/ancheck/internal/async"
	"github.com/Aman-CERP/ancheck/internal/mcp"
)

// serveLockName guards against two `serve` processes on one database.
const serveLockName = "serve.lock"

// statusLogInterval is how often serve logs a status line.
const statusLogInterval = time.Minute

func newServeCmd(opts *rootOptions) *cobra.Command {
	var skipInitial bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the index fresh in the background",
		Long: `Run an initial full pass, then an incremental pass on the configured
interval (index.initial_delay, index.interval) until interrupted.

Only one serve process may run per database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lock := async.NewFileLock(filepath.Join(filepath.Dir(opts.cfg.EffectiveDBPath()), serveLockName))
			locked, err := lock.TryLock()
			if err != nil {
				return err
			}
			if !locked {
				return fmt.Errorf("another ancheck serve is already running (lock: %s)", lock.Path())
			}
			defer func() { _ = lock.Unlock() }()

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "ancheck serving; press Ctrl+C to stop")
			return runServe(ctx, a, !skipInitial, statusLogInterval)
		},
	}

	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "Skip the initial full pass")

	return cmd
}

// runServe runs the background loop and a periodic status logger until
// ctx is done.
func runServe(ctx context.Context, a *app.App, initialFull bool, every time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	bg := a.StartBackground(gctx, initialFull)
	g.Go(func() error {
		<-gctx.Done()
		bg.Stop()
		bg.Wait()
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				st, err := a.Status(gctx)
				if err != nil {
					slog.Warn("serve_status_failed", slog.String("error", err.Error()))
					continue
				}
				slog.Info("serve_status",
					slog.Int64("count", st.Count),
					slog.Bool("indexing", st.Indexing),
					slog.Int("passes", bg.Passes()))
			}
		}
	})

	return g.Wait()
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var (
		transport   string
		skipInitial bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server for AI clients",
		Long: `Serve the index over the Model Context Protocol so AI clients can
search, launch and reveal local files.

stdout is reserved for JSON-RPC; logs go to the log file only. The
background index loop runs alongside the server.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{ownsTerminal: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			srv, err := mcp.NewServer(a)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			a.StartBackground(gctx, !skipInitial)
			g.Go(func() error {
				return srv.Serve(gctx, transport)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport (stdio)")
	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "Skip the initial full pass")

	return cmd
}
