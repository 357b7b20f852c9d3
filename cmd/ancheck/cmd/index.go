package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancheck/internal/ui"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var (
		incremental bool
		noTUI       bool
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the index",
		Long: `Walk the configured roots and write every entry to the index.

By default a full pass re-walks every root and upserts each entry.
Use --incremental to first remove rows whose paths no longer exist.

Only one pass runs at a time across processes; a second invocation
fails immediately while another pass holds the index lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runIndex(ctx, cmd, opts, incremental, noTUI, noColor)
		},
	}

	cmd.Flags().BoolVar(&incremental, "incremental", false, "Remove deleted entries before re-walking")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts *rootOptions, incremental, noTUI, noColor bool) error {
	a, err := opts.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(noTUI),
		ui.WithNoColor(noColor)))
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	watchCtx, stopWatch := context.WithCancel(ctx)
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		ui.WatchProgress(watchCtx, a.Progress(), renderer, 100*time.Millisecond)
	}()

	start := time.Now()
	kind := "full"
	var indexed, removed int
	if incremental {
		kind = "incremental"
		indexed, removed, err = a.IncrementalIndex(ctx)
	} else {
		indexed, err = a.RebuildIndex(ctx)
	}
	stopWatch()
	<-watched

	if err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		return err
	}

	renderer.Complete(ui.CompletionStats{
		Kind:     kind,
		Indexed:  indexed,
		Removed:  removed,
		Duration: time.Since(start),
	})
	return nil
}
