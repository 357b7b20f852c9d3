package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancheck/internal/ui"
)

func newUICmd(opts *rootOptions) *cobra.Command {
	var (
		limit   int
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive search picker",
		Long: `Search as you type. Up/Down moves the selection, Enter opens it,
Ctrl+O reveals it in its folder and Esc quits.

The background index loop keeps running while the picker is open.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{ownsTerminal: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			a.StartBackground(ctx, false)

			outcome, err := ui.Run(ctx, a, ui.PickerOptions{
				Limit:     limit,
				NoColor:   noColor,
				Input:     cmd.InOrStdin(),
				Output:    cmd.OutOrStdout(),
				AltScreen: true,
			})
			if err != nil {
				return err
			}
			slog.Debug("picker_closed",
				slog.String("action", outcome.Action),
				slog.String("path", outcome.Path))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results shown (0 = search.max_results)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
