package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancheck/internal/preflight"
)

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var (
		verbose bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that this machine can build and serve the index",
		Long: `Run preflight checks: write access and free disk space at the data
directory, the open file limit, root readability and the integrity of an
existing index.

Exits non-zero when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checker := preflight.New(
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)
			results := checker.RunAll(cmd.Context(), preflight.Target{
				DBPath: opts.cfg.EffectiveDBPath(),
				Roots:  opts.cfg.EffectiveRoots(),
			})

			status := checker.SummaryStatus(results)
			slog.Info("doctor_completed",
				slog.String("status", status),
				slog.Int("checks", len(results)))

			switch format {
			case "text":
				checker.PrintResults(results)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"status": status, "checks": results}); err != nil {
					return err
				}
			default:
				return fmt.Errorf("invalid format %q (supported: text, json)", format)
			}

			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}
