package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancheck/internal/ui"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var (
		format  string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health",
		Long:  `Show the entry count, whether a pass is running, and when the last full and incremental passes finished.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format %q (supported: text, json)", format)
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			st, err := a.Status(cmd.Context())
			if err != nil {
				return err
			}

			info := ui.StatusInfo{
				Count:                st.Count,
				Indexing:             st.Indexing,
				LastFullIndex:        st.LastFullIndex,
				LastIncrementalIndex: st.LastIncrementalIndex,
				DBPath:               st.DBPath,
				Roots:                opts.cfg.EffectiveRoots(),
				LastError:            st.Progress.ErrorMessage,
			}
			if fi, err := os.Stat(st.DBPath); err == nil {
				info.DBSize = fi.Size()
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || ui.DetectNoColor())
			if format == "json" {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
