package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancheck/internal/output"
)

func newLaunchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "launch <path>",
		Short: "Open a file with its default application",
		Long: `Open a file, folder or app with the platform handler and count the
open in the index so it ranks higher next time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.LaunchFile(cmd.Context(), path); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Opened %s", path)
			return nil
		},
	}
}

func newRevealCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <path>",
		Short: "Show a file in its containing folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.OpenContainingFolder(path); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Revealed %s", path)
			return nil
		},
	}
}
