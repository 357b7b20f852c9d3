package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancheck/internal/output"
	"github.com/Aman-CERP/ancheck/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the ancheck version with its git commit, build date, Go version
and platform. --format short prints the bare version for scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch format {
			case "text":
				_, err := fmt.Fprintln(out, version.String())
				return err
			case "short":
				_, err := fmt.Fprintln(out, version.Short())
				return err
			case "json":
				return output.New(out).JSON(version.GetInfo())
			default:
				return fmt.Errorf("invalid format %q (supported: text, short, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, short or json")

	return cmd
}
