package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancheck/internal/calc"
	"github.com/Aman-CERP/ancheck/internal/output"
	"github.com/Aman-CERP/ancheck/internal/search"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index by name",
		Long: `Search indexed files, folders and apps by name.

Multiple arguments are joined with spaces. Arithmetic queries also
print the computed value before the results.`,
		Example: `  ancheck search budget
  ancheck search "quarterly report" --limit 5
  ancheck search calc --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format %q (supported: text, json)", format)
			}
			if limit < 0 || limit > search.MaxResultsLimit {
				return fmt.Errorf("invalid --limit %d (must be between 0 and %d)", limit, search.MaxResultsLimit)
			}
			query := strings.Join(args, " ")

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			results, err := a.SearchN(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			math, _ := a.EvalMath(query)

			out := output.New(cmd.OutOrStdout())
			if format == "json" {
				if results == nil {
					results = []*search.SearchResult{}
				}
				return out.JSON(output.SearchJSON{Query: query, Math: math, Results: results})
			}
			out.Results(query, math, results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (0 = search.max_results)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func newCalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "calc <expression>",
		Short:   "Evaluate an arithmetic expression",
		Example: `  ancheck calc "2+2*3"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := strings.Join(args, " ")
			result, ok := calc.Evaluate(expr)
			if !ok {
				return fmt.Errorf("not an arithmetic expression: %q", expr)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), result)
			return err
		},
	}
}
