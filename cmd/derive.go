package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/routegen/internal/derive"
	"github.com/agentic-research/routegen/internal/output"
	"github.com/agentic-research/routegen/internal/record"
	"github.com/agentic-research/routegen/internal/route"
)

func newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <pattern> <record.json>",
		Short: "Print the page path a pattern produces for one record",
		Example: `  routegen derive 'product/{Product.sku}.js' hat.json
  routegen derive 'blog/{Post.parent__(File)__name}.tsx' post.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			pattern := args[0]

			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read record: %w", err)
			}
			var rec record.Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", args[1], err)
			}

			logger := output.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
			res := derive.Derive(pattern, rec, derive.Options{Logger: logger})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:   %s\n", route.CreatePath(res.Path, cfg.TrailingSlash))
			fmt.Fprintf(out, "errors: %d\n", res.Errors)
			for _, m := range res.Missing {
				fmt.Fprintf(out, "missing: %s\n", m)
			}
			return nil
		},
	}
}
