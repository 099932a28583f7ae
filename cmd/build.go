package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/routegen/internal/collection"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Create every collection page once and write its page data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			start := time.Now()
			cycles, err := a.build(cmd.Context())
			pages := 0
			for _, c := range cycles {
				if c != nil {
					pages += len(c.Paths)
				}
			}
			if err != nil && !errors.Is(err, collection.ErrBuildFailed) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d page(s) from %d collection route(s) in %v.\n",
				pages, len(cycles), time.Since(start).Round(time.Millisecond))
			if n := a.reporter.Errors(); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d collection route(s) reported errors.\n", n)
			}
			return err
		},
	}
}
