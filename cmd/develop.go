package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentic-research/routegen/internal/collection"
)

func newDevelopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "develop",
		Short: "Build collection pages, then rebuild them as components and data change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := getConfig(cmd)
			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			// Failed placeholders are fatal for a build but not while
			// developing: the next save may fix them.
			if _, err := a.build(ctx); err != nil && !errors.Is(err, collection.ErrBuildFailed) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			// From here on the reporter counts one rebuild at a time.
			a.reporter.Reset()

			a.logger.Info("watching for changes", "pages_dir", cfg.PagesDir, "data_source", cfg.DataSource)
			return a.coord.Run(ctx, cfg.PagesDir, cfg.DataSource)
		},
	}
}
