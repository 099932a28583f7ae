// Package cmd implements the routegen command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/routegen/internal/config"
)

type configKey struct{}

// NewRootCmd builds the routegen command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "routegen",
		Short: "routegen: collection routes from templated page file names",
		Long: `routegen turns page components named after record fields, such as
src/pages/product/{Product.sku}.js, into one page per record returned by the
query embedded in the component.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if cfg.Verbose && cfg.ConfigFile != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", cfg.ConfigFile)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./routegen.yaml)")
	pf.String("pages-dir", config.DefaultPagesDir, "directory holding page components")
	pf.StringP("data", "d", "", "data source queried by collection routes (.db or .json)")
	pf.String("output-dir", config.DefaultOutputDir, "directory receiving page-data")
	pf.String("manifest", config.DefaultManifestPath, "manifest of pages produced by previous runs")
	pf.Bool("trailing-slash", true, "end generated paths with /")
	pf.BoolP("verbose", "v", false, "log every step")
	pf.Int("debounce-ms", config.DefaultDebounceMS, "watch debounce window in milliseconds")
	pf.Int("concurrency", 0, "collection builds run at once (0 = unlimited)")
	pf.StringSlice("query-tags", nil, "template tags recognised as collection queries")

	rootCmd.AddCommand(newBuildCmd(), newDevelopCmd(), newDeriveCmd())
	return rootCmd
}

func getConfig(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{}
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
