package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadharvest",
		Short: "Contact crawler for business lead datasets",
		Long: `leadharvest crawls the websites of businesses in a dataset,
extracts contact signals (emails, phones, social profiles) and produces
tier-gated CSV or XLSX export artifacts.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newCrawlCmd(), newExportCmd(), newServeCmd())
	return cmd
}

// ExecuteContext runs the CLI under the given context.
func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
