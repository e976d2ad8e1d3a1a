package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCrawlCmd() *cobra.Command {
	var (
		datasetID int64
		userID    int64
		maxPages  int
		maxDepth  int
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every business website in a dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if datasetID <= 0 {
				return fmt.Errorf("--dataset is required")
			}
			a, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			opts := a.crawlOptions()
			if maxPages > 0 {
				opts.MaxPages = maxPages
			}
			if maxDepth > 0 {
				opts.MaxDepth = maxDepth
			}

			summary, err := a.sched.CrawlDataset(cmd.Context(), datasetID, userID, opts)
			if err != nil {
				return fmt.Errorf("crawl dataset: %w", err)
			}
			a.log.Info("dataset crawl finished",
				zap.Int64("dataset_id", datasetID),
				zap.Int("total", summary.Total),
				zap.Int("crawled", summary.Crawled),
				zap.Int("failed", summary.Failed),
				zap.Int("skipped", summary.Skipped),
				zap.Int("pages", summary.TotalPages),
				zap.Int("emails", summary.TotalEmails),
				zap.Int("phones", summary.TotalPhones))
			for _, msg := range summary.Errors {
				a.log.Warn("crawl error", zap.String("error", msg))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&datasetID, "dataset", 0, "dataset id to crawl")
	cmd.Flags().Int64Var(&userID, "user", 0, "acting user id")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page budget per site (default from config)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "link depth budget per site (default from config)")
	return cmd
}
