package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/export"
	"github.com/leadharvest/leadharvest/internal/plan"
)

func newExportCmd() *cobra.Command {
	var (
		datasetID int64
		userID    int64
		tier      string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a dataset's contacts to CSV or XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if datasetID <= 0 {
				return fmt.Errorf("--dataset is required")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			t := plan.Tier(tier)
			if t == "" {
				t = plan.Tier(a.cfg.Plan.DefaultTier)
			}
			uri, err := a.exporter.ExportDataset(cmd.Context(), datasetID, userID, t, f)
			if err != nil {
				return fmt.Errorf("export dataset: %w", err)
			}
			a.log.Info("export written", zap.String("uri", uri))
			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}
	cmd.Flags().Int64Var(&datasetID, "dataset", 0, "dataset id to export")
	cmd.Flags().Int64Var(&userID, "user", 0, "acting user id")
	cmd.Flags().StringVar(&tier, "tier", "", "plan tier for column gating (default from config)")
	cmd.Flags().StringVar(&format, "format", "csv", "artifact format: csv or xlsx")
	return cmd
}
