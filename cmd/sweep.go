package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetsim/app"
	"github.com/kilianp07/fleetsim/pkg/export"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run every combination of the sweep parameters",
	Long: `Expands the sweep section into the cartesian product of its parameter
lists and simulates each combination on a worker pool. One summary row per
run is written to output.summary_path, or printed as CSV when it is empty.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			results, err := svc.Sweep(ctx)
			if err != nil {
				return err
			}
			if !svc.WritesSummary() {
				return export.WriteCSV(cmd.OutOrStdout(), results)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
