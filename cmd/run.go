package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetsim/app"
	"github.com/kilianp07/fleetsim/core/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the configured trips once and print the summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			res, err := svc.Run(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				RunID   string         `json:"run_id"`
				Summary report.Summary `json:"summary"`
			}{res.RunID, res.Summary})
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
