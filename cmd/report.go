package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetsim/core/report"
	"github.com/kilianp07/fleetsim/infra/store"
)

var reportRunID string

var reportCmd = &cobra.Command{
	Use:   "report <results.jsonl>",
	Short: "Summarise a JSONL result file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		legs, vehicles, err := store.ReadJSONL(f, reportRunID)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report.Summarize(legs, vehicles))
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "only summarise this run id")
	rootCmd.AddCommand(reportCmd)
}
