package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetsim/app"
)

var learnOut string

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Learn a demand prior from historical trips",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(_ context.Context, svc *app.Service) error {
			out := learnOut
			if out == "" {
				out = svc.PriorPath()
			}
			if out == "" {
				return fmt.Errorf("no output: set --out or input.prior")
			}
			n, err := svc.Learn(out)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "learned from %d trips into %s\n", n, out)
			return err
		})
	},
}

func init() {
	learnCmd.Flags().StringVarP(&learnOut, "out", "o", "", "prior file to write (defaults to input.prior)")
	rootCmd.AddCommand(learnCmd)
}
