package main

import (
	"fmt"
	"io"
	"time"

	"genfity-analytics-service/internal/seed"
	"genfity-analytics-service/internal/store"

	"github.com/spf13/cobra"
)

func (a *app) seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a synthetic JSON order dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			count, _ := flags.GetInt("count")
			days, _ := flags.GetInt("days")
			merchants, _ := flags.GetInt("merchants")
			randSeed, _ := flags.GetInt64("seed")
			out, _ := flags.GetString("out")
			quiet, _ := flags.GetBool("quiet")

			if count <= 0 || days <= 0 || merchants <= 0 {
				return fmt.Errorf("--count, --days and --merchants must be positive")
			}

			var progress io.Writer
			if !quiet {
				progress = cmd.ErrOrStderr()
			}
			records := seed.Generate(seed.Options{
				Count:     count,
				Days:      days,
				Merchants: merchants,
				Seed:      randSeed,
				Now:       time.Now().In(a.engine().Location()),
				Progress:  progress,
			})
			if err := store.WriteRecords(out, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d orders for %d merchants to %s\n", len(records), merchants, out)
			return nil
		},
	}
	cmd.Flags().Int("count", 500, "Number of orders")
	cmd.Flags().Int("days", 30, "Spread orders over the last N days")
	cmd.Flags().Int("merchants", 1, "Number of merchants")
	cmd.Flags().Int64("seed", 42, "Random seed")
	cmd.Flags().String("out", "", "Output file (required)")
	cmd.Flags().Bool("quiet", false, "Hide the progress bar")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
