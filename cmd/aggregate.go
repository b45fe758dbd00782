package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stanse/fec-pipeline/internal/fecstore"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Build per-party summaries for every company group",
	Long: `Rebuilds the per-company per-year party summaries from both source
paths: direct PAC-to-candidate contributions (linkage) and
committee-to-committee transfers. A company with no data for a source
gets that summary removed, not zeroed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			return eris.New("aggregate: --year is required")
		}

		pool, err := pipelinePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		runner := newAggregateRunner(fecstore.NewStore(pool))
		stats, err := runner.Run(ctx, year, cfg.Aggregate.Concurrency)
		if err != nil {
			return eris.Wrap(err, "aggregate")
		}

		fmt.Printf("Aggregation complete: %d groups, %d linkage summaries, %d transfer summaries, %d removed\n",
			stats.Groups, stats.LinkageWritten, stats.TransferWritten, stats.Removed)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().Int("year", 0, "data year to aggregate (required)")
	rootCmd.AddCommand(aggregateCmd)
}
