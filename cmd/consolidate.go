package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stanse/fec-pipeline/internal/fec/consolidate"
	"github.com/stanse/fec-pipeline/internal/fecstore"
	"github.com/stanse/fec-pipeline/internal/resilience"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge source summaries into consolidated records",
	Long: `Merges the linkage and PAC-transfer summaries of every company group
into one consolidated record per (company, year), snapshotting the prior
record into history before each overwrite.

Use --companies to restrict to specific canonical names, --dry-run to
log what would be written without writing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			return eris.New("consolidate: --year is required")
		}
		companiesStr, _ := cmd.Flags().GetString("companies")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		var companies []string
		if companiesStr != "" {
			companies = strings.Split(companiesStr, ",")
			for i := range companies {
				companies[i] = strings.TrimSpace(companies[i])
			}
		}

		pool, err := pipelinePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := fecstore.NewStore(pool)
		runner := consolidate.NewRunner(store, store, store, store)

		result, err := runner.Run(ctx, consolidate.Options{
			DataYear:    year,
			Companies:   companies,
			Concurrency: cfg.Consolidate.Concurrency,
			DryRun:      dryRun,
			Retry:       resilience.StorageRetryConfig(),
			Refresh:     poolRefresh(pool),
		})
		if err != nil {
			return eris.Wrap(err, "consolidate")
		}

		fmt.Printf("Consolidation complete: %d written, %d skipped, %d failed\n",
			result.Written, result.Skipped, result.Failed)
		if result.Failed > 0 {
			return eris.Errorf("consolidate: %d records failed: %s",
				result.Failed, strings.Join(result.FailedKeys, ", "))
		}
		return nil
	},
}

func init() {
	consolidateCmd.Flags().Int("year", 0, "data year to consolidate (required)")
	consolidateCmd.Flags().String("companies", "", "comma-separated canonical names to restrict to")
	consolidateCmd.Flags().Bool("dry-run", false, "log what would be written without writing")
	rootCmd.AddCommand(consolidateCmd)
}
