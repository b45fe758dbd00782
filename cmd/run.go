package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanse/fec-pipeline/internal/fec"
	"github.com/stanse/fec-pipeline/internal/fec/consolidate"
	"github.com/stanse/fec-pipeline/internal/fec/dataset"
	"github.com/stanse/fec-pipeline/internal/fec/index"
	"github.com/stanse/fec-pipeline/internal/fec/resolve"
	"github.com/stanse/fec-pipeline/internal/fecstore"
	"github.com/stanse/fec-pipeline/internal/fetcher"
	"github.com/stanse/fec-pipeline/internal/resilience"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline end to end",
	Long: `Runs migrate, ingest, variant indexing, aggregation, and consolidation
in order for every configured data year. Stops at the first phase that
fails; ingest failures leave checkpoints behind so a re-run resumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "run"))

		if err := cfg.Validate("pipeline"); err != nil {
			return err
		}

		pool, err := pipelinePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := fec.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "run: migrate")
		}

		// Ingest.
		if err := os.MkdirAll(cfg.FEC.TempDir, 0o755); err != nil {
			return eris.Wrapf(err, "run: create temp dir %s", cfg.FEC.TempDir)
		}
		checkpoints, err := fecstore.NewCheckpointStore(cfg.FEC.CheckpointPath)
		if err != nil {
			return err
		}
		defer checkpoints.Close()

		deps := &dataset.Deps{
			Pool:        pool,
			Fetcher:     fetcher.ForBaseURL(cfg.FEC.BaseURL),
			Checkpoints: checkpoints,
			TempDir:     cfg.FEC.TempDir,
			BaseURL:     cfg.FEC.BaseURL,
			DataYears:   cfg.FEC.DataYears,
			BatchSize:   cfg.FEC.BatchSize,
			Retry:       resilience.StorageRetryConfig(),
			Refresh:     poolRefresh(pool),
		}
		engine := dataset.NewEngine(deps, fec.NewSyncLog(pool), dataset.NewRegistry())
		ingestStats, err := engine.Run(ctx, dataset.RunOpts{Force: true})
		if err != nil {
			return eris.Wrap(err, "run: ingest")
		}
		if ingestStats.Failed > 0 {
			return eris.Errorf("run: %d datasets failed to ingest; re-run to resume from checkpoints", ingestStats.Failed)
		}
		log.Info("ingest complete", zap.Int("synced", ingestStats.Synced))

		// Variant index.
		store := fecstore.NewStore(pool)
		seeds, err := loadSeeds()
		if err != nil {
			return err
		}
		builder := index.NewBuilder(store, store, resolve.NewGreedyGrouper(seeds))
		indexStats, err := builder.Build(ctx, cfg.FEC.DataYears)
		if err != nil {
			return eris.Wrap(err, "run: build index")
		}
		log.Info("index complete",
			zap.Int("new_groups", indexStats.NewGroups),
			zap.Int("updated_groups", indexStats.UpdatedGroups),
		)

		// Aggregate and consolidate, per year.
		runner := newAggregateRunner(store)
		consolidator := consolidate.NewRunner(store, store, store, store)
		for _, year := range cfg.FEC.DataYears {
			aggStats, err := runner.Run(ctx, year, cfg.Aggregate.Concurrency)
			if err != nil {
				return eris.Wrapf(err, "run: aggregate %d", year)
			}
			log.Info("aggregation complete",
				zap.Int("year", year),
				zap.Int("linkage", aggStats.LinkageWritten),
				zap.Int("transfers", aggStats.TransferWritten),
			)

			result, err := consolidator.Run(ctx, consolidate.Options{
				DataYear:    year,
				Concurrency: cfg.Consolidate.Concurrency,
				Retry:       resilience.StorageRetryConfig(),
				Refresh:     poolRefresh(pool),
			})
			if err != nil {
				return eris.Wrapf(err, "run: consolidate %d", year)
			}
			fmt.Printf("Year %d: %d consolidated, %d skipped, %d failed\n",
				year, result.Written, result.Skipped, result.Failed)
			if result.Failed > 0 {
				return eris.Errorf("run: consolidate %d: %d records failed", year, result.Failed)
			}
		}

		fmt.Println("Pipeline complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
