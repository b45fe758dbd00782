package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanse/fec-pipeline/internal/fec"
	"github.com/stanse/fec-pipeline/internal/fec/dataset"
	"github.com/stanse/fec-pipeline/internal/fecstore"
	"github.com/stanse/fec-pipeline/internal/fetcher"
	"github.com/stanse/fec-pipeline/internal/resilience"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Download and load FEC bulk files",
	Long: `Loads the FEC bulk files (committees, candidates, contributions, transfers)
into fec_data.* tables for the configured data years.

By default, syncs all datasets whose schedule says they are due.
Use --phase to restrict to a phase, or --datasets for specific datasets.
Use --force to ignore scheduling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "ingest"))

		pool, err := pipelinePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := fec.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "ingest: migrate")
		}

		opts, err := parseIngestOpts(cmd)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.FEC.TempDir, 0o755); err != nil {
			return eris.Wrapf(err, "ingest: create temp dir %s", cfg.FEC.TempDir)
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

		log.Info("starting ingest",
			zap.Ints("years", cfg.FEC.DataYears),
			zap.Strings("datasets", opts.Datasets),
			zap.Bool("force", opts.Force),
		)

		stats, err := engine.Run(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		fmt.Printf("Ingest complete: %d synced, %d skipped, %d failed (run %s)\n",
			stats.Synced, stats.Skipped, stats.Failed, stats.RunID)
		if stats.Failed > 0 {
			return eris.Errorf("ingest: %d datasets failed; re-run to resume from checkpoints", stats.Failed)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("phase", "", "restrict to phase: masters, transactions")
	ingestCmd.Flags().String("datasets", "", "comma-separated dataset names (e.g., committees,transfers)")
	ingestCmd.Flags().Bool("force", false, "ignore scheduling and sync everything requested")
	rootCmd.AddCommand(ingestCmd)
}

// parseIngestOpts extracts dataset.RunOpts from the cobra command flags.
func parseIngestOpts(cmd *cobra.Command) (dataset.RunOpts, error) {
	phaseStr, _ := cmd.Flags().GetString("phase")
	datasetsStr, _ := cmd.Flags().GetString("datasets")
	force, _ := cmd.Flags().GetBool("force")

	opts := dataset.RunOpts{Force: force}

	if phaseStr != "" {
		p, err := dataset.ParsePhase(phaseStr)
		if err != nil {
			return dataset.RunOpts{}, err
		}
		opts.Phase = &p
	}

	if datasetsStr != "" {
		opts.Datasets = strings.Split(datasetsStr, ",")
		for i := range opts.Datasets {
			opts.Datasets[i] = strings.TrimSpace(opts.Datasets[i])
		}
	}

	return opts, nil
}
