package dataset

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/stanse/fec-pipeline/internal/fec"
)

// Engine orchestrates dataset sync runs. Every dataset synced within one
// Run shares a run ID in the sync log.
type Engine struct {
	deps    *Deps
	syncLog *fec.SyncLog
	reg     *Registry
}

// RunOpts configures which datasets to sync and how.
type RunOpts struct {
	Phase    *Phase   // restrict to a specific phase
	Datasets []string // restrict to specific dataset names
	Force    bool     // ignore ShouldRun() scheduling
}

// RunStats reports the outcome of an engine run.
type RunStats struct {
	RunID   uuid.UUID
	Synced  int
	Skipped int
	Failed  int
}

// NewEngine creates a new sync engine.
func NewEngine(deps *Deps, syncLog *fec.SyncLog, reg *Registry) *Engine {
	return &Engine{deps: deps, syncLog: syncLog, reg: reg}
}

// Run iterates over the selected datasets, checks if each needs syncing,
// and runs the sync. Results are recorded in the sync log. A dataset
// failure does not abort the run; the stats report it and the caller
// decides the exit status.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*RunStats, error) {
	log := zap.L().With(zap.String("component", "fec.engine"))
	now := time.Now().UTC()
	stats := &RunStats{RunID: uuid.New()}

	datasets, err := e.reg.Select(opts.Phase, opts.Datasets)
	if err != nil {
		return nil, err
	}

	if len(datasets) == 0 {
		log.Info("no datasets selected")
		return stats, nil
	}

	log.Info("selected datasets",
		zap.Int("count", len(datasets)),
		zap.String("run_id", stats.RunID.String()),
	)

	for _, ds := range datasets {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		dsLog := log.With(zap.String("dataset", ds.Name()), zap.String("phase", ds.Phase().String()))

		if !opts.Force {
			lastSync, err := e.syncLog.LastSuccess(ctx, ds.Name())
			if err != nil {
				return stats, eris.Wrapf(err, "engine: check last sync for %s", ds.Name())
			}

			if !ds.ShouldRun(now, lastSync) {
				dsLog.Debug("skipping (not due)")
				stats.Skipped++
				continue
			}
		}

		dsLog.Info("starting sync")
		syncID, err := e.syncLog.Start(ctx, stats.RunID, ds.Name())
		if err != nil {
			return stats, eris.Wrapf(err, "engine: start sync log for %s", ds.Name())
		}

		start := time.Now()
		result, err := ds.Sync(ctx, e.deps)
		elapsed := time.Since(start)

		if err != nil {
			dsLog.Error("sync failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			if logErr := e.syncLog.Fail(ctx, syncID, err.Error()); logErr != nil {
				dsLog.Error("failed to record sync failure", zap.Error(logErr))
			}
			stats.Failed++
			continue
		}

		logResult := &fec.SyncResult{
			RowsSynced: result.RowsSynced,
			Metadata:   result.Metadata,
		}
		if result.LinesSkipped > 0 {
			if logResult.Metadata == nil {
				logResult.Metadata = map[string]any{}
			}
			logResult.Metadata["lines_skipped"] = result.LinesSkipped
		}

		if err := e.syncLog.Complete(ctx, syncID, logResult); err != nil {
			dsLog.Error("failed to record sync completion", zap.Error(err))
		}

		dsLog.Info("sync complete",
			zap.Int64("rows", result.RowsSynced),
			zap.Int64("lines_skipped", result.LinesSkipped),
			zap.Duration("elapsed", elapsed),
		)
		stats.Synced++
	}

	log.Info("engine run complete",
		zap.Int("synced", stats.Synced),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
