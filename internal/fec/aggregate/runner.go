package aggregate

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

// GroupLister enumerates the persisted variant groups.
type GroupLister interface {
	AllGroups(ctx context.Context) ([]model.VariantGroup, error)
}

// SummaryWriter persists per-source summaries. Replace overwrites the
// whole document; Delete removes a stale one when a rebuild finds no data.
type SummaryWriter interface {
	ReplaceSummary(ctx context.Context, s *model.PartySummary) error
	DeleteSummary(ctx context.Context, normalizedName string, dataYear int, source model.SummarySource) error
}

// RunStats reports one aggregation run.
type RunStats struct {
	Groups          int
	LinkageWritten  int
	TransferWritten int
	Removed         int
}

// Runner rebuilds both summary paths for every variant group. Summaries
// are fully rebuilt, never patched: a group with no data for a source
// gets its summary deleted rather than zeroed.
type Runner struct {
	groups    GroupLister
	linkage   *LinkageBuilder
	transfers *TransferBuilder
	writer    SummaryWriter
	log       *zap.Logger
}

// NewRunner wires an aggregation runner.
func NewRunner(groups GroupLister, linkage *LinkageBuilder, transfers *TransferBuilder, writer SummaryWriter) *Runner {
	return &Runner{
		groups:    groups,
		linkage:   linkage,
		transfers: transfers,
		writer:    writer,
		log:       zap.L().With(zap.String("component", "fec.aggregate")),
	}
}

// Run rebuilds summaries for the given year across all groups with
// bounded parallelism. Any storage error aborts the run.
func (r *Runner) Run(ctx context.Context, dataYear, concurrency int) (*RunStats, error) {
	if dataYear == 0 {
		return nil, eris.New("aggregate: data year is required")
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	groups, err := r.groups.AllGroups(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "aggregate: list groups")
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CanonicalName < groups[j].CanonicalName })

	stats := &RunStats{Groups: len(groups)}
	var mu sync.Mutex

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for _, g := range groups {
		group := g
		eg.Go(func() error {
			linkage, err := r.linkage.Build(gctx, group, dataYear)
			if err != nil {
				return eris.Wrapf(err, "aggregate: linkage for %s", group.CanonicalName)
			}
			transfer, err := r.transfers.Build(gctx, group, dataYear)
			if err != nil {
				return eris.Wrapf(err, "aggregate: transfers for %s", group.CanonicalName)
			}

			mu.Lock()
			defer mu.Unlock()

			if err := r.store(gctx, group, dataYear, model.SourceLinkage, linkage, &stats.LinkageWritten, &stats.Removed); err != nil {
				return err
			}
			return r.store(gctx, group, dataYear, model.SourcePACTransfers, transfer, &stats.TransferWritten, &stats.Removed)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	r.log.Info("aggregation run complete",
		zap.Int("data_year", dataYear),
		zap.Int("groups", stats.Groups),
		zap.Int("linkage_written", stats.LinkageWritten),
		zap.Int("transfer_written", stats.TransferWritten),
		zap.Int("removed", stats.Removed),
	)
	return stats, nil
}

func (r *Runner) store(ctx context.Context, group model.VariantGroup, dataYear int, source model.SummarySource, s *model.PartySummary, written, removed *int) error {
	if s == nil {
		if err := r.writer.DeleteSummary(ctx, group.CanonicalName, dataYear, source); err != nil {
			return eris.Wrapf(err, "aggregate: delete %s summary for %s", source, group.CanonicalName)
		}
		*removed++
		return nil
	}
	if err := r.writer.ReplaceSummary(ctx, s); err != nil {
		return eris.Wrapf(err, "aggregate: write %s summary for %s", source, group.CanonicalName)
	}
	*written++
	return nil
}
