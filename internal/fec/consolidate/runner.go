package consolidate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stanse/fec-pipeline/internal/fec/model"
	"github.com/stanse/fec-pipeline/internal/resilience"
)

// GroupLister enumerates the persisted variant groups.
type GroupLister interface {
	AllGroups(ctx context.Context) ([]model.VariantGroup, error)
}

// SummaryReader loads the persisted per-source summaries for one company
// and year. A missing summary is (nil, nil), not an error.
type SummaryReader interface {
	LinkageSummary(ctx context.Context, normalizedName string, dataYear int) (*model.PartySummary, error)
	PACTransferSummary(ctx context.Context, normalizedName string, dataYear int) (*model.PartySummary, error)
}

// ConsolidatedWriter replaces a consolidated record. The implementation
// must snapshot the current record into history and write the new one in
// a single transaction, so a crash never loses the prior state without
// the new state landing.
type ConsolidatedWriter interface {
	ReplaceWithHistory(ctx context.Context, key string, rec model.ConsolidatedRecord, snapshotAt time.Time) error
}

// DeadLetters records a record-level failure for later inspection.
type DeadLetters interface {
	Record(ctx context.Context, entry *resilience.DLQEntry) error
}

// Result summarizes one consolidation run.
type Result struct {
	Written    int
	Skipped    int // no data in either source path
	Failed     int
	FailedKeys []string
}

// Options controls a consolidation run.
type Options struct {
	DataYear    int
	Companies   []string // normalized names; empty means all groups
	Concurrency int
	DryRun      bool
	Retry       resilience.RetryConfig

	// Refresh re-establishes storage credentials after an auth expiry.
	// Nil disables the refresh-and-retry-once path.
	Refresh func(ctx context.Context) error
}

// Runner drives consolidation across all variant groups for one year.
type Runner struct {
	groups  GroupLister
	reader  SummaryReader
	writer  ConsolidatedWriter
	dlq     DeadLetters
	log     *zap.Logger
	keyLock keyedMutex

	mu     sync.Mutex
	result Result
}

// NewRunner wires a consolidation runner. dlq may be nil, in which case
// failures are only logged and counted.
func NewRunner(groups GroupLister, reader SummaryReader, writer ConsolidatedWriter, dlq DeadLetters) *Runner {
	return &Runner{
		groups: groups,
		reader: reader,
		writer: writer,
		dlq:    dlq,
		log:    zap.L().With(zap.String("component", "fec.consolidate")),
	}
}

// Run consolidates every selected group for the given year. Worker
// parallelism is bounded; writes to the same document key are serialized.
// Record-level failures do not abort the run; the result reports them and
// the caller decides the exit status.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.DataYear == 0 {
		return nil, eris.New("consolidate: data year is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	groups, err := r.groups.AllGroups(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "consolidate: list groups")
	}
	groups = filterGroups(groups, opts.Companies)
	sort.Slice(groups, func(i, j int) bool { return groups[i].CanonicalName < groups[j].CanonicalName })

	r.mu.Lock()
	r.result = Result{}
	r.mu.Unlock()

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)

	for _, g := range groups {
		group := g
		eg.Go(func() error {
			r.consolidateOne(gctx, group, opts)
			return gctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "consolidate: run aborted")
	}

	r.mu.Lock()
	res := r.result
	r.mu.Unlock()

	r.log.Info("consolidation run complete",
		zap.Int("data_year", opts.DataYear),
		zap.Int("written", res.Written),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Bool("dry_run", opts.DryRun),
	)
	return &res, nil
}

func (r *Runner) consolidateOne(ctx context.Context, group model.VariantGroup, opts Options) {
	key := model.DocKey(group.CanonicalName, opts.DataYear)

	linkage, err := r.reader.LinkageSummary(ctx, group.CanonicalName, opts.DataYear)
	if err != nil {
		r.fail(ctx, key, "read_linkage", err)
		return
	}
	pac, err := r.reader.PACTransferSummary(ctx, group.CanonicalName, opts.DataYear)
	if err != nil {
		r.fail(ctx, key, "read_pac_transfers", err)
		return
	}

	rec, err := Merge(group, opts.DataYear, linkage, pac)
	if err != nil {
		r.fail(ctx, key, "merge", err)
		return
	}
	if rec == nil {
		r.mu.Lock()
		r.result.Skipped++
		r.mu.Unlock()
		return
	}

	if opts.DryRun {
		r.log.Info("dry run, would write",
			zap.String("key", key),
			zap.Int64("total_cents", rec.TotalContributedCents),
			zap.Strings("sources", rec.DataSources),
		)
		r.mu.Lock()
		r.result.Written++
		r.mu.Unlock()
		return
	}

	// Serialize writes per document key so snapshot-then-replace pairs
	// from overlapping runs cannot interleave. An auth expiry refreshes
	// credentials and retries the write once.
	unlock := r.keyLock.lock(key)
	err = resilience.WithAuthRefresh(ctx, opts.Refresh, func(ctx context.Context) error {
		return resilience.Do(ctx, opts.Retry, func(ctx context.Context) error {
			return r.writer.ReplaceWithHistory(ctx, key, *rec, time.Now().UTC())
		})
	})
	unlock()
	if err != nil {
		r.fail(ctx, key, "write", err)
		return
	}

	r.mu.Lock()
	r.result.Written++
	r.mu.Unlock()
}

func (r *Runner) fail(ctx context.Context, key, stage string, err error) {
	r.log.Error("consolidation record failed",
		zap.String("key", key),
		zap.String("stage", stage),
		zap.Error(err),
	)
	if r.dlq != nil {
		if dlqErr := r.dlq.Record(ctx, resilience.NewDLQEntry(key, stage, err)); dlqErr != nil {
			r.log.Error("dead letter write failed", zap.String("key", key), zap.Error(dlqErr))
		}
	}
	r.mu.Lock()
	r.result.Failed++
	r.result.FailedKeys = append(r.result.FailedKeys, key)
	r.mu.Unlock()
}

func filterGroups(groups []model.VariantGroup, companies []string) []model.VariantGroup {
	if len(companies) == 0 {
		return groups
	}
	want := make(map[string]bool, len(companies))
	for _, c := range companies {
		want[c] = true
	}
	out := groups[:0]
	for _, g := range groups {
		if want[g.CanonicalName] {
			out = append(out, g)
		}
	}
	return out
}

// keyedMutex serializes work per string key.
type keyedMutex struct {
	locks sync.Map // key → *sync.Mutex
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
