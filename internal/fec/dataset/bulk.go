package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/stanse/fec-pipeline/internal/db"
	"github.com/stanse/fec-pipeline/internal/fec"
	"github.com/stanse/fec-pipeline/internal/fetcher"
	"github.com/stanse/fec-pipeline/internal/resilience"
)

// DefaultBaseURL is the FEC bulk-download root.
const DefaultBaseURL = "https://www.fec.gov/files/bulk-downloads"

const defaultBatchSize = 5000

// bulkSpec describes one pipe-delimited FEC bulk file: where to get it,
// what's inside the zip, where it lands, and how each line maps to a row.
type bulkSpec struct {
	dataset   string
	zipName   func(year int) string // archive name, e.g. "cm24.zip"
	innerName string                // file inside the archive, e.g. "cm.txt"
	upsert    db.UpsertConfig
	// parseLine maps one record to column values in upsert.Columns order.
	// An error marks the line malformed; it is skipped and counted.
	parseLine func(fields []string, dataYear int, line int64) ([]any, error)
}

// zipSuffix renders the two-digit year suffix FEC uses in archive names.
func zipSuffix(year int) string {
	return fmt.Sprintf("%02d", year%100)
}

// syncBulk downloads and loads one bulk file for every configured year.
// Progress is checkpointed per (dataset, year) after each committed batch;
// an interrupted run resumes from the last committed line. A missing file
// for a requested year fails the sync loudly rather than silently
// producing an empty table.
func syncBulk(ctx context.Context, deps *Deps, spec bulkSpec) (*SyncResult, error) {
	log := zap.L().With(zap.String("dataset", spec.dataset))

	baseURL := deps.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	total := &SyncResult{Metadata: map[string]any{}}

	for _, year := range deps.DataYears {
		rows, skipped, err := syncBulkYear(ctx, deps, spec, baseURL, batchSize, year, log)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: sync year %d", spec.dataset, year)
		}
		total.RowsSynced += rows
		total.LinesSkipped += skipped
		total.Metadata[fmt.Sprintf("year_%d_rows", year)] = rows
	}

	return total, nil
}

func syncBulkYear(ctx context.Context, deps *Deps, spec bulkSpec, baseURL string, batchSize, year int, log *zap.Logger) (rows, skipped int64, err error) {
	zipName := spec.zipName(year)
	url := fmt.Sprintf("%s/%d/%s", baseURL, year, zipName)
	zipPath := filepath.Join(deps.TempDir, zipName)

	err = resilience.Do(ctx, deps.Retry, func(ctx context.Context) error {
		_, dlErr := deps.Fetcher.DownloadToFile(ctx, url, zipPath)
		return dlErr
	})
	if err != nil {
		return 0, 0, eris.Wrapf(err, "download %s", url)
	}
	defer os.Remove(zipPath)

	dataPath, err := fetcher.ExtractZIPFile(zipPath, spec.innerName, deps.TempDir)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "extract %s from %s", spec.innerName, zipName)
	}
	defer os.Remove(dataPath)

	f, err := os.Open(dataPath)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "open %s", dataPath)
	}
	defer f.Close()

	resumeFrom, err := deps.Checkpoints.LastLine(ctx, spec.dataset, year)
	if err != nil {
		return 0, 0, eris.Wrap(err, "read checkpoint")
	}
	if resumeFrom > 0 {
		log.Info("resuming from checkpoint", zap.Int("year", year), zap.Int64("line", resumeFrom))
	}

	loader := &batchLoader{
		deps:      deps,
		spec:      spec,
		year:      year,
		batchSize: batchSize,
	}

	var lineNo int64
	sc := fec.NewBulkScanner(f)
	for sc.Scan() {
		lineNo++
		if lineNo <= resumeFrom {
			continue
		}

		vals, perr := spec.parseLine(fec.SplitLine(sc.Text()), year, lineNo)
		if perr != nil {
			skipped++
			log.Debug("skipping malformed line",
				zap.Int("year", year), zap.Int64("line", lineNo), zap.Error(perr))
			continue
		}

		if err := loader.add(ctx, vals, lineNo); err != nil {
			return loader.committed, skipped, err
		}
	}
	if err := sc.Err(); err != nil {
		return loader.committed, skipped, eris.Wrapf(err, "scan %s", dataPath)
	}

	if err := loader.flush(ctx, lineNo); err != nil {
		return loader.committed, skipped, err
	}

	// The file loaded completely; the next run re-reads from the top.
	if err := deps.Checkpoints.Clear(ctx, spec.dataset, year); err != nil {
		return loader.committed, skipped, eris.Wrap(err, "clear checkpoint")
	}

	log.Info("year loaded",
		zap.Int("year", year),
		zap.Int64("rows", loader.committed),
		zap.Int64("skipped", skipped),
	)
	return loader.committed, skipped, nil
}

// batchLoader accumulates rows and commits them in batches. The
// checkpoint is written only after the batch upsert succeeds.
type batchLoader struct {
	deps      *Deps
	spec      bulkSpec
	year      int
	batchSize int

	pending   [][]any
	committed int64
}

func (l *batchLoader) add(ctx context.Context, vals []any, lineNo int64) error {
	l.pending = append(l.pending, vals)
	if len(l.pending) < l.batchSize {
		return nil
	}
	return l.flush(ctx, lineNo)
}

func (l *batchLoader) flush(ctx context.Context, lineNo int64) error {
	if len(l.pending) == 0 {
		return nil
	}

	// An auth expiry refreshes credentials and retries the batch once.
	batch := l.pending
	err := resilience.WithAuthRefresh(ctx, l.deps.Refresh, func(ctx context.Context) error {
		return resilience.Do(ctx, l.deps.Retry, func(ctx context.Context) error {
			_, upErr := db.BulkUpsert(ctx, l.deps.Pool, l.spec.upsert, batch)
			return upErr
		})
	})
	if err != nil {
		return eris.Wrapf(err, "upsert batch ending at line %d", lineNo)
	}
	l.committed += int64(len(batch))
	l.pending = nil

	// Batch is durable; safe to advance the checkpoint.
	if err := l.deps.Checkpoints.SetLastLine(ctx, l.spec.dataset, l.year, lineNo); err != nil {
		return eris.Wrap(err, "write checkpoint")
	}
	return nil
}
