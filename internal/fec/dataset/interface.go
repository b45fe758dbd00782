// Package dataset defines the FEC bulk datasets and the engine that syncs
// them into Postgres.
package dataset

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/stanse/fec-pipeline/internal/db"
	"github.com/stanse/fec-pipeline/internal/fetcher"
	"github.com/stanse/fec-pipeline/internal/resilience"
)

// Phase groups datasets by load order. Transaction files reference IDs
// from the master files, so masters load first.
type Phase int

const (
	PhaseMasters      Phase = iota + 1 // committee and candidate master files
	PhaseTransactions                  // itemized contributions and transfers
)

func (p Phase) String() string {
	switch p {
	case PhaseMasters:
		return "masters"
	case PhaseTransactions:
		return "transactions"
	default:
		return "unknown"
	}
}

// ParsePhase converts a phase name into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "masters":
		return PhaseMasters, nil
	case "transactions":
		return PhaseTransactions, nil
	default:
		return 0, eris.Errorf("unknown phase: %q (valid: masters, transactions)", s)
	}
}

// Cadence describes how often a dataset is refreshed upstream.
type Cadence string

const (
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
)

// SyncResult holds the outcome of a dataset sync.
type SyncResult struct {
	RowsSynced   int64          `json:"rows_synced"`
	LinesSkipped int64          `json:"lines_skipped"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CheckpointStore persists ingest progress per (dataset, data year). The
// engine writes a checkpoint only after the corresponding batch has been
// committed, so resuming from it never loses rows.
type CheckpointStore interface {
	LastLine(ctx context.Context, dataset string, dataYear int) (int64, error)
	SetLastLine(ctx context.Context, dataset string, dataYear int, line int64) error
	Clear(ctx context.Context, dataset string, dataYear int) error
}

// Deps bundles everything a dataset sync needs.
type Deps struct {
	Pool        db.Pool
	Fetcher     fetcher.Downloader
	Checkpoints CheckpointStore
	TempDir     string
	BaseURL     string // FEC bulk-download base, e.g. https://www.fec.gov/files/bulk-downloads
	DataYears   []int
	BatchSize   int
	Retry       resilience.RetryConfig

	// Refresh re-establishes storage credentials after an auth expiry.
	// Nil disables the refresh-and-retry-once path.
	Refresh func(ctx context.Context) error
}

// Dataset defines the interface each FEC bulk dataset implements.
type Dataset interface {
	// Name returns the unique identifier (e.g., "committees").
	Name() string

	// Table returns the primary target table (e.g., "fec_data.raw_committees").
	Table() string

	// Phase returns which load phase this dataset belongs to.
	Phase() Phase

	// Cadence returns how often this dataset is updated upstream.
	Cadence() Cadence

	// ShouldRun decides if this dataset needs syncing given the current
	// time and the last successful sync (nil if never synced).
	ShouldRun(now time.Time, lastSync *time.Time) bool

	// Sync downloads, parses, and loads the dataset for every configured
	// data year.
	Sync(ctx context.Context, deps *Deps) (*SyncResult, error)
}

// DueAfter reports whether a sync is due given the upstream refresh
// interval. Never-synced datasets are always due.
func DueAfter(now time.Time, lastSync *time.Time, interval time.Duration) bool {
	if lastSync == nil {
		return true
	}
	return now.Sub(*lastSync) >= interval
}
