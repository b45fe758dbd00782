package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/stanse/fec-pipeline/internal/db"
	"github.com/stanse/fec-pipeline/internal/fec"
)

// Transfers syncs the committee-to-committee transaction file (oth), the
// indirect donation path through intermediary PACs.
type Transfers struct{}

func (d *Transfers) Name() string     { return "transfers" }
func (d *Transfers) Table() string    { return "fec_data.raw_transfers" }
func (d *Transfers) Phase() Phase     { return PhaseTransactions }
func (d *Transfers) Cadence() Cadence { return Weekly }

func (d *Transfers) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return DueAfter(now, lastSync, 7*24*time.Hour)
}

func (d *Transfers) Sync(ctx context.Context, deps *Deps) (*SyncResult, error) {
	return syncBulk(ctx, deps, bulkSpec{
		dataset:   d.Name(),
		zipName:   func(year int) string { return fmt.Sprintf("oth%s.zip", zipSuffix(year)) },
		innerName: "itoth.txt",
		upsert: db.UpsertConfig{
			Table:        d.Table(),
			Columns:      []string{"committee_id", "receiver_committee_id", "amount_cents", "transaction_id", "source_line", "data_year"},
			ConflictKeys: []string{"data_year", "source_line"},
		},
		parseLine: func(fields []string, dataYear int, line int64) ([]any, error) {
			tr, err := fec.ParseTransferLine(fields, dataYear, line)
			if err != nil {
				return nil, err
			}
			return []any{tr.CommitteeID, tr.ReceiverCommitteeID, tr.AmountCents, tr.TransactionID, tr.SourceLine, tr.DataYear}, nil
		},
	})
}
