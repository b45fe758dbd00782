package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/stanse/fec-pipeline/internal/db"
	"github.com/stanse/fec-pipeline/internal/fec"
)

// Contributions syncs the itemized PAC-to-candidate contribution file
// (pas2), the direct-linkage donation path.
type Contributions struct{}

func (d *Contributions) Name() string     { return "contributions" }
func (d *Contributions) Table() string    { return "fec_data.raw_contributions" }
func (d *Contributions) Phase() Phase     { return PhaseTransactions }
func (d *Contributions) Cadence() Cadence { return Weekly }

func (d *Contributions) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return DueAfter(now, lastSync, 7*24*time.Hour)
}

func (d *Contributions) Sync(ctx context.Context, deps *Deps) (*SyncResult, error) {
	return syncBulk(ctx, deps, bulkSpec{
		dataset:   d.Name(),
		zipName:   func(year int) string { return fmt.Sprintf("pas2%s.zip", zipSuffix(year)) },
		innerName: "itpas2.txt",
		upsert: db.UpsertConfig{
			Table:        d.Table(),
			Columns:      []string{"committee_id", "candidate_id", "amount_cents", "transaction_date", "transaction_id", "source_line", "data_year"},
			ConflictKeys: []string{"data_year", "source_line"},
		},
		parseLine: func(fields []string, dataYear int, line int64) ([]any, error) {
			c, err := fec.ParseContributionLine(fields, dataYear, line)
			if err != nil {
				return nil, err
			}
			return []any{c.CommitteeID, c.CandidateID, c.AmountCents, c.TransactionDate, c.TransactionID, c.SourceLine, c.DataYear}, nil
		},
	})
}
