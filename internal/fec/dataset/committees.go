package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/stanse/fec-pipeline/internal/db"
	"github.com/stanse/fec-pipeline/internal/fec"
)

// Committees syncs the FEC committee master file (cm).
type Committees struct{}

func (d *Committees) Name() string     { return "committees" }
func (d *Committees) Table() string    { return "fec_data.raw_committees" }
func (d *Committees) Phase() Phase     { return PhaseMasters }
func (d *Committees) Cadence() Cadence { return Weekly }

func (d *Committees) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return DueAfter(now, lastSync, 7*24*time.Hour)
}

func (d *Committees) Sync(ctx context.Context, deps *Deps) (*SyncResult, error) {
	return syncBulk(ctx, deps, bulkSpec{
		dataset:   d.Name(),
		zipName:   func(year int) string { return fmt.Sprintf("cm%s.zip", zipSuffix(year)) },
		innerName: "cm.txt",
		upsert: db.UpsertConfig{
			Table:        d.Table(),
			Columns:      []string{"committee_id", "committee_name", "committee_type", "connected_org_name", "candidate_id", "data_year"},
			ConflictKeys: []string{"committee_id", "data_year"},
		},
		parseLine: func(fields []string, dataYear int, _ int64) ([]any, error) {
			c, err := fec.ParseCommitteeLine(fields, dataYear)
			if err != nil {
				return nil, err
			}
			return []any{c.CommitteeID, c.CommitteeName, c.CommitteeType, c.ConnectedOrgName, c.CandidateID, c.DataYear}, nil
		},
	})
}
