package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/stanse/fec-pipeline/internal/db"
	"github.com/stanse/fec-pipeline/internal/fec"
)

// Candidates syncs the FEC candidate master file (cn).
type Candidates struct{}

func (d *Candidates) Name() string     { return "candidates" }
func (d *Candidates) Table() string    { return "fec_data.raw_candidates" }
func (d *Candidates) Phase() Phase     { return PhaseMasters }
func (d *Candidates) Cadence() Cadence { return Weekly }

func (d *Candidates) ShouldRun(now time.Time, lastSync *time.Time) bool {
	return DueAfter(now, lastSync, 7*24*time.Hour)
}

func (d *Candidates) Sync(ctx context.Context, deps *Deps) (*SyncResult, error) {
	return syncBulk(ctx, deps, bulkSpec{
		dataset:   d.Name(),
		zipName:   func(year int) string { return fmt.Sprintf("cn%s.zip", zipSuffix(year)) },
		innerName: "cn.txt",
		upsert: db.UpsertConfig{
			Table:        d.Table(),
			Columns:      []string{"candidate_id", "candidate_name", "party_affiliation", "election_year", "data_year"},
			ConflictKeys: []string{"candidate_id", "data_year"},
		},
		parseLine: func(fields []string, dataYear int, _ int64) ([]any, error) {
			c, err := fec.ParseCandidateLine(fields, dataYear)
			if err != nil {
				return nil, err
			}
			return []any{c.CandidateID, c.CandidateName, c.PartyAffiliation, c.ElectionYear, c.DataYear}, nil
		},
	})
}
