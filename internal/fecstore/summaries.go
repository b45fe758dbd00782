package fecstore

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

// ReplaceSummary overwrites the summary for one (company, year, source).
func (s *Store) ReplaceSummary(ctx context.Context, sum *model.PartySummary) error {
	totalsJSON, err := json.Marshal(sum.PartyTotals)
	if err != nil {
		return eris.Wrapf(err, "fecstore: marshal party totals for %s", sum.NormalizedName)
	}
	committeesJSON, err := json.Marshal(sum.PACCommittees)
	if err != nil {
		return eris.Wrapf(err, "fecstore: marshal pac committees for %s", sum.NormalizedName)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO fec_data.party_summaries
		     (normalized_name, data_year, source, display_name, party_totals, total_cents, pac_committees, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (normalized_name, data_year, source) DO UPDATE SET
		     display_name   = EXCLUDED.display_name,
		     party_totals   = EXCLUDED.party_totals,
		     total_cents    = EXCLUDED.total_cents,
		     pac_committees = EXCLUDED.pac_committees,
		     updated_at     = now()`,
		model.SanitizeKey(sum.NormalizedName), sum.DataYear, string(sum.Source),
		sum.DisplayName, totalsJSON, sum.TotalContributedCents, committeesJSON,
	)
	if err != nil {
		return eris.Wrapf(err, "fecstore: replace summary %s", sum.NormalizedName)
	}
	return nil
}

// DeleteSummary removes a summary; deleting a missing row is not an error.
func (s *Store) DeleteSummary(ctx context.Context, normalizedName string, dataYear int, source model.SummarySource) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM fec_data.party_summaries
		 WHERE normalized_name = $1 AND data_year = $2 AND source = $3`,
		model.SanitizeKey(normalizedName), dataYear, string(source),
	)
	if err != nil {
		return eris.Wrapf(err, "fecstore: delete summary %s", normalizedName)
	}
	return nil
}

// LinkageSummary loads the direct-linkage summary, or nil when absent.
func (s *Store) LinkageSummary(ctx context.Context, normalizedName string, dataYear int) (*model.PartySummary, error) {
	return s.summary(ctx, normalizedName, dataYear, model.SourceLinkage)
}

// PACTransferSummary loads the PAC-transfer summary, or nil when absent.
func (s *Store) PACTransferSummary(ctx context.Context, normalizedName string, dataYear int) (*model.PartySummary, error) {
	return s.summary(ctx, normalizedName, dataYear, model.SourcePACTransfers)
}

func (s *Store) summary(ctx context.Context, normalizedName string, dataYear int, source model.SummarySource) (*model.PartySummary, error) {
	sum := model.PartySummary{Source: source}
	var totalsJSON, committeesJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT normalized_name, data_year, display_name, party_totals, total_cents, pac_committees
		 FROM fec_data.party_summaries
		 WHERE normalized_name = $1 AND data_year = $2 AND source = $3`,
		model.SanitizeKey(normalizedName), dataYear, string(source),
	).Scan(&sum.NormalizedName, &sum.DataYear, &sum.DisplayName, &totalsJSON, &sum.TotalContributedCents, &committeesJSON)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "fecstore: load %s summary for %s", source, normalizedName)
	}

	if err := json.Unmarshal(totalsJSON, &sum.PartyTotals); err != nil {
		return nil, eris.Wrapf(err, "fecstore: unmarshal party totals for %s", normalizedName)
	}
	if err := json.Unmarshal(committeesJSON, &sum.PACCommittees); err != nil {
		return nil, eris.Wrapf(err, "fecstore: unmarshal pac committees for %s", normalizedName)
	}
	return &sum, nil
}
