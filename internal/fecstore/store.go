// Package fecstore implements the pipeline's repository interfaces on
// Postgres (fec_data schema) plus a local sqlite checkpoint store.
package fecstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/stanse/fec-pipeline/internal/db"
	"github.com/stanse/fec-pipeline/internal/fec/model"
)

// Store exposes reads and writes over the fec_data schema. It satisfies
// the repository interfaces of the index, aggregate, and consolidate
// packages.
type Store struct {
	pool db.Pool
}

// NewStore wraps a connection pool.
func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

// PACCommittees returns all PAC-type ('Q') committees for a data year.
func (s *Store) PACCommittees(ctx context.Context, dataYear int) ([]model.RawCommittee, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT committee_id, committee_name, committee_type, connected_org_name, candidate_id, data_year
		 FROM fec_data.raw_committees
		 WHERE data_year = $1 AND committee_type = 'Q'
		 ORDER BY committee_id`,
		dataYear,
	)
	if err != nil {
		return nil, eris.Wrap(err, "fecstore: query pac committees")
	}
	defer rows.Close()

	var out []model.RawCommittee
	for rows.Next() {
		var c model.RawCommittee
		if err := rows.Scan(&c.CommitteeID, &c.CommitteeName, &c.CommitteeType, &c.ConnectedOrgName, &c.CandidateID, &c.DataYear); err != nil {
			return nil, eris.Wrap(err, "fecstore: scan committee")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Committee returns one committee row, or nil when absent.
func (s *Store) Committee(ctx context.Context, committeeID string, dataYear int) (*model.RawCommittee, error) {
	var c model.RawCommittee
	err := s.pool.QueryRow(ctx,
		`SELECT committee_id, committee_name, committee_type, connected_org_name, candidate_id, data_year
		 FROM fec_data.raw_committees
		 WHERE committee_id = $1 AND data_year = $2`,
		committeeID, dataYear,
	).Scan(&c.CommitteeID, &c.CommitteeName, &c.CommitteeType, &c.ConnectedOrgName, &c.CandidateID, &c.DataYear)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "fecstore: committee %s", committeeID)
	}
	return &c, nil
}

// Candidate returns one candidate row, or nil when absent.
func (s *Store) Candidate(ctx context.Context, candidateID string, dataYear int) (*model.RawCandidate, error) {
	var c model.RawCandidate
	err := s.pool.QueryRow(ctx,
		`SELECT candidate_id, candidate_name, party_affiliation, election_year, data_year
		 FROM fec_data.raw_candidates
		 WHERE candidate_id = $1 AND data_year = $2`,
		candidateID, dataYear,
	).Scan(&c.CandidateID, &c.CandidateName, &c.PartyAffiliation, &c.ElectionYear, &c.DataYear)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "fecstore: candidate %s", candidateID)
	}
	return &c, nil
}

// ContributionsByCommittee returns all itemized contributions a committee
// made in a data year.
func (s *Store) ContributionsByCommittee(ctx context.Context, committeeID string, dataYear int) ([]model.RawContribution, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT committee_id, candidate_id, amount_cents, transaction_date, transaction_id, source_line, data_year
		 FROM fec_data.raw_contributions
		 WHERE committee_id = $1 AND data_year = $2`,
		committeeID, dataYear,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "fecstore: contributions for %s", committeeID)
	}
	defer rows.Close()

	var out []model.RawContribution
	for rows.Next() {
		var c model.RawContribution
		if err := rows.Scan(&c.CommitteeID, &c.CandidateID, &c.AmountCents, &c.TransactionDate, &c.TransactionID, &c.SourceLine, &c.DataYear); err != nil {
			return nil, eris.Wrap(err, "fecstore: scan contribution")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TransfersBySender returns all committee-to-committee transactions a
// committee sent in a data year.
func (s *Store) TransfersBySender(ctx context.Context, committeeID string, dataYear int) ([]model.RawTransfer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT committee_id, receiver_committee_id, amount_cents, transaction_id, source_line, data_year
		 FROM fec_data.raw_transfers
		 WHERE committee_id = $1 AND data_year = $2`,
		committeeID, dataYear,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "fecstore: transfers for %s", committeeID)
	}
	defer rows.Close()

	var out []model.RawTransfer
	for rows.Next() {
		var t model.RawTransfer
		if err := rows.Scan(&t.CommitteeID, &t.ReceiverCommitteeID, &t.AmountCents, &t.TransactionID, &t.SourceLine, &t.DataYear); err != nil {
			return nil, eris.Wrap(err, "fecstore: scan transfer")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || err.Error() == "no rows in result set"
}
