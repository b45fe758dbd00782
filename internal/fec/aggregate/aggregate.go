// Package aggregate builds per-company per-year party summaries from the
// two independent source paths: direct PAC-to-candidate contributions
// (linkage) and committee-to-committee transfers.
package aggregate

import (
	"context"

	"go.uber.org/zap"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

// ContributionSource reads itemized PAC-to-candidate contributions.
type ContributionSource interface {
	ContributionsByCommittee(ctx context.Context, committeeID string, dataYear int) ([]model.RawContribution, error)
}

// TransferSource reads committee-to-committee transfers by sender.
type TransferSource interface {
	TransfersBySender(ctx context.Context, committeeID string, dataYear int) ([]model.RawTransfer, error)
}

// CandidateSource resolves candidates by (candidate_id, data_year).
// A missing candidate returns (nil, nil), not an error.
type CandidateSource interface {
	Candidate(ctx context.Context, candidateID string, dataYear int) (*model.RawCandidate, error)
}

// CommitteeSource resolves committees by (committee_id, data_year).
// A missing committee returns (nil, nil), not an error.
type CommitteeSource interface {
	Committee(ctx context.Context, committeeID string, dataYear int) (*model.RawCommittee, error)
}

// LinkageBuilder aggregates direct PAC-to-candidate contributions into a
// per-party summary for one company.
type LinkageBuilder struct {
	contributions ContributionSource
	candidates    CandidateSource
	log           *zap.Logger
}

// NewLinkageBuilder wires a linkage aggregator to its read sources.
func NewLinkageBuilder(contributions ContributionSource, candidates CandidateSource) *LinkageBuilder {
	return &LinkageBuilder{
		contributions: contributions,
		candidates:    candidates,
		log:           zap.L().With(zap.String("component", "fec.aggregate.linkage")),
	}
}

// Build walks the group's committees and accumulates contribution totals by
// recipient-candidate party. Returns nil when the group has zero matching
// contributions: absence is distinct from a verified-zero company.
//
// A contribution whose candidate_id has no matching candidate record is a
// data-quality gap: it is excluded from the totals and logged, never fatal.
// Candidates with a blank party land in the UNKNOWN bucket.
func (b *LinkageBuilder) Build(ctx context.Context, group model.VariantGroup, dataYear int) (*model.PartySummary, error) {
	totals := make(model.PartyTotals)
	committees := make([]string, 0, len(group.Committees))
	var unresolved int64

	for _, ref := range group.Committees {
		contribs, err := b.contributions.ContributionsByCommittee(ctx, ref.CommitteeID, dataYear)
		if err != nil {
			return nil, err
		}
		if len(contribs) > 0 {
			committees = append(committees, ref.CommitteeID)
		}

		for _, c := range contribs {
			cand, err := b.candidates.Candidate(ctx, c.CandidateID, dataYear)
			if err != nil {
				return nil, err
			}
			if cand == nil {
				unresolved++
				continue
			}
			totals.Add(model.NormalizeParty(cand.PartyAffiliation), c.AmountCents)
		}
	}

	if unresolved > 0 {
		b.log.Warn("contributions with unresolvable candidates excluded",
			zap.String("company", group.CanonicalName),
			zap.Int("year", dataYear),
			zap.Int64("excluded", unresolved),
		)
	}

	if len(totals) == 0 {
		return nil, nil
	}

	return &model.PartySummary{
		NormalizedName:        group.CanonicalName,
		DisplayName:           group.DisplayName,
		DataYear:              dataYear,
		PartyTotals:           totals,
		TotalContributedCents: totals.Sum(),
		Source:                model.SourceLinkage,
		PACCommittees:         committees,
	}, nil
}

// TransferBuilder aggregates committee-to-committee transfers into the
// same summary shape as the linkage path, so the merger can add the two
// without cross-referencing.
type TransferBuilder struct {
	transfers  TransferSource
	committees CommitteeSource
	candidates CandidateSource
	log        *zap.Logger
}

// NewTransferBuilder wires a transfer aggregator to its read sources.
func NewTransferBuilder(transfers TransferSource, committees CommitteeSource, candidates CandidateSource) *TransferBuilder {
	return &TransferBuilder{
		transfers:  transfers,
		committees: committees,
		candidates: candidates,
		log:        zap.L().With(zap.String("component", "fec.aggregate.transfers")),
	}
}

// Build accumulates transfer totals for one company. Party attribution
// follows the receiving committee's candidate when it resolves; any break
// in that chain (no receiver, unknown committee, no candidate, blank
// party) buckets the amount under UNKNOWN rather than dropping it.
// Returns nil when the group has zero matching transfers.
func (b *TransferBuilder) Build(ctx context.Context, group model.VariantGroup, dataYear int) (*model.PartySummary, error) {
	totals := make(model.PartyTotals)
	committees := make([]string, 0, len(group.Committees))

	for _, ref := range group.Committees {
		transfers, err := b.transfers.TransfersBySender(ctx, ref.CommitteeID, dataYear)
		if err != nil {
			return nil, err
		}
		if len(transfers) > 0 {
			committees = append(committees, ref.CommitteeID)
		}

		for _, tr := range transfers {
			party, err := b.receiverParty(ctx, tr.ReceiverCommitteeID, dataYear)
			if err != nil {
				return nil, err
			}
			totals.Add(party, tr.AmountCents)
		}
	}

	if len(totals) == 0 {
		return nil, nil
	}

	return &model.PartySummary{
		NormalizedName:        group.CanonicalName,
		DisplayName:           group.DisplayName,
		DataYear:              dataYear,
		PartyTotals:           totals,
		TotalContributedCents: totals.Sum(),
		Source:                model.SourcePACTransfers,
		PACCommittees:         committees,
	}, nil
}

// receiverParty walks receiver committee → candidate → party.
func (b *TransferBuilder) receiverParty(ctx context.Context, receiverID string, dataYear int) (model.Party, error) {
	if receiverID == "" {
		return model.PartyUnknown, nil
	}

	cmte, err := b.committees.Committee(ctx, receiverID, dataYear)
	if err != nil {
		return "", err
	}
	if cmte == nil || cmte.CandidateID == "" {
		return model.PartyUnknown, nil
	}

	cand, err := b.candidates.Candidate(ctx, cmte.CandidateID, dataYear)
	if err != nil {
		return "", err
	}
	if cand == nil {
		return model.PartyUnknown, nil
	}

	return model.NormalizeParty(cand.PartyAffiliation), nil
}
