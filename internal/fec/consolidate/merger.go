// Package consolidate merges the linkage and PAC-transfer summaries into
// the terminal per-company consolidated record, preserving prior state as
// immutable history snapshots.
package consolidate

import (
	"github.com/rotisserie/eris"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

// ErrMergeInvariant marks a consolidated record whose computed totals
// disagree with the sum of its inputs. This is a programming defect, not
// bad data: the record is skipped and reported, never stored.
var ErrMergeInvariant = eris.New("consolidate: merge invariant violated")

// Merge combines the two summaries for one (company, year) into a
// consolidated record. Either summary may be nil; both nil yields nil (no
// record is produced for a company with no data). Party totals are summed
// field-by-field, never overwritten.
func Merge(group model.VariantGroup, dataYear int, linkage, pac *model.PartySummary) (*model.ConsolidatedRecord, error) {
	if linkage == nil && pac == nil {
		return nil, nil
	}

	totals := make(model.PartyTotals)
	var linkageTotal, pacTotal int64
	var sources []string
	var pacCommittees []string

	if linkage != nil {
		totals = totals.Merge(linkage.PartyTotals)
		linkageTotal = linkage.TotalContributedCents
		sources = append(sources, string(model.SourceLinkage))
		pacCommittees = unionStrings(pacCommittees, linkage.PACCommittees)
	}
	if pac != nil {
		totals = totals.Merge(pac.PartyTotals)
		pacTotal = pac.TotalContributedCents
		sources = append(sources, string(model.SourcePACTransfers))
		pacCommittees = unionStrings(pacCommittees, pac.PACCommittees)
	}

	rec := &model.ConsolidatedRecord{
		NormalizedName:        group.CanonicalName,
		DisplayName:           displayName(group, linkage, pac),
		StockTicker:           group.StockTicker,
		DataYear:              dataYear,
		PartyTotals:           totals,
		TotalContributedCents: linkageTotal + pacTotal,
		LinkageTotalCents:     linkageTotal,
		PACTransferTotalCents: pacTotal,
		HasLinkageData:        linkage != nil,
		HasPACData:            pac != nil,
		DataSources:           sources,
		PACCommittees:         pacCommittees,
	}

	if err := checkInvariants(rec, linkage, pac); err != nil {
		return nil, err
	}
	return rec, nil
}

// checkInvariants verifies the additive-merge contract before anything is
// written: the grand total equals linkage+pac, and every party bucket
// equals the sum of its source buckets.
func checkInvariants(rec *model.ConsolidatedRecord, linkage, pac *model.PartySummary) error {
	if got := rec.PartyTotals.Sum(); got != rec.TotalContributedCents {
		return eris.Wrapf(ErrMergeInvariant,
			"consolidate: %s_%d party totals sum %d != total_contributed %d",
			rec.NormalizedName, rec.DataYear, got, rec.TotalContributedCents)
	}

	for party, total := range rec.PartyTotals {
		var want int64
		if linkage != nil {
			want += linkage.PartyTotals[party].AmountCents
		}
		if pac != nil {
			want += pac.PartyTotals[party].AmountCents
		}
		if total.AmountCents != want {
			return eris.Wrapf(ErrMergeInvariant,
				"consolidate: %s_%d party %s amount %d != source sum %d",
				rec.NormalizedName, rec.DataYear, party, total.AmountCents, want)
		}
	}
	return nil
}

func displayName(group model.VariantGroup, linkage, pac *model.PartySummary) string {
	if group.DisplayName != "" {
		return group.DisplayName
	}
	if linkage != nil && linkage.DisplayName != "" {
		return linkage.DisplayName
	}
	if pac != nil {
		return pac.DisplayName
	}
	return group.CanonicalName
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			a = append(a, s)
			seen[s] = true
		}
	}
	return a
}
