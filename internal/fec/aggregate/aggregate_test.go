package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

const testYear = 2024

func acmeGroup() model.VariantGroup {
	return model.VariantGroup{
		CanonicalName: "acme",
		DisplayName:   "Acme Corp",
		Committees: []model.CommitteeRef{
			{CommitteeID: "C001", DataYear: testYear},
			{CommitteeID: "C002", DataYear: testYear},
		},
	}
}

func TestLinkage_AccumulatesByParty(t *testing.T) {
	store := newFakeStore()
	store.candidates["H001"] = model.RawCandidate{CandidateID: "H001", PartyAffiliation: "DEM", DataYear: testYear}
	store.candidates["H002"] = model.RawCandidate{CandidateID: "H002", PartyAffiliation: "REP", DataYear: testYear}
	store.contributions["C001"] = []model.RawContribution{
		{CommitteeID: "C001", CandidateID: "H001", AmountCents: 100000, DataYear: testYear},
		{CommitteeID: "C001", CandidateID: "H002", AmountCents: 50000, DataYear: testYear},
	}

	b := NewLinkageBuilder(store, store)
	sum, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)
	require.NotNil(t, sum)

	assert.Equal(t, model.Total{AmountCents: 100000, Count: 1}, sum.PartyTotals[model.PartyDemocrat])
	assert.Equal(t, model.Total{AmountCents: 50000, Count: 1}, sum.PartyTotals[model.PartyRepublican])
	assert.Equal(t, int64(150000), sum.TotalContributedCents)
	assert.Equal(t, model.SourceLinkage, sum.Source)
	assert.Equal(t, []string{"C001"}, sum.PACCommittees)
}

func TestLinkage_Additivity(t *testing.T) {
	// Totals over {C1, C2} must equal totals from C1 alone plus C2 alone.
	store := newFakeStore()
	store.candidates["H001"] = model.RawCandidate{CandidateID: "H001", PartyAffiliation: "DEM", DataYear: testYear}
	store.contributions["C001"] = []model.RawContribution{
		{CommitteeID: "C001", CandidateID: "H001", AmountCents: 30000, DataYear: testYear},
	}
	store.contributions["C002"] = []model.RawContribution{
		{CommitteeID: "C002", CandidateID: "H001", AmountCents: 70000, DataYear: testYear},
	}

	b := NewLinkageBuilder(store, store)

	both, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)

	only := func(id string) *model.PartySummary {
		g := model.VariantGroup{CanonicalName: "acme", Committees: []model.CommitteeRef{{CommitteeID: id, DataYear: testYear}}}
		s, err := b.Build(context.Background(), g, testYear)
		require.NoError(t, err)
		require.NotNil(t, s)
		return s
	}
	c1 := only("C001")
	c2 := only("C002")

	assert.Equal(t, c1.TotalContributedCents+c2.TotalContributedCents, both.TotalContributedCents)
	assert.Equal(t, c1.PartyTotals.Merge(c2.PartyTotals), both.PartyTotals)
}

func TestLinkage_AbsenceNotZero(t *testing.T) {
	// Committees exist but no contributions match: no summary at all.
	store := newFakeStore()
	b := NewLinkageBuilder(store, store)

	sum, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestLinkage_MissingCandidateExcluded(t *testing.T) {
	store := newFakeStore()
	store.candidates["H001"] = model.RawCandidate{CandidateID: "H001", PartyAffiliation: "DEM", DataYear: testYear}
	store.contributions["C001"] = []model.RawContribution{
		{CommitteeID: "C001", CandidateID: "H001", AmountCents: 100000, DataYear: testYear},
		{CommitteeID: "C001", CandidateID: "GONE", AmountCents: 99999, DataYear: testYear},
	}

	b := NewLinkageBuilder(store, store)
	sum, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)
	require.NotNil(t, sum)

	// The dangling contribution is excluded, not bucketed.
	assert.Equal(t, int64(100000), sum.TotalContributedCents)
	assert.Len(t, sum.PartyTotals, 1)
}

func TestLinkage_BlankPartyGoesToUnknown(t *testing.T) {
	store := newFakeStore()
	store.candidates["H001"] = model.RawCandidate{CandidateID: "H001", PartyAffiliation: "  ", DataYear: testYear}
	store.contributions["C001"] = []model.RawContribution{
		{CommitteeID: "C001", CandidateID: "H001", AmountCents: 20000, DataYear: testYear},
	}

	b := NewLinkageBuilder(store, store)
	sum, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)
	require.NotNil(t, sum)

	assert.Equal(t, model.Total{AmountCents: 20000, Count: 1}, sum.PartyTotals[model.PartyUnknown])
}

func TestLinkage_FiltersByYear(t *testing.T) {
	store := newFakeStore()
	store.candidates["H001"] = model.RawCandidate{CandidateID: "H001", PartyAffiliation: "DEM", DataYear: testYear}
	store.contributions["C001"] = []model.RawContribution{
		{CommitteeID: "C001", CandidateID: "H001", AmountCents: 100000, DataYear: 2022},
	}

	b := NewLinkageBuilder(store, store)
	sum, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestTransfers_ReceiverPartyResolved(t *testing.T) {
	store := newFakeStore()
	store.committees["C900"] = model.RawCommittee{CommitteeID: "C900", CandidateID: "H001", DataYear: testYear}
	store.candidates["H001"] = model.RawCandidate{CandidateID: "H001", PartyAffiliation: "REP", DataYear: testYear}
	store.transfers["C001"] = []model.RawTransfer{
		{CommitteeID: "C001", ReceiverCommitteeID: "C900", AmountCents: 40000, DataYear: testYear},
	}

	b := NewTransferBuilder(store, store, store)
	sum, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)
	require.NotNil(t, sum)

	assert.Equal(t, model.Total{AmountCents: 40000, Count: 1}, sum.PartyTotals[model.PartyRepublican])
	assert.Equal(t, model.SourcePACTransfers, sum.Source)
}

func TestTransfers_UnresolvableChainsToUnknown(t *testing.T) {
	store := newFakeStore()
	// Committee without a candidate link.
	store.committees["C901"] = model.RawCommittee{CommitteeID: "C901", DataYear: testYear}
	store.transfers["C001"] = []model.RawTransfer{
		{CommitteeID: "C001", ReceiverCommitteeID: "", AmountCents: 10000, DataYear: testYear},
		{CommitteeID: "C001", ReceiverCommitteeID: "MISSING", AmountCents: 10000, DataYear: testYear},
		{CommitteeID: "C001", ReceiverCommitteeID: "C901", AmountCents: 10000, DataYear: testYear},
	}

	b := NewTransferBuilder(store, store, store)
	sum, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)
	require.NotNil(t, sum)

	// All three transfers land in UNKNOWN, none are dropped.
	assert.Equal(t, model.Total{AmountCents: 30000, Count: 3}, sum.PartyTotals[model.PartyUnknown])
	assert.Equal(t, int64(30000), sum.TotalContributedCents)
}

func TestTransfers_AbsenceNotZero(t *testing.T) {
	store := newFakeStore()
	b := NewTransferBuilder(store, store, store)

	sum, err := b.Build(context.Background(), acmeGroup(), testYear)
	require.NoError(t, err)
	assert.Nil(t, sum)
}
