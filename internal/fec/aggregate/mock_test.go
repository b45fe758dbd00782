package aggregate

import (
	"context"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

// fakeStore backs all four source interfaces with in-memory maps.
type fakeStore struct {
	contributions map[string][]model.RawContribution // committee_id → contributions
	transfers     map[string][]model.RawTransfer     // committee_id → transfers
	candidates    map[string]model.RawCandidate      // candidate_id → candidate
	committees    map[string]model.RawCommittee      // committee_id → committee
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contributions: make(map[string][]model.RawContribution),
		transfers:     make(map[string][]model.RawTransfer),
		candidates:    make(map[string]model.RawCandidate),
		committees:    make(map[string]model.RawCommittee),
	}
}

func (f *fakeStore) ContributionsByCommittee(_ context.Context, committeeID string, dataYear int) ([]model.RawContribution, error) {
	var out []model.RawContribution
	for _, c := range f.contributions[committeeID] {
		if c.DataYear == dataYear {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) TransfersBySender(_ context.Context, committeeID string, dataYear int) ([]model.RawTransfer, error) {
	var out []model.RawTransfer
	for _, tr := range f.transfers[committeeID] {
		if tr.DataYear == dataYear {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (f *fakeStore) Candidate(_ context.Context, candidateID string, dataYear int) (*model.RawCandidate, error) {
	c, ok := f.candidates[candidateID]
	if !ok || c.DataYear != dataYear {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeStore) Committee(_ context.Context, committeeID string, dataYear int) (*model.RawCommittee, error) {
	c, ok := f.committees[committeeID]
	if !ok || c.DataYear != dataYear {
		return nil, nil
	}
	return &c, nil
}
