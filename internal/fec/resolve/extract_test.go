package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractOrg_PoliticalActionCommittee(t *testing.T) {
	org, ok := ExtractOrgFromCommittee("INTEL CORPORATION POLITICAL ACTION COMMITTEE")
	assert.True(t, ok)
	assert.Equal(t, "intel corporation", org)
}

func TestExtractOrg_FederalPAC(t *testing.T) {
	org, ok := ExtractOrgFromCommittee("HOME DEPOT FEDERAL PAC")
	assert.True(t, ok)
	assert.Equal(t, "home depot", org)
}

func TestExtractOrg_TrailingParenthetical(t *testing.T) {
	org, ok := ExtractOrgFromCommittee("INTEL CORPORATION POLITICAL ACTION COMMITTEE (INTELPAC)")
	assert.True(t, ok)
	assert.Equal(t, "intel corporation", org)
}

func TestExtractOrg_BarePACRequiresMultipleWords(t *testing.T) {
	// Three words: trailing "pac" is stripped.
	org, ok := ExtractOrgFromCommittee("ACME WIDGETS PAC")
	assert.True(t, ok)
	assert.Equal(t, "acme widgets", org)

	// Two words: stripping would leave a one-word stub, so keep it.
	org, ok = ExtractOrgFromCommittee("ACME PAC")
	assert.True(t, ok)
	assert.Equal(t, "acme pac", org)
}

func TestExtractOrg_TooShortFails(t *testing.T) {
	_, ok := ExtractOrgFromCommittee("US FEDERAL PAC")
	assert.False(t, ok)

	_, ok = ExtractOrgFromCommittee("")
	assert.False(t, ok)
}

func TestExtractOrg_CivicActionCommittee(t *testing.T) {
	org, ok := ExtractOrgFromCommittee("DELTA AIR LINES CIVIC ACTION COMMITTEE")
	assert.True(t, ok)
	assert.Equal(t, "delta air lines", org)
}
