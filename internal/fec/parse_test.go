package fec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFields(n int, set map[int]string) []string {
	fields := make([]string, n)
	for i, v := range set {
		fields[i] = v
	}
	return fields
}

func TestParseCommitteeLine(t *testing.T) {
	fields := makeFields(cmMinFields, map[int]string{
		cmFieldID:           "C00123456",
		cmFieldName:         "ACME CORP PAC",
		cmFieldType:         "Q",
		cmFieldConnectedOrg: "ACME CORP",
	})

	c, err := ParseCommitteeLine(fields, 2024)
	require.NoError(t, err)
	assert.Equal(t, "C00123456", c.CommitteeID)
	assert.Equal(t, "ACME CORP PAC", c.CommitteeName)
	assert.Equal(t, "Q", c.CommitteeType)
	assert.Equal(t, "ACME CORP", c.ConnectedOrgName)
	assert.Equal(t, 2024, c.DataYear)
}

func TestParseCommitteeLine_TooShort(t *testing.T) {
	_, err := ParseCommitteeLine([]string{"C00123456", "ACME"}, 2024)
	assert.Error(t, err)
}

func TestParseCandidateLine(t *testing.T) {
	c, err := ParseCandidateLine([]string{"H4CA01234", "DOE, JANE", "DEM", "2024"}, 2024)
	require.NoError(t, err)
	assert.Equal(t, "H4CA01234", c.CandidateID)
	assert.Equal(t, "DEM", c.PartyAffiliation)
	assert.Equal(t, 2024, c.ElectionYear)
}

func TestParseContributionLine(t *testing.T) {
	fields := makeFields(pas2MinFields, map[int]string{
		pas2FieldCommittee: "C00123456",
		pas2FieldDate:      "03152024",
		pas2FieldAmount:    "1234.56",
		pas2FieldCandidate: "H4CA01234",
		pas2FieldTxID:      "SA11.1234",
	})

	c, err := ParseContributionLine(fields, 2024, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), c.AmountCents)
	assert.Equal(t, int64(42), c.SourceLine)
	require.NotNil(t, c.TransactionDate)
	assert.Equal(t, "2024-03-15", c.TransactionDate.Format("2006-01-02"))
}

func TestParseContributionLine_MissingCandidate(t *testing.T) {
	fields := makeFields(pas2MinFields, map[int]string{
		pas2FieldCommittee: "C00123456",
		pas2FieldAmount:    "100",
	})
	_, err := ParseContributionLine(fields, 2024, 1)
	assert.Error(t, err)
}

func TestParseTransferLine_NegativeAmount(t *testing.T) {
	// Refunds appear as negative amounts and must be preserved.
	fields := makeFields(othMinFields, map[int]string{
		othFieldCommittee: "C00123456",
		othFieldReceiver:  "C00999999",
		othFieldAmount:    "-500",
	})

	tr, err := ParseTransferLine(fields, 2024, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(-50000), tr.AmountCents)
	assert.Equal(t, "C00999999", tr.ReceiverCommitteeID)
}

func TestParseAmountCents_WholeDollars(t *testing.T) {
	cents, err := parseAmountCents("2500")
	require.NoError(t, err)
	assert.Equal(t, int64(250000), cents)
}

func TestParseAmountCents_Malformed(t *testing.T) {
	_, err := parseAmountCents("12x.00")
	assert.Error(t, err)
}

func TestParseDate_Malformed(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("2024"))
	assert.Nil(t, parseDate("13452024"))
}

func TestNewBulkScanner_DecodesLatin1(t *testing.T) {
	// 0xE9 is é in latin-1 and an invalid byte sequence in UTF-8.
	raw := []byte("C001|CAF\xc9 PAC|x\nC002|PLAIN PAC|y\n")

	sc := NewBulkScanner(bytes.NewReader(raw))
	require.True(t, sc.Scan())
	assert.Equal(t, "CAFÉ PAC", SplitLine(sc.Text())[1])
	require.True(t, sc.Scan())
	assert.Equal(t, "PLAIN PAC", SplitLine(sc.Text())[1])
	assert.False(t, sc.Scan())
	assert.NoError(t, sc.Err())
}

func TestSplitLine(t *testing.T) {
	fields := SplitLine("a|b||d")
	assert.Equal(t, []string{"a", "b", "", "d"}, fields)
	assert.Equal(t, []string{"solo"}, SplitLine("solo"))
	assert.False(t, strings.Contains(fields[3], "|"))
}
