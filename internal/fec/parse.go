package fec

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

// FEC bulk files are pipe-delimited, latin-1 encoded, and header-less;
// fields are positional per the published layouts.
const (
	cmFieldID           = 0
	cmFieldName         = 1
	cmFieldType         = 9
	cmFieldConnectedOrg = 13
	cmFieldCandidate    = 14
	cmMinFields         = 15

	cnFieldID           = 0
	cnFieldName         = 1
	cnFieldParty        = 2
	cnFieldElectionYear = 3
	cnMinFields         = 4

	pas2FieldCommittee = 0
	pas2FieldDate      = 13
	pas2FieldAmount    = 14
	pas2FieldCandidate = 16
	pas2FieldTxID      = 17
	pas2MinFields      = 18

	othFieldCommittee = 0
	othFieldDate      = 13
	othFieldAmount    = 14
	othFieldReceiver  = 15
	othFieldTxID      = 16
	othMinFields      = 17
)

// maxLineBytes caps scanner buffer growth; FEC lines are short but the
// default 64K token limit is too tight for some amended filings.
const maxLineBytes = 1 << 20

// NewBulkScanner wraps a raw bulk-file reader with latin-1 decoding and
// line splitting.
func NewBulkScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return sc
}

// SplitLine splits one pipe-delimited record into fields.
func SplitLine(line string) []string {
	return strings.Split(line, "|")
}

// ParseCommitteeLine parses one cm file record.
func ParseCommitteeLine(fields []string, dataYear int) (*model.RawCommittee, error) {
	if len(fields) < cmMinFields {
		return nil, eris.Errorf("parse: cm record has %d fields, want %d", len(fields), cmMinFields)
	}
	id := strings.TrimSpace(fields[cmFieldID])
	if id == "" {
		return nil, eris.New("parse: cm record missing committee_id")
	}
	return &model.RawCommittee{
		CommitteeID:      id,
		CommitteeName:    strings.TrimSpace(fields[cmFieldName]),
		CommitteeType:    strings.TrimSpace(fields[cmFieldType]),
		ConnectedOrgName: strings.TrimSpace(fields[cmFieldConnectedOrg]),
		CandidateID:      strings.TrimSpace(fields[cmFieldCandidate]),
		DataYear:         dataYear,
	}, nil
}

// ParseCandidateLine parses one cn file record.
func ParseCandidateLine(fields []string, dataYear int) (*model.RawCandidate, error) {
	if len(fields) < cnMinFields {
		return nil, eris.Errorf("parse: cn record has %d fields, want %d", len(fields), cnMinFields)
	}
	id := strings.TrimSpace(fields[cnFieldID])
	if id == "" {
		return nil, eris.New("parse: cn record missing candidate_id")
	}
	return &model.RawCandidate{
		CandidateID:      id,
		CandidateName:    strings.TrimSpace(fields[cnFieldName]),
		PartyAffiliation: strings.TrimSpace(fields[cnFieldParty]),
		ElectionYear:     parseIntOr(fields[cnFieldElectionYear], 0),
		DataYear:         dataYear,
	}, nil
}

// ParseContributionLine parses one pas2 file record (itemized
// PAC-to-candidate contribution). sourceLine disambiguates records in a
// file with no natural key.
func ParseContributionLine(fields []string, dataYear int, sourceLine int64) (*model.RawContribution, error) {
	if len(fields) < pas2MinFields {
		return nil, eris.Errorf("parse: pas2 record has %d fields, want %d", len(fields), pas2MinFields)
	}
	committee := strings.TrimSpace(fields[pas2FieldCommittee])
	candidate := strings.TrimSpace(fields[pas2FieldCandidate])
	if committee == "" || candidate == "" {
		return nil, eris.New("parse: pas2 record missing committee or candidate id")
	}
	cents, err := parseAmountCents(fields[pas2FieldAmount])
	if err != nil {
		return nil, err
	}
	return &model.RawContribution{
		CommitteeID:     committee,
		CandidateID:     candidate,
		AmountCents:     cents,
		TransactionDate: parseDate(fields[pas2FieldDate]),
		TransactionID:   strings.TrimSpace(fields[pas2FieldTxID]),
		SourceLine:      sourceLine,
		DataYear:        dataYear,
	}, nil
}

// ParseTransferLine parses one oth file record (committee-to-committee
// transaction). The receiver may legitimately be blank.
func ParseTransferLine(fields []string, dataYear int, sourceLine int64) (*model.RawTransfer, error) {
	if len(fields) < othMinFields {
		return nil, eris.Errorf("parse: oth record has %d fields, want %d", len(fields), othMinFields)
	}
	committee := strings.TrimSpace(fields[othFieldCommittee])
	if committee == "" {
		return nil, eris.New("parse: oth record missing committee_id")
	}
	cents, err := parseAmountCents(fields[othFieldAmount])
	if err != nil {
		return nil, err
	}
	return &model.RawTransfer{
		CommitteeID:         committee,
		ReceiverCommitteeID: strings.TrimSpace(fields[othFieldReceiver]),
		AmountCents:         cents,
		TransactionID:       strings.TrimSpace(fields[othFieldTxID]),
		SourceLine:          sourceLine,
		DataYear:            dataYear,
	}, nil
}

// parseAmountCents converts a dollar amount string to integer cents.
// Decimal arithmetic avoids float drift on amounts like "1234.56".
func parseAmountCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, eris.New("parse: empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, eris.Wrapf(err, "parse: amount %q", s)
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// parseDate parses the MMDDYYYY transaction date format. Returns nil for
// blank or malformed dates; dates are informational only.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return nil
	}
	t, err := time.Parse("01022006", s)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
