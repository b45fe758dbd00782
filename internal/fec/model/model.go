// Package model defines the FEC pipeline's domain types: raw bulk-file
// records, variant groups, per-party aggregates, and consolidated records.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Party is an FEC party-affiliation code. The set is open (third parties
// appear in the data), but blank or unrecognized codes always land in
// PartyUnknown rather than being dropped.
type Party string

const (
	PartyDemocrat   Party = "DEM"
	PartyRepublican Party = "REP"
	PartyUnknown    Party = "UNKNOWN"
)

// NormalizeParty maps a raw party_affiliation string to a Party. Blank
// input is PartyUnknown; anything else is passed through uppercased.
func NormalizeParty(raw string) Party {
	p := strings.ToUpper(strings.TrimSpace(raw))
	if p == "" {
		return PartyUnknown
	}
	return Party(p)
}

// Total accumulates money and contribution counts for one party.
type Total struct {
	AmountCents int64 `json:"total_amount"`
	Count       int64 `json:"contribution_count"`
}

// PartyTotals maps party codes to their accumulated totals.
type PartyTotals map[Party]Total

// Add accumulates a single amount into the given party's bucket.
func (pt PartyTotals) Add(p Party, amountCents int64) {
	t := pt[p]
	t.AmountCents += amountCents
	t.Count++
	pt[p] = t
}

// Merge returns a new PartyTotals summing this and other field-by-field.
// Neither input is modified.
func (pt PartyTotals) Merge(other PartyTotals) PartyTotals {
	out := make(PartyTotals, len(pt)+len(other))
	for p, t := range pt {
		out[p] = t
	}
	for p, t := range other {
		cur := out[p]
		cur.AmountCents += t.AmountCents
		cur.Count += t.Count
		out[p] = cur
	}
	return out
}

// Sum returns the total amount across all parties.
func (pt PartyTotals) Sum() int64 {
	var sum int64
	for _, t := range pt {
		sum += t.AmountCents
	}
	return sum
}

// RawCommittee is one row of the FEC committee master file (cm).
type RawCommittee struct {
	CommitteeID      string
	CommitteeName    string
	CommitteeType    string // single-letter code; "Q" = PAC
	ConnectedOrgName string // free text, may be the literal "NONE"
	CandidateID      string // for candidate committees
	DataYear         int
}

// RawCandidate is one row of the FEC candidate master file (cn).
type RawCandidate struct {
	CandidateID      string
	CandidateName    string
	PartyAffiliation string
	ElectionYear     int
	DataYear         int
}

// RawContribution is one itemized PAC-to-candidate contribution (pas2).
// SourceLine disambiguates files with no natural primary key.
type RawContribution struct {
	CommitteeID     string
	CandidateID     string
	AmountCents     int64
	TransactionDate *time.Time
	TransactionID   string
	SourceLine      int64
	DataYear        int
}

// RawTransfer is one committee-to-committee transaction (oth), the
// indirect donation path.
type RawTransfer struct {
	CommitteeID         string
	ReceiverCommitteeID string // may be empty
	AmountCents         int64
	TransactionID       string
	SourceLine          int64
	DataYear            int
}

// CommitteeRef ties a committee ID to the bulk-file year it was seen in.
type CommitteeRef struct {
	CommitteeID string `json:"committee_id"`
	DataYear    int    `json:"data_year"`
}

// VariantGroup is a persisted equivalence class of organization names.
// Discovery runs only ever add variants and committee refs, never move an
// existing variant to a different group.
type VariantGroup struct {
	CanonicalName string
	DisplayName   string
	StockTicker   string
	IsVerified    bool
	Variants      []string
	Committees    []CommitteeRef
}

// SummarySource identifies which aggregation path produced a summary.
type SummarySource string

const (
	SourceLinkage      SummarySource = "linkage"
	SourcePACTransfers SummarySource = "pac_transfers"
)

// PartySummary is the per-company per-year aggregate from one source path.
// Fully rebuilt on each aggregation run, never patched.
type PartySummary struct {
	NormalizedName        string
	DisplayName           string
	DataYear              int
	PartyTotals           PartyTotals
	TotalContributedCents int64
	Source                SummarySource
	PACCommittees         []string
}

// ConsolidatedRecord is the terminal per-company per-year artifact merging
// the linkage and PAC-transfer paths.
type ConsolidatedRecord struct {
	NormalizedName        string
	DisplayName           string
	StockTicker           string
	DataYear              int
	PartyTotals           PartyTotals
	TotalContributedCents int64
	LinkageTotalCents     int64
	PACTransferTotalCents int64
	HasLinkageData        bool
	HasPACData            bool
	DataSources           []string
	PACCommittees         []string
}

// HistorySnapshot is an immutable copy of a consolidated record's prior
// state, written before each overwrite.
type HistorySnapshot struct {
	DocKey     string
	SnapshotAt time.Time
	Record     ConsolidatedRecord
}

// SanitizeKey replaces characters that are illegal in document keys.
// Every producer and consumer of summary/consolidated keys must derive
// them through here, or records written under one spelling become
// unreachable under the other.
func SanitizeKey(s string) string {
	return strings.ReplaceAll(s, "/", "-")
}

// DocKey derives the storage key for per-company per-year documents.
func DocKey(normalizedName string, dataYear int) string {
	return fmt.Sprintf("%s_%d", SanitizeKey(normalizedName), dataYear)
}
