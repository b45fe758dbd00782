// Package index builds the normalized-organization → committee index that
// both aggregation paths walk. It scans PAC-type committees, resolves each
// one's sponsoring organization, and maintains the persisted variant
// groups additively.
package index

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/stanse/fec-pipeline/internal/fec/model"
	"github.com/stanse/fec-pipeline/internal/fec/resolve"
)

// pacCommitteeType is the FEC committee_type code for corporate PACs.
const pacCommitteeType = "Q"

// noneSentinel is the literal placeholder FEC uses for an absent
// connected organization.
const noneSentinel = "NONE"

// CommitteeScanner reads PAC-type committees for a data year.
type CommitteeScanner interface {
	PACCommittees(ctx context.Context, dataYear int) ([]model.RawCommittee, error)
}

// GroupStore persists variant groups. Upsert semantics are additive:
// variants and committee refs are unioned in, never removed or moved.
type GroupStore interface {
	AllGroups(ctx context.Context) ([]model.VariantGroup, error)
	UpsertGroups(ctx context.Context, groups []model.VariantGroup) error
}

// Stats summarizes one index build.
type Stats struct {
	CommitteesScanned int
	SkippedExtraction int
	NewGroups         int
	UpdatedGroups     int
}

// Builder scans committees and maintains the variant-group index.
type Builder struct {
	committees CommitteeScanner
	groups     GroupStore
	grouper    resolve.Grouper
	threshold  int
	log        *zap.Logger
}

// NewBuilder wires an index builder. The grouper decides how previously
// unseen organization names cluster; threshold controls fuzzy attachment
// of new names to already-persisted groups.
func NewBuilder(committees CommitteeScanner, groups GroupStore, grouper resolve.Grouper) *Builder {
	return &Builder{
		committees: committees,
		groups:     groups,
		grouper:    grouper,
		threshold:  resolve.DefaultSimilarityThreshold,
		log:        zap.L().With(zap.String("component", "fec.index")),
	}
}

// orgEntry collects the committees observed for one normalized org name.
type orgEntry struct {
	raw  string
	refs []model.CommitteeRef
}

// Build scans the given years and brings the variant-group index up to
// date. Existing variant assignments are never changed; new organizations
// are attached to an existing group when similar enough, otherwise
// clustered among themselves.
func (b *Builder) Build(ctx context.Context, dataYears []int) (*Stats, error) {
	stats := &Stats{}

	observed := make(map[string]*orgEntry)
	var order []string

	for _, year := range dataYears {
		committees, err := b.committees.PACCommittees(ctx, year)
		if err != nil {
			return nil, err
		}
		stats.CommitteesScanned += len(committees)

		for _, cmte := range committees {
			if cmte.CommitteeType != pacCommitteeType {
				continue
			}
			org, ok := sponsorOrg(cmte)
			if !ok {
				stats.SkippedExtraction++
				continue
			}
			norm := resolve.NormalizeName(org)
			if norm == "" {
				stats.SkippedExtraction++
				continue
			}

			entry, seen := observed[norm]
			if !seen {
				entry = &orgEntry{raw: org}
				observed[norm] = entry
				order = append(order, norm)
			}
			entry.refs = appendRef(entry.refs, model.CommitteeRef{CommitteeID: cmte.CommitteeID, DataYear: cmte.DataYear})
		}
	}

	// Deterministic processing order regardless of scan order.
	sort.Strings(order)

	existing, err := b.groups.AllGroups(ctx)
	if err != nil {
		return nil, err
	}

	byCanonical := make(map[string]*model.VariantGroup, len(existing))
	variantToCanonical := make(map[string]string)
	for i := range existing {
		g := &existing[i]
		byCanonical[g.CanonicalName] = g
		variantToCanonical[g.CanonicalName] = g.CanonicalName
		for _, v := range g.Variants {
			if nv := resolve.NormalizeName(v); nv != "" {
				variantToCanonical[nv] = g.CanonicalName
			}
		}
	}

	dirty := make(map[string]*model.VariantGroup)
	var newNames []string

	for _, norm := range order {
		entry := observed[norm]

		// Already assigned: additive refresh of committee refs only.
		if canonical, ok := variantToCanonical[norm]; ok {
			g := byCanonical[canonical]
			if mergeEntry(g, norm, entry) {
				dirty[canonical] = g
			}
			continue
		}

		// Fuzzy attach to an existing group before clustering new names.
		if canonical, ok := b.nearestExisting(norm, existing); ok {
			g := byCanonical[canonical]
			g.Variants = append(g.Variants, entry.raw)
			variantToCanonical[norm] = canonical
			mergeEntry(g, norm, entry)
			dirty[canonical] = g
			continue
		}

		newNames = append(newNames, entry.raw)
	}

	// Cluster the genuinely new organizations among themselves.
	for _, grp := range b.grouper.Group(newNames) {
		group := model.VariantGroup{
			CanonicalName: grp.CanonicalName,
			DisplayName:   grp.DisplayName,
			StockTicker:   grp.StockTicker,
			IsVerified:    grp.Verified,
			Variants:      grp.Variants,
		}
		for _, v := range group.Variants {
			nv := resolve.NormalizeName(v)
			if e, ok := observed[nv]; ok {
				group.Committees = appendRefs(group.Committees, e.refs)
			}
		}

		if g, ok := byCanonical[group.CanonicalName]; ok {
			// A seed group that already exists in storage gains members.
			g.Variants = append(g.Variants, group.Variants...)
			g.Committees = appendRefs(g.Committees, group.Committees)
			dirty[g.CanonicalName] = g
			continue
		}

		dirty[group.CanonicalName] = &group
		stats.NewGroups++
	}

	if len(dirty) == 0 {
		b.log.Info("index up to date", zap.Int("committees", stats.CommitteesScanned))
		return stats, nil
	}

	upserts := make([]model.VariantGroup, 0, len(dirty))
	keys := make([]string, 0, len(dirty))
	for k := range dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		upserts = append(upserts, *dirty[k])
	}
	stats.UpdatedGroups = len(upserts) - stats.NewGroups

	if err := b.groups.UpsertGroups(ctx, upserts); err != nil {
		return nil, err
	}

	b.log.Info("index build complete",
		zap.Int("committees", stats.CommitteesScanned),
		zap.Int("skipped_extraction", stats.SkippedExtraction),
		zap.Int("new_groups", stats.NewGroups),
		zap.Int("updated_groups", stats.UpdatedGroups),
	)
	return stats, nil
}

// nearestExisting finds an existing group whose canonical is similar
// enough to absorb the new name. Verified groups are only joined through
// the seed list, never through fuzzy matching.
func (b *Builder) nearestExisting(norm string, existing []model.VariantGroup) (string, bool) {
	for i := range existing {
		if existing[i].IsVerified {
			continue
		}
		if resolve.TokenSortRatio(norm, existing[i].CanonicalName) >= b.threshold {
			return existing[i].CanonicalName, true
		}
	}
	return "", false
}

// sponsorOrg resolves a committee's sponsoring organization: the
// connected_org_name field when present, otherwise extraction from the
// committee name.
func sponsorOrg(cmte model.RawCommittee) (string, bool) {
	org := strings.TrimSpace(cmte.ConnectedOrgName)
	if org != "" && !strings.EqualFold(org, noneSentinel) {
		return org, true
	}
	return resolve.ExtractOrgFromCommittee(cmte.CommitteeName)
}

// mergeEntry unions the entry's committee refs into the group. Returns
// true when anything was added.
func mergeEntry(g *model.VariantGroup, _ string, entry *orgEntry) bool {
	before := len(g.Committees)
	g.Committees = appendRefs(g.Committees, entry.refs)
	return len(g.Committees) != before
}

func appendRef(refs []model.CommitteeRef, ref model.CommitteeRef) []model.CommitteeRef {
	for _, r := range refs {
		if r == ref {
			return refs
		}
	}
	return append(refs, ref)
}

func appendRefs(refs []model.CommitteeRef, more []model.CommitteeRef) []model.CommitteeRef {
	for _, r := range more {
		refs = appendRef(refs, r)
	}
	return refs
}
