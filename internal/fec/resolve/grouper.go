package resolve

import (
	"sort"
)

// Group is one equivalence class of organization-name variants.
type Group struct {
	CanonicalName string
	DisplayName   string
	StockTicker   string
	Verified      bool
	Variants      []string
}

// Grouper partitions raw organization names into variant groups. Kept as an
// interface so the greedy pairwise clustering can be swapped for a
// blocking/indexing structure without touching callers.
type Grouper interface {
	Group(names []string) []Group
}

// GreedyGrouper clusters names with a single greedy pass: each name joins
// the first existing group whose canonical scores at or above Threshold,
// otherwise it starts a new group. Verified seeds are resolved first and
// always win over the fuzzy pass.
type GreedyGrouper struct {
	Threshold int
	Seeds     []SeedCompany
}

// NewGreedyGrouper builds a grouper with the default similarity threshold.
func NewGreedyGrouper(seeds []SeedCompany) *GreedyGrouper {
	return &GreedyGrouper{
		Threshold: DefaultSimilarityThreshold,
		Seeds:     seeds,
	}
}

type cluster struct {
	canonical string // shortest normalized member, tie lexicographic
	display   string // raw form of the canonical member
	members   []string
}

// Group implements Grouper. Output is deterministic for a fixed input
// ordering: seeds are consulted before clustering, clusters are scanned in
// creation order, and the result is sorted by canonical name.
func (g *GreedyGrouper) Group(names []string) []Group {
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	// Seed variant lookup. When an adversarial variant appears under two
	// seeds, the lexicographically-first canonical wins, deterministically.
	seedByVariant := make(map[string]int)
	seedIdx := make(map[string]int, len(g.Seeds))
	for i, seed := range g.Seeds {
		seedIdx[seed.CanonicalName] = i
		for _, v := range seed.Variants {
			nv := NormalizeName(v)
			if nv == "" {
				continue
			}
			if j, ok := seedByVariant[nv]; ok && g.Seeds[j].CanonicalName <= seed.CanonicalName {
				continue
			}
			seedByVariant[nv] = i
		}
		// A seed's own canonical name is implicitly a variant of itself.
		if nc := NormalizeName(seed.CanonicalName); nc != "" {
			if _, ok := seedByVariant[nc]; !ok {
				seedByVariant[nc] = i
			}
		}
	}

	seedMembers := make(map[int][]string)
	var clusters []*cluster

	for _, raw := range names {
		norm := NormalizeName(raw)
		if norm == "" {
			continue
		}

		if i, ok := seedByVariant[norm]; ok {
			seedMembers[i] = append(seedMembers[i], raw)
			continue
		}

		matched := false
		for _, c := range clusters {
			if TokenSortRatio(norm, c.canonical) >= threshold {
				c.members = append(c.members, raw)
				if shorter(norm, c.canonical) {
					c.canonical = norm
					c.display = raw
				}
				matched = true
				break
			}
		}
		if !matched {
			clusters = append(clusters, &cluster{canonical: norm, display: raw, members: []string{raw}})
		}
	}

	var out []Group
	for i, seed := range g.Seeds {
		members := seedMembers[i]
		if len(members) == 0 {
			continue
		}
		out = append(out, Group{
			CanonicalName: seed.CanonicalName,
			DisplayName:   seed.DisplayName,
			StockTicker:   seed.StockTicker,
			Verified:      true,
			Variants:      members,
		})
	}
	for _, c := range clusters {
		out = append(out, Group{
			CanonicalName: c.canonical,
			DisplayName:   c.display,
			Variants:      c.members,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out
}

// shorter reports whether a should replace b as a cluster canonical:
// strictly shorter wins, equal length breaks ties lexicographically.
func shorter(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
