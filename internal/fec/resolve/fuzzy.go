package resolve

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultSimilarityThreshold is the minimum TokenSortRatio score for two
// names to be clustered into the same variant group.
const DefaultSimilarityThreshold = 85

// sortTokens splits a name into whitespace tokens, sorts them, and rejoins.
func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio scores the similarity of two names on a 0-100 scale using
// edit distance over sorted tokens, so word order does not matter
// ("bottling pepsi" and "pepsi bottling" score 100). Both inputs should
// already be normalized via NormalizeName.
func TokenSortRatio(a, b string) int {
	as := sortTokens(a)
	bs := sortTokens(b)

	if as == bs {
		return 100
	}
	maxLen := len(as)
	if len(bs) > maxLen {
		maxLen = len(bs)
	}
	if maxLen == 0 {
		return 100
	}

	dist := levenshtein.ComputeDistance(as, bs)
	if dist >= maxLen {
		return 0
	}
	return (maxLen - dist) * 100 / maxLen
}
