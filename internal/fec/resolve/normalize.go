// Package resolve implements organization-name normalization, fuzzy variant
// grouping, and committee-name extraction for FEC entity resolution.
package resolve

import (
	"regexp"
	"strings"
)

// orgSuffixes lists legal/organizational suffixes stripped during
// normalization, in match order. Multi-word phrases come before their
// single-word fragments so "political action committee" is removed whole.
var orgSuffixes = []string{
	"political action committee",
	"corporation",
	"incorporated",
	"corp",
	"inc",
	"company",
	"co",
	"llc",
	"lp",
	"ltd",
	"limited",
	"pac",
}

var suffixRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(orgSuffixes))
	for i, s := range orgSuffixes {
		// Whole-word match anywhere in the name, with an optional trailing period.
		res[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(s) + `\b\.?`)
	}
	return res
}()

var (
	punctRe      = regexp.MustCompile(`[^\w\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeName produces the canonical lowercase join key for an
// organization name:
//  1. Lowercase
//  2. Remove legal suffixes (corp, inc, llc, pac, ...) as whole words
//  3. Strip punctuation
//  4. Collapse whitespace and trim
//
// The function is pure and idempotent; empty input yields "".
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	for _, re := range suffixRes {
		name = re.ReplaceAllString(name, "")
	}

	name = punctRe.ReplaceAllString(name, "")
	name = multiSpaceRe.ReplaceAllString(name, " ")

	return strings.TrimSpace(name)
}
