package resolve

import (
	"regexp"
	"strings"
)

// pacPhrases are committee-name suffix phrases removed when recovering a
// sponsor organization from a committee name. Longer phrases first so
// "federal political action committee" is not left half-stripped.
var pacPhrases = []string{
	" federal political action committee",
	" political action committee",
	" civic action committee",
	" federal pac",
}

var parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)\s*`)

// minExtractedLen guards against stripping a committee name down to noise
// ("US PAC" → "us"); anything shorter is treated as a failed extraction.
const minExtractedLen = 3

// ExtractOrgFromCommittee recovers a sponsoring organization name from a
// PAC committee name, for committees whose connected_org_name field is
// empty or the "NONE" sentinel. Returns ok=false when no plausible
// organization name remains.
func ExtractOrgFromCommittee(committeeName string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(committeeName))
	if name == "" {
		return "", false
	}

	// Trailing parenthetical abbreviations: "INTEL CORPORATION PAC (INTELPAC)".
	name = strings.TrimSpace(parentheticalRe.ReplaceAllString(name, " "))

	for _, phrase := range pacPhrases {
		if strings.HasSuffix(name, phrase) {
			name = strings.TrimSpace(strings.TrimSuffix(name, phrase))
			break
		}
	}

	// A bare trailing "pac" or "committee" is only stripped when the rest of
	// the name still has at least two words, so "PAC" alone is never emptied.
	for _, bare := range []string{" pac", " committee"} {
		if strings.HasSuffix(name, bare) && len(strings.Fields(name)) > 2 {
			name = strings.TrimSpace(strings.TrimSuffix(name, bare))
			break
		}
	}

	if len(name) < minExtractedLen {
		return "", false
	}
	return name, true
}
