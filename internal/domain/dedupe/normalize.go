package dedupe

import (
	"regexp"
	"strings"
	"time"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Trailing grade/age qualifiers like "(Grades 3-5)" or "(Age 5-7)".
	// Sources frequently list the same program once per band; stripping the
	// qualifier collapses the bands to one canonical identity.
	qualifierRe = regexp.MustCompile(`(?i)\s*\((?:grades?|ages?)\s*[^)]*\)\s*$`)
)

// NormalizeName produces the canonical form of a program name: lowercase,
// trimmed, internal whitespace collapsed, trailing grade/age qualifier
// stripped. Normalization is idempotent.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = whitespaceRe.ReplaceAllString(n, " ")
	n = qualifierRe.ReplaceAllString(n, "")
	return strings.TrimSpace(n)
}

// Key builds the deterministic dedupe key used for exact within-source
// collapsing: "sourceID:normalized-name:YYYY-MM-DD". Case and whitespace
// differences in the name never change the key.
func Key(sourceID, name string, date time.Time) string {
	return sourceID + ":" + NormalizeName(name) + ":" + date.Format("2006-01-02")
}
