// Package normalize provides pure text canonicalization for player names,
// market strings, and dates. Every function here is total: unparseable input
// normalizes to a best-effort cleaned token, never an error.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// NFD-decompose then drop combining marks, so "Ş" becomes "S".
	diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	periodInitials = regexp.MustCompile(`\b([a-z])\.\s*([a-z])\b\.?`)
	spacedInitials = regexp.MustCompile(`\b([a-z]) ([a-z])\b`)
	// A trailing bare "v" is always treated as a generational suffix, even
	// for the rare surname that legitimately ends in one.
	nameSuffix     = regexp.MustCompile(`\s(jr|sr|ii|iii|iv|v)$`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9 ]`)
	multiSpace     = regexp.MustCompile(`\s+`)
)

// Name canonicalizes a human name for cross-source matching. The pipeline is
// fixed: strip diacritics, lower-case, drop apostrophes without inserting a
// space (O'Brien -> obrien), hyphens to spaces (Smith-Jones -> smith jones),
// collapse two-letter initials (J.J., J J and JJ all -> jj), strip remaining
// punctuation and generational suffixes, collapse whitespace. Idempotent:
// Name(Name(x)) == Name(x).
func Name(raw string) string {
	s := stripDiacritics(raw)
	s = strings.ToLower(s)

	// Apostrophes bind a contraction together; removing them must not split
	// the word.
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "")

	s = strings.ReplaceAll(s, "-", " ")

	s = periodInitials.ReplaceAllString(s, "$1$2")
	s = spacedInitials.ReplaceAllString(s, "$1$2")

	s = nonAlnum.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	for {
		stripped := nameSuffix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	return strings.TrimSpace(s)
}

func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}
