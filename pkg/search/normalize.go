package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalize folds s to lower-case ASCII-ish text: diacritics removed and
// every run of non letters/digits collapsed to one space.
func normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenize returns the normalized tokens of s longer than one rune.
func tokenize(s string) []string {
	fields := strings.Fields(normalize(s))
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// fuzzyThreshold is the allowed edit distance for a token, 0 when the token
// is too short for fuzzy matching. Tokens of 3 and 4 runes still get one
// edit, which a strict 20% of their length would round down to zero.
func fuzzyThreshold(token string) int {
	n := utf8.RuneCountInString(token)
	if n < 3 {
		return 0
	}
	return max(1, n/5)
}

// withinDistance reports whether a and b are at most limit edits apart.
// Pairs whose lengths already differ by more than limit are rejected
// without computing the distance.
func withinDistance(a, b string, limit int) bool {
	if d := utf8.RuneCountInString(a) - utf8.RuneCountInString(b); d > limit || -d > limit {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= limit
}
