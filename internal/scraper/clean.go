package scraper

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// cleanText folds text to its closest ASCII form (NFKD decomposition,
// then dropping the non-ASCII remainder) and collapses whitespace. The
// publish targets choke on typographic quotes and zero-width characters
// that news sites love.
func cleanText(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
