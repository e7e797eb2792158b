package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FoldUnicode applies NFKC so full-width and other compatibility digits
// become ASCII, and turns no-break and zero-width characters into spaces.
func FoldUnicode(input string) string {
	folded := norm.NFKC.String(input)
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u2007', '\u202f', '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return ' '
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, folded)
}

// CollapseSpace trims and reduces every whitespace run to a single space.
func CollapseSpace(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
