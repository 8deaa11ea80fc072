package books

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize is the popularity key of a value: NFKC form, all whitespace
// removed, lower-cased. Distinct spellings that differ only in spacing
// collapse to one key.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return cases.Lower(language.Und).String(s)
}

// MatchExact returns the candidate equal to input under Normalize.
func MatchExact(input string, candidates []string) (string, bool) {
	key := Normalize(input)
	if key == "" {
		return "", false
	}
	for _, c := range candidates {
		if Normalize(c) == key {
			return c, true
		}
	}
	return "", false
}
