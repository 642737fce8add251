package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Narrow folds full-width ASCII variants and the ideographic space to their
// half-width forms. CJK ideographs are left untouched.
func Narrow(input string) string {
	return width.Narrow.String(input)
}

// CleanHeader is the comparison form of a header cell or keyword: half-width
// and without any whitespace.
func CleanHeader(input string) string {
	return reSpaces.ReplaceAllString(strings.TrimSpace(Narrow(input)), "")
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// LettersOnly keeps every Unicode letter of input.
func LettersOnly(input string) string {
	var b strings.Builder
	for _, r := range input {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikeCode reports whether s is written like an airport code: at least
// three characters, some cased letters and none of them lowercase.
func LooksLikeCode(s string) bool {
	if len([]rune(s)) < 3 {
		return false
	}
	hasCased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			hasCased = true
		}
	}
	return hasCased
}

func Truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}

func StringPtr(v string) *string { return &v }

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
