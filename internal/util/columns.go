package util

import (
	"fmt"
	"strings"
)

// ColumnLettersToIndex decodes a spreadsheet column designator ("A", "AB")
// into a zero-based index using bijective base 26.
func ColumnLettersToIndex(letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, fmt.Errorf("empty column designator")
	}
	result := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column designator %q", letters)
		}
		result = result*26 + int(r-'A'+1)
	}
	return result - 1, nil
}

// IndexToColumnLetters is the inverse of ColumnLettersToIndex.
func IndexToColumnLetters(index int) string {
	if index < 0 {
		return ""
	}
	var buf []byte
	n := index + 1
	for n > 0 {
		n--
		buf = append([]byte{byte('A' + n%26)}, buf...)
		n /= 26
	}
	return string(buf)
}

// IsColumnDesignator reports whether an override value names a column by
// letters rather than by header label.
func IsColumnDesignator(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
