package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reCurrency      = regexp.MustCompile(`(?i)(CNY|RMB|USD|元|¥|\$)`)
	reThousandComma = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	reThousandDot   = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+,\d+$`)
)

// ParseFare reads a money amount written as text ("1,234.50", "150元",
// "￥85.5"). The second result is false when no number can be read or
// the amount is negative.
func ParseFare(input string) (decimal.Decimal, bool) {
	s := Narrow(input)
	s = reCurrency.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = reSpaces.ReplaceAllString(s, "")
	if s == "" {
		return decimal.Zero, false
	}

	switch {
	case reThousandComma.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case reThousandDot.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ",") && !strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
