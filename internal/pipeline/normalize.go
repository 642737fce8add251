package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fuelbill/internal"
	"fuelbill/internal/util"
)

var (
	reDateSplit = regexp.MustCompile(`[-/]`)
	reDigits    = regexp.MustCompile(`^\d+$`)
)

// routeSeparators are tried in order; "->" only wins when no earlier
// separator splits the text into two parts.
var routeSeparators = []string{"-", "=", "→", "->"}

// strptimeLayouts translates the directives used in date_formats.
var strptimeLayouts = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "1",
	'd': "2",
	'H': "15",
	'M': "4",
	'S': "5",
	'b': "Jan",
	'B': "January",
	'%': "%",
}

// StrptimeToLayout converts a strptime style pattern to a time layout.
// Unsupported directives make the pattern unusable.
func StrptimeToLayout(format string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			b.WriteByte(format[i])
			continue
		}
		if i+1 >= len(format) {
			return "", false
		}
		layout, ok := strptimeLayouts[format[i+1]]
		if !ok {
			return "", false
		}
		b.WriteString(layout)
		i++
	}
	return b.String(), true
}

// NormalizeDate renders a date cell as YYYY-MM-DD. Text that matches no
// configured format and no y-m-d shape is returned trimmed as is.
func NormalizeDate(cell internal.Cell, formats []string) *string {
	if cell.IsEmpty() {
		return nil
	}
	if cell.Kind == internal.CellDate {
		return util.StringPtr(cell.Time.Format("2006-01-02"))
	}

	text := cell.String()
	for _, format := range formats {
		layout, ok := StrptimeToLayout(format)
		if !ok {
			continue
		}
		if t, err := time.Parse(layout, text); err == nil {
			return util.StringPtr(t.Format("2006-01-02"))
		}
	}

	if parts := reDateSplit.Split(text, -1); len(parts) == 3 && allDigits(parts) {
		year, month, day := parts[0], parts[1], parts[2]
		if len(year) == 2 {
			year = "20" + year
		}
		return util.StringPtr(fmt.Sprintf("%s-%s-%s", year, zeroPad(month), zeroPad(day)))
	}
	return util.StringPtr(text)
}

func allDigits(parts []string) bool {
	for _, p := range parts {
		if !reDigits.MatchString(p) {
			return false
		}
	}
	return true
}

func zeroPad(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

// ExtractAirline keeps the letters of a flight number, uppercased.
func ExtractAirline(cell internal.Cell) *string {
	letters := util.LettersOnly(cell.String())
	if letters == "" {
		return nil
	}
	return util.StringPtr(strings.ToUpper(letters))
}

// ResolveRoute turns route cells into origin and destination codes.
// Separate origin and destination cells win when both are non-empty; codes
// are kept and city names looked up, unknown names pass through. A combined
// route cell is split on the first separator giving exactly two parts and
// both parts must be known cities.
func ResolveRoute(route internal.Cell, origin, destination *internal.Cell, cityCodes map[string]string) (*string, *string) {
	if origin != nil && destination != nil {
		o, d := origin.String(), destination.String()
		if o != "" && d != "" {
			return util.StringPtr(codeOrCity(o, cityCodes)), util.StringPtr(codeOrCity(d, cityCodes))
		}
	}

	text := strings.TrimSpace(util.Narrow(route.String()))
	if text == "" {
		return nil, nil
	}
	for _, sep := range routeSeparators {
		if !strings.Contains(text, sep) {
			continue
		}
		parts := strings.Split(text, sep)
		if len(parts) != 2 {
			continue
		}
		o, d := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if o == "" || d == "" {
			continue
		}
		return lookupCity(o, cityCodes), lookupCity(d, cityCodes)
	}
	return nil, nil
}

func codeOrCity(value string, cityCodes map[string]string) string {
	if util.LooksLikeCode(value) {
		return value
	}
	if code, ok := cityCodes[value]; ok {
		return code
	}
	return value
}

func lookupCity(city string, cityCodes map[string]string) *string {
	code, ok := cityCodes[city]
	if !ok || code == "" {
		return nil
	}
	return util.StringPtr(code)
}

// ParseFareCell reads a fare cell. Number cells are used directly;
// negative amounts are not fares.
func ParseFareCell(cell internal.Cell) (decimal.Decimal, bool) {
	switch {
	case cell.IsEmpty():
		return decimal.Zero, false
	case cell.Kind == internal.CellNumber:
		if cell.Number < 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(cell.Number), true
	default:
		return util.ParseFare(cell.String())
	}
}

// NormalizeRow turns a source row into a canonical row. Merged rows take
// their endpoints and fare from the merge.
func NormalizeRow(row internal.SourceRow, columns internal.ColumnMap, rules RowRules) internal.CanonicalRow {
	out := internal.CanonicalRow{RowNumber: row.RowNumber}

	if cell, ok := row.Get(columns, internal.FieldFlightDate); ok {
		out.FlightDate = NormalizeDate(cell, rules.DateFormats)
	}
	if cell, ok := row.Get(columns, internal.FieldFlightNo); ok {
		out.AirlineCode = ExtractAirline(cell)
	}

	route, _ := row.Get(columns, internal.FieldRoute)
	var origin, destination *internal.Cell
	if row.Leg != nil {
		o, d := row.Leg.Origin, row.Leg.Destination
		origin, destination = &o, &d
	} else {
		if cell, ok := row.Get(columns, internal.FieldOrigin); ok {
			origin = &cell
		}
		if cell, ok := row.Get(columns, internal.FieldDestination); ok {
			destination = &cell
		}
	}
	out.Origin, out.Destination = ResolveRoute(route, origin, destination, rules.CityCodes)

	if row.Leg != nil {
		out.FuelPrice = util.DecimalPtr(util.Round2(row.Leg.Fare))
	} else if cell, ok := row.Get(columns, internal.FieldFuelPrice); ok {
		if fare, ok := ParseFareCell(cell); ok {
			out.FuelPrice = util.DecimalPtr(util.Round2(fare))
		}
	}
	return out
}

// RowRules is the subset of the rules that normalization reads.
type RowRules struct {
	DateFormats []string
	CityCodes   map[string]string
}
