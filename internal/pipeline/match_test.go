package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelbill/internal"
	"fuelbill/internal/config"
)

func TestSubstringMatcher(t *testing.T) {
	assert.True(t, SubstringMatcher.Match("燃油差价费（元）", []string{"燃油差价费"}))
	assert.True(t, SubstringMatcher.Match("日期", []string{"航班日期"}))
	assert.True(t, SubstringMatcher.Match(" 航 段 ", []string{"航段"}))
	assert.False(t, SubstringMatcher.Match("", []string{"航段"}))
	assert.False(t, SubstringMatcher.Match("航段", []string{"", "  "}))
	assert.False(t, SubstringMatcher.Match("备注", []string{"航段"}))
}

func TestEditDistanceMatcher(t *testing.T) {
	m := EditDistanceMatcher{MaxDistance: 1}
	assert.True(t, m.Match("Flight No", []string{"flight no."}))
	assert.True(t, m.Match("航线", []string{"航段"}))
	assert.False(t, EditDistanceMatcher{MaxDistance: 0}.Match("航线", []string{"航段"}))
	assert.True(t, EditDistanceMatcher{MaxDistance: 0}.Match("航段（中文）", []string{"航段"}))
}

func TestNewHeaderMatcher(t *testing.T) {
	assert.IsType(t, EditDistanceMatcher{}, NewHeaderMatcher("levenshtein", 2))
	assert.NotNil(t, NewHeaderMatcher("unknown", 0))
}

func TestResolveColumnsPriorityAndClaims(t *testing.T) {
	headers := []string{"序号", "航班日期", "航段", "航班号", "燃油差价费（元）"}
	got := ResolveColumns(headers, config.DefaultRules().ColumnMappings, SubstringMatcher)

	assert.Equal(t, internal.ColumnMap{
		internal.FieldFlightDate: 1,
		internal.FieldRoute:      2,
		internal.FieldFlightNo:   3,
		internal.FieldFuelPrice:  4,
	}, got)
}

func TestResolveColumnsNeverSharesAColumn(t *testing.T) {
	// "航班" names flight_no but the only header containing it is the date column
	headers := []string{"航班日期", "航段", "燃油差价费"}
	got := ResolveColumns(headers, config.DefaultRules().ColumnMappings, SubstringMatcher)

	assert.Equal(t, 0, got[internal.FieldFlightDate])
	assert.False(t, got.Has(internal.FieldFlightNo))
	seen := map[int]bool{}
	for _, col := range got {
		require.False(t, seen[col])
		seen[col] = true
	}
}

func TestResolveColumnsOriginDestinationOnlyWhenMapped(t *testing.T) {
	headers := []string{"航班日期", "航班号", "始发站", "到达站", "燃油差价费"}
	rules := config.DefaultRules()
	got := ResolveColumns(headers, rules.ColumnMappings, SubstringMatcher)
	assert.False(t, got.Has(internal.FieldOrigin))

	rules.ColumnMappings[internal.FieldOrigin] = []string{"始发站"}
	rules.ColumnMappings[internal.FieldDestination] = []string{"到达站"}
	got = ResolveColumns(headers, rules.ColumnMappings, SubstringMatcher)
	assert.Equal(t, 2, got[internal.FieldOrigin])
	assert.Equal(t, 3, got[internal.FieldDestination])
}

func TestResolveOverrideColumns(t *testing.T) {
	headers := []string{"序号", "日期", "航段", "航班", "金额"}
	got, warnings := ResolveOverrideColumns(headers, map[string]string{
		"flight_date": "B",
		"route":       "航段",
		"flight_no":   "d",
		"fuel_price":  "Z",
		"origin":      "起飞站",
		"extra":       "A",
	})

	assert.Equal(t, internal.ColumnMap{
		internal.FieldFlightDate: 1,
		internal.FieldRoute:      2,
		internal.FieldFlightNo:   3,
	}, got)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "out of range")
	assert.Contains(t, warnings[1], "does not exist")
	assert.Contains(t, warnings[2], "unknown field")
}

func TestResolveOverrideColumnsKeepsColumnsDistinct(t *testing.T) {
	headers := []string{"日期", "航段", "航班", "金额"}
	got, warnings := ResolveOverrideColumns(headers, map[string]string{
		"flight_date": "A",
		"route":       "A",
		"flight_no":   "C",
		"fuel_price":  "D",
		"origin":      "航班",
	})

	assert.Equal(t, internal.ColumnMap{
		internal.FieldFlightDate: 0,
		internal.FieldFlightNo:   2,
		internal.FieldFuelPrice:  3,
	}, got)
	require.Len(t, warnings, 2)
	assert.Equal(t, "column A for route is already used by another field", warnings[0])
	assert.Equal(t, `column "航班" for origin is already used by another field`, warnings[1])
}
