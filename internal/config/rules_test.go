package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelbill/internal"
)

func TestParseRulesFillsDefaults(t *testing.T) {
	rules, err := ParseRules([]byte(`{
		"column_mappings": {"flight_date": ["日期"], "origin": ["始发站"]},
		"city_codes": {"郑州": "CGO"},
		"settlement_names_by_airline": {"YG": "圆通货运航空", "默认": "其他航司"},
		"output_fields": {"business_type": "空运出口", "fee_name": "燃油差价费", "settlement_name": "航空公司"},
		"api": {"url": "https://contracts.example.test/match", "timeout": 2.5}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"日期"}, rules.ColumnMappings[internal.FieldFlightDate])
	assert.Equal(t, []string{"始发站"}, rules.ColumnMappings[internal.FieldOrigin])
	for _, f := range internal.RequiredFields {
		_, ok := rules.ColumnMappings[f]
		assert.True(t, ok, f)
	}
	assert.Equal(t, defaultDateFormats(), rules.DateFormats)
	assert.NotNil(t, rules.MajorAirportsByAirline)
	assert.NotNil(t, rules.RouteFilters)
	assert.Equal(t, 2500*time.Millisecond, rules.API.TimeoutDuration())
}

func TestParseRulesRejectsBadJSON(t *testing.T) {
	_, err := ParseRules([]byte(`{"column_mappings": [}`))
	assert.Error(t, err)
}

func TestSettlementName(t *testing.T) {
	rules := DefaultRules()
	assert.Equal(t, "航空公司", rules.SettlementName("YG"))

	rules.SettlementNamesByAirline = map[string]string{"YG": "圆通货运航空"}
	assert.Equal(t, "圆通货运航空", rules.SettlementName("YG"))
	assert.Equal(t, "航空公司", rules.SettlementName("CK"))

	rules.SettlementNamesByAirline[DefaultSettlementKey] = "其他航司"
	assert.Equal(t, "其他航司", rules.SettlementName("CK"))
}

func TestWithEnvOverridesEndpoint(t *testing.T) {
	rules := DefaultRules()
	rules.API.URL = "https://from-file.example.test"

	out := rules.WithEnv(Config{LookupURL: "https://from-env.example.test", LookupTimeoutMs: 1500})
	assert.Equal(t, "https://from-env.example.test", out.API.URL)
	assert.Equal(t, 1500*time.Millisecond, out.API.TimeoutDuration())
	assert.Equal(t, "https://from-file.example.test", rules.API.URL)

	same := rules.WithEnv(Config{})
	assert.Equal(t, rules.API, same.API)
	assert.Equal(t, 30*time.Second, APIConfig{}.TimeoutDuration())
}

func TestLoadRulesFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"date_formats": ["%d.%m.%Y"]}`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"%d.%m.%Y"}, rules.DateFormats)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadRulesSearchesWorkingDirectory(t *testing.T) {
	chdir(t, t.TempDir())

	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().CityCodes, rules.CityCodes)

	require.NoError(t, os.MkdirAll("assets", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("assets", "config.json"), []byte(`{"city_codes": {"列日": "LGG"}}`), 0o644))
	rules, err = LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"列日": "LGG"}, rules.CityCodes)
}

func TestRuntimeOverride(t *testing.T) {
	var nilOverride *RuntimeOverride
	assert.True(t, nilOverride.Empty())
	assert.True(t, (&RuntimeOverride{}).Empty())

	path := filepath.Join(t.TempDir(), "runtime.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"header_row": 2, "columns": {"route": "C", "fuel_price": "燃油费"}}`), 0o644))
	o, err := LoadRuntimeOverride(path)
	require.NoError(t, err)
	assert.False(t, o.Empty())
	require.NotNil(t, o.HeaderRow)
	assert.Equal(t, 2, *o.HeaderRow)
	assert.Equal(t, map[string]string{"route": "C", "fuel_price": "燃油费"}, o.Columns)
}
