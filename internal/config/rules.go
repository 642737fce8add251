package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"fuelbill/internal"
)

// DefaultSettlementKey is the settlement_names_by_airline entry used when
// the airline has no name of its own.
const DefaultSettlementKey = "默认"

// Rules is the business configuration of the processor. It is loaded once
// and shared read-only by every stage.
type Rules struct {
	ColumnMappings           map[internal.Field][]string `json:"column_mappings"`
	DateFormats              []string                    `json:"date_formats"`
	CityCodes                map[string]string           `json:"city_codes"`
	MajorAirportsByAirline   map[string][]string         `json:"major_airports_by_airline"`
	RouteFilters             map[string][]string         `json:"route_filters"`
	SettlementNamesByAirline map[string]string           `json:"settlement_names_by_airline"`
	OutputFields             OutputFields                `json:"output_fields"`
	API                      APIConfig                   `json:"api"`
}

type OutputFields struct {
	BusinessType   string `json:"business_type"`
	FeeName        string `json:"fee_name"`
	SettlementName string `json:"settlement_name"`
}

type APIConfig struct {
	URL string `json:"url"`
	// Timeout is in seconds.
	Timeout float64 `json:"timeout"`
}

func (a APIConfig) TimeoutDuration() time.Duration {
	if a.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.Timeout * float64(time.Second))
}

// RuntimeOverride carries operator-supplied structure hints for one file.
type RuntimeOverride struct {
	HeaderRow *int              `json:"header_row,omitempty"`
	Columns   map[string]string `json:"columns,omitempty"`
}

func (o *RuntimeOverride) Empty() bool {
	return o == nil || (o.HeaderRow == nil && len(o.Columns) == 0)
}

func LoadRuntimeOverride(path string) (*RuntimeOverride, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read runtime config %s", path)
	}
	var out RuntimeOverride
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil, eris.Wrapf(err, "parse runtime config %s", path)
	}
	return &out, nil
}

// LoadRules reads the rules file at path. An empty path searches
// assets/config.json and config.json in the working directory and falls back
// to DefaultRules when neither exists.
func LoadRules(path string) (*Rules, error) {
	if strings.TrimSpace(path) == "" {
		for _, candidate := range []string{filepath.Join("assets", "config.json"), "config.json"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return DefaultRules(), nil
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read rules %s", path)
	}
	return ParseRules(blob)
}

func ParseRules(blob []byte) (*Rules, error) {
	var rules Rules
	if err := json.Unmarshal(blob, &rules); err != nil {
		return nil, eris.Wrap(err, "parse rules")
	}
	rules.normalize()
	return &rules, nil
}

// WithEnv applies environment overrides for the lookup endpoint. The
// receiver is not modified.
func (r *Rules) WithEnv(cfg Config) *Rules {
	out := *r
	if strings.TrimSpace(cfg.LookupURL) != "" {
		out.API.URL = cfg.LookupURL
	}
	if cfg.LookupTimeoutMs > 0 {
		out.API.Timeout = float64(cfg.LookupTimeoutMs) / 1000
	}
	return &out
}

func (r *Rules) normalize() {
	if r.ColumnMappings == nil {
		r.ColumnMappings = map[internal.Field][]string{}
	}
	for _, f := range internal.RequiredFields {
		if _, ok := r.ColumnMappings[f]; !ok {
			r.ColumnMappings[f] = []string{}
		}
	}
	if len(r.DateFormats) == 0 {
		r.DateFormats = defaultDateFormats()
	}
	if r.CityCodes == nil {
		r.CityCodes = map[string]string{}
	}
	if r.MajorAirportsByAirline == nil {
		r.MajorAirportsByAirline = map[string][]string{}
	}
	if r.RouteFilters == nil {
		r.RouteFilters = map[string][]string{}
	}
	if r.SettlementNamesByAirline == nil {
		r.SettlementNamesByAirline = map[string]string{}
	}
}

// SettlementName resolves the settlement counterparty for an airline.
func (r *Rules) SettlementName(airline string) string {
	if name, ok := r.SettlementNamesByAirline[airline]; ok {
		return name
	}
	if name, ok := r.SettlementNamesByAirline[DefaultSettlementKey]; ok {
		return name
	}
	return r.OutputFields.SettlementName
}

func DefaultRules() *Rules {
	r := &Rules{
		ColumnMappings: map[internal.Field][]string{
			internal.FieldFlightDate: {"航班日期", "日期", "飞行日期", "起飞日期"},
			internal.FieldRoute:      {"航段", "航线", "路线", "起止"},
			internal.FieldFlightNo:   {"航班号", "航班", "班次号", "班次"},
			internal.FieldFuelPrice:  {"燃油差价费", "燃油差价费（元）", "差价费", "燃油费", "燃油附加费"},
		},
		DateFormats: defaultDateFormats(),
		CityCodes: map[string]string{
			"郑州":   "CGO",
			"布达佩斯": "BUD",
			"杭州":   "HGH",
			"上海":   "PVG",
			"北京":   "PEK",
			"广州":   "CAN",
			"深圳":   "SZX",
			"列日":   "LGG",
		},
		MajorAirportsByAirline:   map[string][]string{},
		RouteFilters:             map[string][]string{},
		SettlementNamesByAirline: map[string]string{},
		OutputFields: OutputFields{
			BusinessType:   "空运出口",
			FeeName:        "燃油差价费",
			SettlementName: "航空公司",
		},
		API: APIConfig{Timeout: 30},
	}
	return r
}

func defaultDateFormats() []string {
	return []string{"%Y-%m-%d", "%Y/%m/%d", "%Y.%m.%d", "%Y年%m月%d日", "%Y%m%d", "%d/%m/%Y"}
}
