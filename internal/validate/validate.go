// Package validate checks settlement rows before they are imported.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"fuelbill/internal"
)

// maxFailureDetails caps the failing rows kept in a report.
const maxFailureDetails = 10

var (
	reDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reAirline = regexp.MustCompile(`^[A-Z]{2,3}$`)
	reAirport = regexp.MustCompile(`^[A-Z]{3}$`)

	priceTolerance = decimal.RequireFromString("0.001")
)

// RequiredColumns must be present and non-empty on every row.
var RequiredColumns = []string{
	internal.ColBusinessType,
	internal.ColAirline,
	internal.ColOrigin,
	internal.ColDestination,
	internal.ColFeeName,
	internal.ColSettlementName,
	internal.ColUnitPrice,
}

// Record is one output row keyed by header. A missing key means the
// column itself is missing.
type Record map[string]string

type Failure struct {
	RowNumber int      `csv:"row"`
	Issues    []string `csv:"-"`
	Summary   string   `csv:"issues"`
}

type Report struct {
	TotalRows   int
	PassedRows  int
	FailedRows  int
	PassRate    float64
	TotalIssues int
	// Failures holds the first failing rows only.
	Failures []Failure
	all      []Failure
}

func (r Report) OK() bool {
	return r.FailedRows == 0
}

// AllFailures returns every failing row, not only the reported ones.
func (r Report) AllFailures() []Failure {
	return r.all
}

// CheckRow returns the problems of one row.
func CheckRow(rec Record) []string {
	var issues []string
	for _, col := range RequiredColumns {
		v, ok := rec[col]
		switch {
		case !ok:
			issues = append(issues, fmt.Sprintf("缺失必填字段: %s", col))
		case strings.TrimSpace(v) == "":
			issues = append(issues, fmt.Sprintf("必填字段为空: %s", col))
		}
	}

	if v := strings.TrimSpace(rec[internal.ColFlightDate]); v != "" && !reDate.MatchString(v) {
		issues = append(issues, fmt.Sprintf("日期格式错误（应为YYYY-MM-DD）: %s", v))
	}

	if v := strings.TrimSpace(rec[internal.ColUnitPrice]); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			issues = append(issues, fmt.Sprintf("价格格式错误: %s", v))
		} else if price.Sub(price.Round(2)).Abs().GreaterThan(priceTolerance) {
			issues = append(issues, fmt.Sprintf("价格精度错误（应保留两位小数）: %s", v))
		}
	}

	if v := strings.TrimSpace(rec[internal.ColAirline]); v != "" && !reAirline.MatchString(v) {
		issues = append(issues, fmt.Sprintf("航司代码格式错误（应为2-3个大写字母）: %s", v))
	}

	for _, col := range []string{internal.ColOrigin, internal.ColDestination} {
		if v := strings.TrimSpace(rec[col]); v != "" && !reAirport.MatchString(v) {
			issues = append(issues, fmt.Sprintf("%s代码格式错误（应为3个大写字母）: %s", col, v))
		}
	}
	return issues
}

// Check validates every record. Row numbers count data rows from 1.
func Check(records []Record) Report {
	report := Report{TotalRows: len(records)}
	for i, rec := range records {
		issues := CheckRow(rec)
		if len(issues) == 0 {
			report.PassedRows++
			continue
		}
		report.TotalIssues += len(issues)
		report.all = append(report.all, Failure{RowNumber: i + 1, Issues: issues, Summary: strings.Join(issues, "; ")})
	}
	report.FailedRows = len(report.all)
	if report.TotalRows > 0 {
		report.PassRate = float64(report.PassedRows) / float64(report.TotalRows)
	}
	report.Failures = report.all
	if len(report.Failures) > maxFailureDetails {
		report.Failures = report.Failures[:maxFailureDetails]
	}
	return report
}

// FromOutputRows renders pipeline rows the way they are written to disk.
func FromOutputRows(rows []internal.OutputRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			internal.ColBusinessType:   row.BusinessType,
			internal.ColAirline:        deref(row.Airline),
			internal.ColContractNo:     deref(row.ContractNo),
			internal.ColOrigin:         deref(row.Origin),
			internal.ColDestination:    deref(row.Destination),
			internal.ColFlightDate:     deref(row.FlightDate),
			internal.ColFeeName:        row.FeeName,
			internal.ColSettlementName: row.SettlementName,
			internal.ColUnitPrice:      "",
		}
		if row.UnitPrice != nil {
			rec[internal.ColUnitPrice] = row.UnitPrice.String()
		}
		out = append(out, rec)
	}
	return out
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
