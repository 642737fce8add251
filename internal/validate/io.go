package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// ReadRecords loads the first sheet of a settlement file. The first row is
// the header; fully blank rows are skipped.
func ReadRecords(path string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		rec := Record{}
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// WriteFailuresCSV writes every failing row with its issues.
func WriteFailuresCSV(report Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	failures := report.AllFailures()
	if failures == nil {
		failures = []Failure{}
	}
	if err := gocsv.MarshalFile(&failures, f); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

// PrintReport writes the human readable summary.
func PrintReport(w io.Writer, report Report) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "数据验证报告")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "总行数: %d\n", report.TotalRows)
	fmt.Fprintf(w, "通过验证: %d\n", report.PassedRows)
	fmt.Fprintf(w, "验证失败: %d\n", report.FailedRows)
	fmt.Fprintf(w, "通过率: %.1f%%\n", report.PassRate*100)
	fmt.Fprintf(w, "总问题数: %d\n", report.TotalIssues)
	if len(report.Failures) > 0 {
		fmt.Fprintf(w, "\n前%d条错误详情:\n", maxFailureDetails)
		for _, failure := range report.Failures {
			fmt.Fprintf(w, "\n  行 %d:\n", failure.RowNumber)
			for _, issue := range failure.Issues {
				fmt.Fprintf(w, "    - %s\n", issue)
			}
		}
	}
	fmt.Fprintln(w, line)
}
