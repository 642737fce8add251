package pipeline

import (
	"github.com/cloudflare/ahocorasick"

	"fuelbill/internal"
)

// summaryMarkers flag total and footnote lines in the date column.
var summaryMarkers = ahocorasick.NewStringMatcher([]string{"合计", "注：", "注释", "说明"})

var filterFields = []internal.Field{
	internal.FieldRoute, internal.FieldFlightNo, internal.FieldFuelPrice,
	internal.FieldOrigin, internal.FieldDestination,
}

// DataRows returns the rows below the header, numbered from 1 like the
// spreadsheet. Fully blank rows are skipped.
func DataRows(grid internal.Grid, headerRow int) []internal.SourceRow {
	out := make([]internal.SourceRow, 0, len(grid))
	for r := headerRow + 1; r < len(grid); r++ {
		if blankRow(grid[r]) {
			continue
		}
		out = append(out, internal.SourceRow{RowNumber: r + 1, Cells: grid[r]})
	}
	return out
}

func blankRow(row []internal.Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// KeepRow is the data row predicate. Without a resolved date column every
// row is kept.
func KeepRow(row internal.SourceRow, columns internal.ColumnMap) bool {
	date, ok := row.Get(columns, internal.FieldFlightDate)
	if !ok {
		return true
	}
	if date.IsEmpty() {
		return false
	}
	if len(summaryMarkers.MatchThreadSafe([]byte(date.Text))) > 0 {
		return false
	}
	for _, field := range filterFields {
		cell, ok := row.Get(columns, field)
		if ok && cell.IsEmpty() {
			return false
		}
	}
	return true
}

func FilterRows(rows []internal.SourceRow, columns internal.ColumnMap) []internal.SourceRow {
	out := make([]internal.SourceRow, 0, len(rows))
	for _, row := range rows {
		if KeepRow(row, columns) {
			out = append(out, row)
		}
	}
	return out
}
