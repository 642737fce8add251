package pipeline

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"fuelbill/internal"
	"fuelbill/internal/util"
)

// ExportRowsToXLSX writes the settlement sheet. Prices are numeric cells,
// absent values stay blank.
func ExportRowsToXLSX(rows []internal.OutputRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range internal.OutputHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	priceStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return eris.Wrap(err, "create price style")
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.BusinessType)
		set(2, util.Deref(row.Airline))
		set(3, util.Deref(row.ContractNo))
		set(4, util.Deref(row.Origin))
		set(5, util.Deref(row.Destination))
		set(6, util.Deref(row.FlightDate))
		set(7, row.FeeName)
		set(8, row.SettlementName)
		if row.UnitPrice != nil {
			set(9, row.UnitPrice.InexactFloat64())
			cell, _ := excelize.CoordinatesToCellName(9, r)
			_ = f.SetCellStyle(sheet, cell, cell, priceStyle)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return eris.Wrapf(err, "create output dir for %s", outputPath)
	}
	if err := f.SaveAs(outputPath); err != nil {
		return eris.Wrapf(err, "save %s", outputPath)
	}
	return nil
}
