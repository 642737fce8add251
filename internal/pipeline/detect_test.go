package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fuelbill/internal"
)

func textGrid(rows ...[]string) internal.Grid {
	grid := make(internal.Grid, len(rows))
	for r, row := range rows {
		cells := make([]internal.Cell, len(row))
		for c, v := range row {
			cells[c] = internal.TextCell(v)
		}
		grid[r] = cells
	}
	return grid
}

func TestLocateHeaderFindsBestRow(t *testing.T) {
	grid := textGrid(
		[]string{"XX航空燃油差价费账单"},
		[]string{"账期", "2024-03"},
		[]string{"序号", "航班日期", "航段", "航班号", "燃油差价费"},
		[]string{"1", "2024-03-05", "郑州-布达佩斯", "YG9061", "150"},
	)
	assert.Equal(t, 2, LocateHeader(grid))
}

func TestLocateHeaderTieKeepsFirst(t *testing.T) {
	grid := textGrid(
		[]string{"title"},
		[]string{"航班日期", "航段", "航班号"},
		[]string{"航班日期", "航段", "燃油消耗"},
	)
	assert.Equal(t, 1, LocateHeader(grid))
}

func TestLocateHeaderFallsBackToFirstRow(t *testing.T) {
	grid := textGrid(
		[]string{"title"},
		[]string{"航班日期", "航段"},
		[]string{"2024-03-05", "郑州-布达佩斯"},
	)
	assert.Equal(t, 0, LocateHeader(grid))
}

func TestLocateHeaderOnlyScansLeadingRows(t *testing.T) {
	rows := make([][]string, 0, 20)
	for i := 0; i < HeaderScanRows; i++ {
		rows = append(rows, []string{"note"})
	}
	rows = append(rows, []string{"航班日期", "航段", "航班号", "燃油差价费"})
	assert.Equal(t, 0, LocateHeader(textGrid(rows...)))
}

func TestKeywordCountedOnce(t *testing.T) {
	row := textGrid([]string{"航段", "航段", "航段 航段"})[0]
	assert.Equal(t, 1, headerScorer.score(row))
}
