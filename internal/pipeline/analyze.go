package pipeline

import (
	"fmt"
	"strings"

	"fuelbill/internal"
	"fuelbill/internal/config"
	"fuelbill/internal/util"
)

const (
	previewRows     = 20
	previewCols     = 15
	previewCellRune = 20
)

type PreviewCell struct {
	Letter string
	Text   string
}

type PreviewRow struct {
	Number    int
	Cells     []PreviewCell
	Truncated bool
}

type HeaderColumn struct {
	Letter string
	Text   string
}

// Analysis describes the layout of a bill so an operator can write
// overrides for files the automatic path gets wrong.
type Analysis struct {
	Preview        []PreviewRow
	HeaderRow      int
	HeaderScore    int
	HeaderDetected bool
	Headers        []HeaderColumn
	Suggested      map[internal.Field]string
}

// Analyze previews the top of the grid, guesses the header row with a
// looser keyword set than processing and suggests column letters.
func Analyze(grid internal.Grid) Analysis {
	a := Analysis{Suggested: map[internal.Field]string{}}

	limit := previewRows
	if len(grid) < limit {
		limit = len(grid)
	}
	for r := 0; r < limit; r++ {
		row := PreviewRow{Number: r + 1, Truncated: len(grid[r]) > previewCols}
		for c := 0; c < len(grid[r]) && c < previewCols; c++ {
			if text := grid[r][c].String(); text != "" {
				row.Cells = append(row.Cells, PreviewCell{Letter: util.IndexToColumnLetters(c), Text: util.Truncate(text, previewCellRune)})
			}
		}
		a.Preview = append(a.Preview, row)

		if score := analysisScorer.score(grid[r]); score > a.HeaderScore {
			a.HeaderRow, a.HeaderScore = r, score
		}
	}
	a.HeaderDetected = a.HeaderScore >= analysisScorer.minScore

	headers := HeaderTexts(grid, a.HeaderRow)
	for c, h := range headers {
		a.Headers = append(a.Headers, HeaderColumn{Letter: util.IndexToColumnLetters(c), Text: h})
	}

	mappings := config.DefaultRules().ColumnMappings
	for _, field := range internal.RequiredFields {
		if col, ok := firstContaining(headers, mappings[field]); ok {
			a.Suggested[field] = util.IndexToColumnLetters(col)
		}
	}
	return a
}

// Complete reports whether every required field got a suggestion.
func (a Analysis) Complete() bool {
	return len(a.Suggested) == len(internal.RequiredFields)
}

// Command renders the bill:process invocation matching the suggestion.
func (a Analysis) Command(binary, inputPath string) []string {
	parts := []string{
		fmt.Sprintf("%s bill:process --input %s", binary, quoteArg(inputPath)),
		fmt.Sprintf("--header-row %d", a.HeaderRow),
	}
	flags := []struct {
		field internal.Field
		flag  string
	}{
		{internal.FieldFlightDate, "--date-column"},
		{internal.FieldRoute, "--route-column"},
		{internal.FieldFlightNo, "--flight-column"},
		{internal.FieldFuelPrice, "--price-column"},
	}
	for _, f := range flags {
		if letter, ok := a.Suggested[f.field]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", f.flag, letter))
		}
	}
	return parts
}

func firstContaining(headers []string, keywords []string) (int, bool) {
	for col, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		for _, kw := range keywords {
			if kw != "" && strings.Contains(h, kw) {
				return col, true
			}
		}
	}
	return 0, false
}

func quoteArg(s string) string {
	if strings.ContainsAny(s, " \t'\"") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}
