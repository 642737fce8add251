package pipeline

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"fuelbill/internal"
)

// HeaderScanRows is how many leading rows are searched for the header.
const HeaderScanRows = 15

var (
	headerKeywords = []string{"航班日期", "航段", "航班号", "燃油差价费", "燃油消耗"}
	// analysis accepts the looser labels seen in hand-made bills
	analysisKeywords = []string{"航班日期", "日期", "航段", "航线", "航班号", "燃油差价费", "燃油消耗"}
)

var (
	headerScorer   = newKeywordScorer(headerKeywords, 3)
	analysisScorer = newKeywordScorer(analysisKeywords, 2)
)

type keywordScorer struct {
	matcher  *ahocorasick.Matcher
	minScore int
}

func newKeywordScorer(keywords []string, minScore int) *keywordScorer {
	return &keywordScorer{matcher: ahocorasick.NewStringMatcher(keywords), minScore: minScore}
}

// score counts the distinct keywords present in the row.
func (s *keywordScorer) score(row []internal.Cell) int {
	text := rowText(row)
	if text == "" {
		return 0
	}
	seen := map[int]struct{}{}
	for _, idx := range s.matcher.MatchThreadSafe([]byte(text)) {
		seen[idx] = struct{}{}
	}
	return len(seen)
}

// locate returns the first row with the highest score among the first limit
// rows. Row 0 is returned when no row reaches the minimum score.
func (s *keywordScorer) locate(grid internal.Grid, limit int) (int, int) {
	best, bestScore := 0, 0
	for i := 0; i < limit && i < len(grid); i++ {
		sc := s.score(grid[i])
		if sc >= s.minScore && sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return best, bestScore
}

// LocateHeader finds the header row of a bill.
func LocateHeader(grid internal.Grid) int {
	row, _ := headerScorer.locate(grid, HeaderScanRows)
	return row
}

func rowText(row []internal.Cell) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if s := c.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// HeaderTexts returns the trimmed text of every cell in the header row,
// padded to the grid width.
func HeaderTexts(grid internal.Grid, headerRow int) []string {
	width := grid.Width()
	out := make([]string, width)
	for c := 0; c < width; c++ {
		out[c] = grid.Cell(headerRow, c).String()
	}
	return out
}
