package pipeline

import (
	"bytes"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/extrame/xls"
	"github.com/jhillyerd/enmime"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"fuelbill/internal"
	"fuelbill/internal/util"
)

var (
	ErrUnsupportedFormat       = eris.New("unsupported file format")
	ErrNoSpreadsheetAttachment = eris.New("no spreadsheet attachment")
)

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ParseGrid reads the first worksheet of content. ext selects the container
// format and must include the leading dot.
func ParseGrid(ext string, content []byte) (internal.Grid, error) {
	switch strings.ToLower(ext) {
	case ".xlsx":
		return parseXLSX(content)
	case ".xls":
		return parseXLS(content)
	case ".eml":
		grid, _, err := parseEML(content)
		return grid, err
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
}

func parseXLSX(content []byte) (internal.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, eris.Wrap(err, "open xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return internal.Grid{}, nil
	}
	sheet := sheets[0]

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "read sheet %s", sheet)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, eris.Wrapf(err, "read raw sheet %s", sheet)
	}

	grid := make(internal.Grid, len(formatted))
	for r, row := range formatted {
		cells := make([]internal.Cell, len(row))
		for c, text := range row {
			rawValue := text
			if r < len(raw) && c < len(raw[r]) {
				rawValue = raw[r][c]
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				cells[c] = internal.TextCell(text)
				continue
			}
			cells[c] = xlsxCell(f, sheet, axis, text, rawValue)
		}
		grid[r] = cells
	}
	return grid, nil
}

func xlsxCell(f *excelize.File, sheet, axis, text, raw string) internal.Cell {
	if strings.TrimSpace(text) == "" && strings.TrimSpace(raw) == "" {
		return internal.Cell{Kind: internal.CellEmpty}
	}

	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return internal.TextCell(text)
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool, excelize.CellTypeError:
		return internal.TextCell(text)
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
			return internal.DateCell(t)
		}
		return internal.TextCell(text)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return internal.TextCell(text)
	}
	if isDateStyled(f, sheet, axis) {
		if t, err := excelize.ExcelDateToTime(v, false); err == nil {
			return internal.DateCell(t)
		}
	}
	return internal.NumberCell(v)
}

func isDateStyled(f *excelize.File, sheet, axis string) bool {
	styleID, err := f.GetCellStyle(sheet, axis)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	return isBuiltInDateFormat(style.NumFmt)
}

func isBuiltInDateFormat(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) || (id >= 50 && id <= 58)
}

// isDateFormatCode looks for year or day tokens outside quoted literals and
// bracketed sections of a number format code.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	s := strings.ToLower(b.String())
	return strings.ContainsAny(s, "yd") || strings.Contains(s, "年") || strings.Contains(s, "日")
}

func parseXLS(content []byte) (internal.Grid, error) {
	if looksLikeHTML(content) {
		return parseHTMLTable(content)
	}
	if !bytes.HasPrefix(content, oleSignature) {
		return nil, eris.Wrap(ErrUnsupportedFormat, "xls content is neither a compound document nor an html table")
	}
	return parseBIFF(content)
}

func parseBIFF(content []byte) (grid internal.Grid, err error) {
	// the xls decoder panics on some malformed workbooks
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = eris.Errorf("decode xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, eris.Wrap(err, "open xls")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return internal.Grid{}, nil
	}

	grid = make(internal.Grid, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]internal.Cell, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells[j] = textualCell(row.Col(j))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// textualCell types a value that only exists as display text.
func textualCell(text string) internal.Cell {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return internal.Cell{Kind: internal.CellEmpty}
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return internal.DateCell(t)
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		cell := internal.NumberCell(v)
		cell.Text = trimmed
		return cell
	}
	return internal.TextCell(text)
}

func looksLikeHTML(content []byte) bool {
	head := content
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF"))
	head = bytes.TrimSpace(head)
	if len(head) == 0 || head[0] != '<' {
		return false
	}
	lower := bytes.ToLower(content)
	return bytes.Contains(lower, []byte("<table"))
}

func parseHTMLTable(content []byte) (internal.Grid, error) {
	doc, err := goquery.NewDocumentFromReader(decodeHTML(content))
	if err != nil {
		return nil, eris.Wrap(err, "parse html table")
	}

	var best *goquery.Selection
	bestRows := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if n := table.Find("tr").Length(); n > bestRows {
			best, bestRows = table, n
		}
	})
	if best == nil {
		return internal.Grid{}, nil
	}

	grid := internal.Grid{}
	best.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := []internal.Cell{}
		tr.ChildrenFiltered("th,td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, textualCell(util.NormalizeSpaces(td.Text())))
			if span, ok := td.Attr("colspan"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(span)); err == nil {
					for k := 1; k < n; k++ {
						cells = append(cells, internal.Cell{Kind: internal.CellEmpty})
					}
				}
			}
		})
		grid = append(grid, cells)
	})
	return grid, nil
}

// decodeHTML returns a UTF-8 reader. Exports that are not valid UTF-8 are
// decoded as GB18030, which covers GBK and GB2312.
func decodeHTML(content []byte) io.Reader {
	if utf8.Valid(content) {
		return bytes.NewReader(content)
	}
	return transform.NewReader(bytes.NewReader(content), simplifiedchinese.GB18030.NewDecoder())
}

// parseEML extracts the first spreadsheet attachment of a mail message.
func parseEML(content []byte) (internal.Grid, string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(content))
	if err != nil {
		return nil, "", eris.Wrap(err, "read eml")
	}

	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	for _, att := range parts {
		name := strings.TrimSpace(att.FileName)
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".xlsx" && ext != ".xls" {
			continue
		}
		grid, err := ParseGrid(ext, att.Content)
		if err != nil {
			return nil, name, eris.Wrapf(err, "attachment %s", name)
		}
		return grid, name, nil
	}
	return nil, "", ErrNoSpreadsheetAttachment
}
