package internal

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CellKind string

const (
	CellEmpty  CellKind = "empty"
	CellText   CellKind = "text"
	CellNumber CellKind = "number"
	CellDate   CellKind = "date"
)

// Cell is one typed spreadsheet value. Text holds the value as displayed
// by the source file for every non-empty kind.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v, Text: strconv.FormatFloat(v, 'f', -1, 64)}
}

func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Time: t, Text: t.Format("2006-01-02")}
}

func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || c.Kind == "" || (c.Kind == CellText && strings.TrimSpace(c.Text) == "")
}

func (c Cell) String() string {
	if c.IsEmpty() {
		return ""
	}
	return strings.TrimSpace(c.Text)
}

// Grid is the first worksheet of an input file. Rows may have different lengths.
type Grid [][]Cell

func (g Grid) Cell(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{Kind: CellEmpty}
	}
	return g[row][col]
}

func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

type Field string

const (
	FieldFlightDate  Field = "flight_date"
	FieldRoute       Field = "route"
	FieldFlightNo    Field = "flight_no"
	FieldFuelPrice   Field = "fuel_price"
	FieldOrigin      Field = "origin"
	FieldDestination Field = "destination"
)

// FieldPriority is the order in which fields claim columns.
var FieldPriority = []Field{FieldFlightDate, FieldRoute, FieldFlightNo, FieldFuelPrice, FieldOrigin, FieldDestination}

// RequiredFields must always have an entry in the column mappings.
var RequiredFields = []Field{FieldFlightDate, FieldRoute, FieldFlightNo, FieldFuelPrice}

// ColumnMap maps a canonical field to a zero-based column index.
type ColumnMap map[Field]int

func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Claimed reports whether some field already owns the column.
func (m ColumnMap) Claimed(col int) bool {
	for _, c := range m {
		if c == col {
			return true
		}
	}
	return false
}

// SourceRow is a data row of the grid. Leg is set when the row is the
// composite of two merged itinerary legs.
type SourceRow struct {
	RowNumber int
	Cells     []Cell
	Leg       *MergedLeg
}

type MergedLeg struct {
	Origin      Cell
	Destination Cell
	Fare        decimal.Decimal
	Rows        [2]int
}

func (r SourceRow) Get(m ColumnMap, f Field) (Cell, bool) {
	col, ok := m[f]
	if !ok {
		return Cell{Kind: CellEmpty}, false
	}
	if col < 0 || col >= len(r.Cells) {
		return Cell{Kind: CellEmpty}, true
	}
	return r.Cells[col], true
}

type CanonicalRow struct {
	RowNumber   int
	FlightDate  *string
	AirlineCode *string
	Origin      *string
	Destination *string
	FuelPrice   *decimal.Decimal
}

// Enrichable reports whether the row carries everything a contract lookup needs.
func (r CanonicalRow) Enrichable() bool {
	return r.AirlineCode != nil && r.Origin != nil && r.Destination != nil && r.FlightDate != nil
}

const (
	ColBusinessType   = "*空运业务单"
	ColAirline        = "*航司"
	ColContractNo     = "合同号"
	ColOrigin         = "*始发港"
	ColDestination    = "*目的港"
	ColFlightDate     = "航班日期"
	ColFeeName        = "*费用名称"
	ColSettlementName = "*结算对象名称"
	ColUnitPrice      = "*单价"
)

// OutputHeaders is the literal header row expected by the settlement system.
var OutputHeaders = []string{
	ColBusinessType, ColAirline, ColContractNo, ColOrigin, ColDestination,
	ColFlightDate, ColFeeName, ColSettlementName, ColUnitPrice,
}

type OutputRow struct {
	BusinessType   string
	Airline        *string
	ContractNo     *string
	Origin         *string
	Destination    *string
	FlightDate     *string
	FeeName        string
	SettlementName string
	UnitPrice      *decimal.Decimal
}

type RunStatus string

const (
	RunOK     RunStatus = "ok"
	RunFailed RunStatus = "failed"
)

type RunRecord struct {
	ID          string
	InputPath   string
	OutputPath  string
	InputHash   string
	HeaderRow   int
	ColumnMap   map[string]int
	Counts      map[string]int
	Status      RunStatus
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
	DurationsMs map[string]float64
}
