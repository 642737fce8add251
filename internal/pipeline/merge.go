package pipeline

import (
	"fuelbill/internal"
	"fuelbill/internal/util"
)

// MergeItineraries fuses adjacent legs of one connecting flight. Two rows
// merge when they carry the same flight number text and the first leg ends
// where the second starts. Pairs are taken greedily from the top and a row
// joins at most one pair, so three leg chains only lose their first stop.
// Rows are returned unchanged when origin or destination is unresolved.
func MergeItineraries(rows []internal.SourceRow, columns internal.ColumnMap) ([]internal.SourceRow, int) {
	if !columns.Has(internal.FieldOrigin) || !columns.Has(internal.FieldDestination) {
		return rows, 0
	}

	out := make([]internal.SourceRow, 0, len(rows))
	merged := 0
	for i := 0; i < len(rows); i++ {
		if i+1 < len(rows) {
			if row, ok := mergePair(rows[i], rows[i+1], columns); ok {
				out = append(out, row)
				merged++
				i++
				continue
			}
		}
		out = append(out, rows[i])
	}
	return out, merged
}

func mergePair(first, second internal.SourceRow, columns internal.ColumnMap) (internal.SourceRow, bool) {
	if first.Leg != nil || second.Leg != nil {
		return internal.SourceRow{}, false
	}
	flight1, _ := first.Get(columns, internal.FieldFlightNo)
	flight2, _ := second.Get(columns, internal.FieldFlightNo)
	if flight1.String() == "" || flight1.String() != flight2.String() {
		return internal.SourceRow{}, false
	}

	origin, _ := first.Get(columns, internal.FieldOrigin)
	via, _ := first.Get(columns, internal.FieldDestination)
	next, _ := second.Get(columns, internal.FieldOrigin)
	destination, _ := second.Get(columns, internal.FieldDestination)
	if via.String() == "" || via.String() != next.String() {
		return internal.SourceRow{}, false
	}

	fare1, _ := first.Get(columns, internal.FieldFuelPrice)
	fare2, _ := second.Get(columns, internal.FieldFuelPrice)
	a, ok := ParseFareCell(fare1)
	if !ok {
		return internal.SourceRow{}, false
	}
	b, ok := ParseFareCell(fare2)
	if !ok {
		return internal.SourceRow{}, false
	}

	return internal.SourceRow{
		RowNumber: first.RowNumber,
		Cells:     first.Cells,
		Leg: &internal.MergedLeg{
			Origin:      origin,
			Destination: destination,
			Fare:        util.Round2(a.Add(b)),
			Rows:        [2]int{first.RowNumber, second.RowNumber},
		},
	}, true
}
