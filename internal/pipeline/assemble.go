package pipeline

import (
	"fuelbill/internal"
	"fuelbill/internal/config"
)

// AssembleRow builds the settlement row for a canonical row.
func AssembleRow(row internal.CanonicalRow, contractNo *string, rules *config.Rules) internal.OutputRow {
	settlement := rules.OutputFields.SettlementName
	if row.AirlineCode != nil {
		settlement = rules.SettlementName(*row.AirlineCode)
	}
	return internal.OutputRow{
		BusinessType:   rules.OutputFields.BusinessType,
		Airline:        row.AirlineCode,
		ContractNo:     contractNo,
		Origin:         row.Origin,
		Destination:    row.Destination,
		FlightDate:     row.FlightDate,
		FeeName:        rules.OutputFields.FeeName,
		SettlementName: settlement,
		UnitPrice:      row.FuelPrice,
	}
}
