package pipeline

import (
	"fuelbill/internal"
)

// RoutePolicy decides which routes of an airline are billed.
type RoutePolicy struct {
	MajorAirports map[string][]string
	AllowedRoutes map[string][]string
}

// Eligible applies one tier per airline: a non-empty major airport set
// keeps routes whose endpoints are both in it, otherwise an allow-list
// keeps the listed "ORIGIN-DEST" routes, otherwise everything is kept.
// Rows missing the airline or an endpoint are always kept.
func (p RoutePolicy) Eligible(row internal.CanonicalRow) bool {
	if row.AirlineCode == nil || row.Origin == nil || row.Destination == nil {
		return true
	}
	airline, origin, destination := *row.AirlineCode, *row.Origin, *row.Destination

	if airports := p.MajorAirports[airline]; len(airports) > 0 {
		return contains(airports, origin) && contains(airports, destination)
	}
	if allowed, ok := p.AllowedRoutes[airline]; ok {
		return contains(allowed, origin+"-"+destination)
	}
	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
