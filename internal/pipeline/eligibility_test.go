package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fuelbill/internal"
	"fuelbill/internal/util"
)

func canonical(airline, origin, destination string) internal.CanonicalRow {
	row := internal.CanonicalRow{}
	if airline != "" {
		row.AirlineCode = util.StringPtr(airline)
	}
	if origin != "" {
		row.Origin = util.StringPtr(origin)
	}
	if destination != "" {
		row.Destination = util.StringPtr(destination)
	}
	return row
}

func TestRoutePolicyMajorAirportsWin(t *testing.T) {
	policy := RoutePolicy{
		MajorAirports: map[string][]string{"YG": {"CGO", "BUD"}},
		AllowedRoutes: map[string][]string{"YG": {"CGO-NVI"}},
	}
	assert.True(t, policy.Eligible(canonical("YG", "CGO", "BUD")))
	assert.False(t, policy.Eligible(canonical("YG", "CGO", "NVI")))
	assert.False(t, policy.Eligible(canonical("YG", "NVI", "BUD")))
}

func TestRoutePolicyAllowList(t *testing.T) {
	policy := RoutePolicy{
		MajorAirports: map[string][]string{"YG": {}},
		AllowedRoutes: map[string][]string{"YG": {"CGO-BUD"}, "CK": {}},
	}
	assert.True(t, policy.Eligible(canonical("YG", "CGO", "BUD")))
	assert.False(t, policy.Eligible(canonical("YG", "BUD", "CGO")))
	assert.False(t, policy.Eligible(canonical("CK", "PVG", "ORD")))
}

func TestRoutePolicyKeepsUnconfiguredAndIncomplete(t *testing.T) {
	policy := RoutePolicy{MajorAirports: map[string][]string{"YG": {"CGO"}}}
	assert.True(t, policy.Eligible(canonical("CA", "PEK", "FRA")))
	assert.True(t, policy.Eligible(canonical("YG", "NVI", "")))
	assert.True(t, policy.Eligible(canonical("", "NVI", "TBS")))
}
