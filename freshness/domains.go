package freshness

import (
	"context"
	"time"

	"github.com/gridmind/gridmind/core"
)

// Domain names used in the document index. Tools and the oracle must
// agree on these exactly.
const (
	DomainStations  = "charging_stations"
	DomainUtility   = "utility_rates"
	DomainBuildings = "building_measures"
)

// Checker binds the oracle to the configured per-domain TTLs so tools can
// ask domain-level questions without carrying TTL constants around.
type Checker struct {
	oracle *Oracle
	ttls   core.FreshnessConfig
}

// NewChecker wraps oracle with the configured TTLs.
func NewChecker(oracle *Oracle, ttls core.FreshnessConfig) *Checker {
	return &Checker{oracle: oracle, ttls: ttls}
}

// StationsByZip reports whether indexed charging stations for a ZIP code
// are fresh.
func (c *Checker) StationsByZip(ctx context.Context, zip string) (bool, *time.Time) {
	return c.oracle.Check(ctx, DomainStations, "zip", zip, c.ttls.StationTTL)
}

// StationsByState reports whether indexed charging stations for a state
// are fresh.
func (c *Checker) StationsByState(ctx context.Context, state string) (bool, *time.Time) {
	return c.oracle.Check(ctx, DomainStations, "state", state, c.ttls.StationTTL)
}

// UtilityRates reports whether indexed utility rates for a ZIP code are
// fresh.
func (c *Checker) UtilityRates(ctx context.Context, zip string) (bool, *time.Time) {
	return c.oracle.Check(ctx, DomainUtility, "zip", zip, c.ttls.UtilityTTL)
}

// BuildingMeasures reports whether the indexed building-measure library
// for a category is fresh.
func (c *Checker) BuildingMeasures(ctx context.Context, category string) (bool, *time.Time) {
	return c.oracle.Check(ctx, DomainBuildings, "category", category, c.ttls.BuildingsTTL)
}
