package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gridmind/gridmind/cache"
	"github.com/gridmind/gridmind/router"
)

// defaultSystemCapacityKW is assumed when the question names no size.
const defaultSystemCapacityKW = 4.0

var capacityPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*kw\b`)

// SolarTool estimates solar production for a location and system size.
// Production estimates are deterministic for a given point, so this tool
// uses cache+breaker+retry without the freshness index.
type SolarTool struct {
	deps *Deps
	api  SolarAPI
}

// NewSolarTool wires the tool for the router.
func NewSolarTool(deps *Deps, api SolarAPI) router.Tool {
	t := &SolarTool{deps: deps, api: api}
	return router.Tool{
		Name:        router.ToolSolar,
		Description: "Solar energy production estimates (kWh) for location/system size",
		Handler:     t.Handle,
	}
}

// Handle geocodes the question's location and estimates production.
func (t *SolarTool) Handle(ctx context.Context, question string) (*router.ToolResult, error) {
	loc := t.deps.Extractor.Extract(ctx, question)
	if loc == nil || loc.ZipCode == "" {
		if loc != nil && loc.City != "" && loc.State != "" {
			zip, err := t.deps.Geocoder.CityStateToZip(ctx, loc.City, loc.State)
			if err == nil {
				loc.ZipCode = zip
			}
		}
		if loc == nil || loc.ZipCode == "" {
			return noData("solar estimates require a zip code or city; please mention one"), nil
		}
	}

	coords, err := t.deps.Geocoder.ZipToCoordinates(ctx, loc.ZipCode)
	if err != nil {
		return degraded("geocoding", err), nil
	}

	capacityKW := systemCapacity(question)
	key := cache.Key("solar_estimate", []interface{}{loc.ZipCode}, map[string]interface{}{
		"capacity_kw": capacityKW,
	})
	v, err := t.deps.guarded(ctx, "solar", key, t.deps.Config.Cache.SolarTTL, func(ctx context.Context) (interface{}, error) {
		return t.api.Estimate(ctx, coords.Lat, coords.Lon, capacityKW)
	})
	if err != nil {
		return degraded("solar", err), nil
	}

	est := v.(*SolarEstimate)
	text := fmt.Sprintf(
		"A %.1f kW system near zip %s produces about %.0f kWh per year (%.0f kWh/month average, %.1f kWh/m²/day solar resource).",
		est.SystemCapacityKW, loc.ZipCode, est.ACAnnualKWh, est.ACAnnualKWh/12, est.SolradAnnual)

	return &router.ToolResult{
		Text: text,
		Sources: []router.Source{{
			Text: text,
			Metadata: map[string]interface{}{
				"zip":         loc.ZipCode,
				"capacity_kw": capacityKW,
			},
		}},
	}, nil
}

// systemCapacity reads an explicit "N kW" from the question, defaulting
// to a typical residential array.
func systemCapacity(question string) float64 {
	if m := capacityPattern.FindStringSubmatch(question); m != nil {
		if kw, err := strconv.ParseFloat(m[1], 64); err == nil && kw > 0 {
			return kw
		}
	}
	return defaultSystemCapacityKW
}
