package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/gridmind/gridmind/cache"
	"github.com/gridmind/gridmind/core"
	"github.com/gridmind/gridmind/freshness"
	"github.com/gridmind/gridmind/router"
)

// UtilityTool answers electricity rate and cost questions from the
// utility rate database, with the same fresh-index/fetch/stale-fallback
// flow as the station tool.
type UtilityTool struct {
	deps *Deps
	api  RateAPI
}

// NewUtilityTool wires the tool for the router.
func NewUtilityTool(deps *Deps, api RateAPI) router.Tool {
	t := &UtilityTool{deps: deps, api: api}
	return router.Tool{
		Name:        router.ToolUtility,
		Description: "Electricity rates, costs, time-of-use rates, utility info",
		Handler:     t.Handle,
	}
}

// Handle resolves a zip code and produces a rate answer. City/state
// locations are geocoded to a zip first because the rate database is
// keyed by address.
func (t *UtilityTool) Handle(ctx context.Context, question string) (*router.ToolResult, error) {
	zip, result := t.resolveZip(ctx, question)
	if result != nil {
		return result, nil
	}

	fresh, indexedAt := t.deps.Freshness.UtilityRates(ctx, zip)
	if fresh {
		records, err := t.deps.Index.Query(ctx, freshness.DomainUtility, "zip", zip, 5)
		if err == nil && len(records) > 0 {
			return &router.ToolResult{
				Text:    recordsText(records),
				Sources: sourcesFromRecords(records),
			}, nil
		}
	}

	key := cache.Key("utility_rates", []interface{}{zip}, nil)
	v, err := t.deps.guarded(ctx, "rates", key, t.deps.Config.Cache.RateTTL, func(ctx context.Context) (interface{}, error) {
		return t.api.ByZip(ctx, zip)
	})
	if err != nil {
		records, qerr := t.deps.Index.Query(ctx, freshness.DomainUtility, "zip", zip, 5)
		if qerr == nil && len(records) > 0 {
			return &router.ToolResult{
				Text:    recordsText(records) + staleNote(indexedAt),
				Sources: sourcesFromRecords(records),
			}, nil
		}
		return degraded("rates", err), nil
	}

	plans := v.([]RatePlan)
	if len(plans) == 0 {
		return noData("no utility rates found for zip " + zip), nil
	}

	records := ratePlanRecords(plans, zip)
	if err := t.deps.Index.Upsert(ctx, freshness.DomainUtility, records); err != nil {
		t.deps.Logger.Warn("Rate re-index failed", map[string]interface{}{
			"operation": "utility_tool",
			"zip":       zip,
			"error":     err.Error(),
		})
	}

	return &router.ToolResult{
		Text:    formatRatePlans(plans, zip),
		Sources: sourcesFromRecords(records),
	}, nil
}

// resolveZip returns (zip, nil) on success or ("", degradedResult) when
// no zip can be determined.
func (t *UtilityTool) resolveZip(ctx context.Context, question string) (string, *router.ToolResult) {
	loc := t.deps.Extractor.Extract(ctx, question)
	if loc == nil {
		return "", noData("no location found in the question; rates require a zip code or city")
	}
	if loc.ZipCode != "" {
		return loc.ZipCode, nil
	}
	if loc.City != "" && loc.State != "" {
		zip, err := t.deps.Geocoder.CityStateToZip(ctx, loc.City, loc.State)
		if err == nil {
			return zip, nil
		}
		t.deps.Logger.Warn("Geocoding failed for rate lookup", map[string]interface{}{
			"operation": "utility_tool",
			"city":      loc.City,
			"state":     loc.State,
			"error":     err.Error(),
		})
	}
	return "", noData("could not resolve the location to a zip code for rate lookup")
}

func formatRatePlans(plans []RatePlan, zip string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Utility rates for zip %s:\n", zip)
	for _, p := range plans {
		b.WriteString("- " + formatRatePlan(p) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatRatePlan(p RatePlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%s)", p.Utility, p.Name, p.Sector)
	if p.AvgResidentialRate > 0 {
		fmt.Fprintf(&b, ", avg residential $%.3f/kWh", p.AvgResidentialRate)
	}
	if p.AvgCommercialRate > 0 {
		fmt.Fprintf(&b, ", avg commercial $%.3f/kWh", p.AvgCommercialRate)
	}
	if p.HasTimeOfUse {
		b.WriteString(", time-of-use periods available")
	}
	return b.String()
}

func ratePlanRecords(plans []RatePlan, zip string) []core.IndexRecord {
	records := make([]core.IndexRecord, 0, len(plans))
	for _, p := range plans {
		records = append(records, core.IndexRecord{
			Text: formatRatePlan(p),
			Metadata: map[string]interface{}{
				"zip":     zip,
				"utility": p.Utility,
				"sector":  p.Sector,
			},
		})
	}
	return records
}
