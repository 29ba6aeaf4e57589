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

const stationFetchLimit = 20

// TransportationTool answers charging station location questions. Fresh
// indexed data is served directly; stale or absent data triggers an API
// fetch that re-indexes on success and falls back to whatever the index
// still holds on failure.
type TransportationTool struct {
	deps *Deps
	api  StationAPI
}

// NewTransportationTool wires the tool for the router.
func NewTransportationTool(deps *Deps, api StationAPI) router.Tool {
	t := &TransportationTool{deps: deps, api: api}
	return router.Tool{
		Name:        router.ToolTransportation,
		Description: "Finding EV charging stations, locations, charger types",
		Handler:     t.Handle,
	}
}

// Handle resolves the question's location and produces a station answer.
func (t *TransportationTool) Handle(ctx context.Context, question string) (*router.ToolResult, error) {
	loc := t.deps.Extractor.Extract(ctx, question)
	if loc == nil {
		return noData("no location found in the question; please mention a zip code, city, or state"), nil
	}

	var (
		filterKey, filterValue string
		fetch                  func(ctx context.Context) (interface{}, error)
	)
	switch {
	case loc.ZipCode != "":
		filterKey, filterValue = "zip", loc.ZipCode
		fetch = func(ctx context.Context) (interface{}, error) {
			return t.api.ByZip(ctx, loc.ZipCode, stationFetchLimit)
		}
	case loc.State != "":
		filterKey, filterValue = "state", loc.State
		fetch = func(ctx context.Context) (interface{}, error) {
			return t.api.ByState(ctx, loc.State, stationFetchLimit)
		}
	default:
		return noData("the detected location has neither a zip code nor a state"), nil
	}

	fresh, indexedAt := t.deps.Freshness.StationsByZip(ctx, filterValue)
	if filterKey == "state" {
		fresh, indexedAt = t.deps.Freshness.StationsByState(ctx, filterValue)
	}

	if fresh {
		records, err := t.deps.Index.Query(ctx, freshness.DomainStations, filterKey, filterValue, 10)
		if err == nil && len(records) > 0 {
			return &router.ToolResult{
				Text:    recordsText(records),
				Sources: sourcesFromRecords(records),
			}, nil
		}
	}

	key := cache.Key("stations_by_"+filterKey, []interface{}{filterValue}, nil)
	v, err := t.deps.guarded(ctx, "stations", key, t.deps.Config.Cache.StationTTL, fetch)
	if err != nil {
		// Stale indexed data beats no data.
		records, qerr := t.deps.Index.Query(ctx, freshness.DomainStations, filterKey, filterValue, 10)
		if qerr == nil && len(records) > 0 {
			return &router.ToolResult{
				Text:    recordsText(records) + staleNote(indexedAt),
				Sources: sourcesFromRecords(records),
			}, nil
		}
		return degraded("stations", err), nil
	}

	stations := v.([]Station)
	if len(stations) == 0 {
		return noData(fmt.Sprintf("no charging stations found for %s %s", filterKey, filterValue)), nil
	}

	records := stationRecords(stations, loc.ZipCode, loc.State)
	if err := t.deps.Index.Upsert(ctx, freshness.DomainStations, records); err != nil {
		t.deps.Logger.Warn("Station re-index failed", map[string]interface{}{
			"operation": "transportation_tool",
			"filter":    filterKey + "=" + filterValue,
			"error":     err.Error(),
		})
	}

	return &router.ToolResult{
		Text:    formatStations(stations),
		Sources: sourcesFromRecords(records),
	}, nil
}

func formatStation(s Station) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s, %s %s %s", s.StationName, s.StreetAddress, s.City, s.State, s.Zip)
	if s.EVDCFastNum > 0 {
		fmt.Fprintf(&b, " (%d DC fast)", s.EVDCFastNum)
	}
	if s.EVLevel2Num > 0 {
		fmt.Fprintf(&b, " (%d Level 2)", s.EVLevel2Num)
	}
	if len(s.EVConnectorTypes) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(s.EVConnectorTypes, ", "))
	}
	return b.String()
}

func formatStations(stations []Station) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d charging stations:\n", len(stations))
	for i, s := range stations {
		if i >= 10 {
			fmt.Fprintf(&b, "...and %d more.\n", len(stations)-i)
			break
		}
		b.WriteString("- " + formatStation(s) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func stationRecords(stations []Station, zip, state string) []core.IndexRecord {
	records := make([]core.IndexRecord, 0, len(stations))
	for _, s := range stations {
		md := map[string]interface{}{
			"station_name": s.StationName,
			"city":         s.City,
		}
		if zip != "" {
			md["zip"] = zip
		} else if s.Zip != "" {
			md["zip"] = s.Zip
		}
		if state != "" {
			md["state"] = state
		} else if s.State != "" {
			md["state"] = s.State
		}
		records = append(records, core.IndexRecord{
			Text:     formatStation(s),
			Metadata: md,
		})
	}
	return records
}

func recordsText(records []core.IndexRecord) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
