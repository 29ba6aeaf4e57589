package tools

import (
	"context"
	"strings"

	"github.com/gridmind/gridmind/cache"
	"github.com/gridmind/gridmind/core"
	"github.com/gridmind/gridmind/freshness"
	"github.com/gridmind/gridmind/router"
)

const measureFetchLimit = 10

// BuildingsTool answers building energy code and efficiency measure
// questions from the component library. The measure library changes very
// rarely, so its freshness TTL is the longest of the three indexed
// domains.
type BuildingsTool struct {
	deps *Deps
	api  BuildingsAPI
}

// NewBuildingsTool wires the tool for the router.
func NewBuildingsTool(deps *Deps, api BuildingsAPI) router.Tool {
	t := &BuildingsTool{deps: deps, api: api}
	return router.Tool{
		Name:        router.ToolBuildings,
		Description: "Building energy codes, efficiency standards, code compliance, building performance, energy efficiency measures to reduce bills",
		Handler:     t.Handle,
	}
}

// Handle searches the measure library for the question's topic.
func (t *BuildingsTool) Handle(ctx context.Context, question string) (*router.ToolResult, error) {
	category := measureCategory(question)

	fresh, indexedAt := t.deps.Freshness.BuildingMeasures(ctx, category)
	if fresh {
		records, err := t.deps.Index.Query(ctx, freshness.DomainBuildings, "category", category, measureFetchLimit)
		if err == nil && len(records) > 0 {
			return &router.ToolResult{
				Text:    recordsText(records),
				Sources: sourcesFromRecords(records),
			}, nil
		}
	}

	key := cache.Key("building_measures", []interface{}{category}, nil)
	v, err := t.deps.guarded(ctx, "buildings", key, t.deps.Config.Cache.RateTTL, func(ctx context.Context) (interface{}, error) {
		return t.api.SearchMeasures(ctx, category, measureFetchLimit)
	})
	if err != nil {
		records, qerr := t.deps.Index.Query(ctx, freshness.DomainBuildings, "category", category, measureFetchLimit)
		if qerr == nil && len(records) > 0 {
			return &router.ToolResult{
				Text:    recordsText(records) + staleNote(indexedAt),
				Sources: sourcesFromRecords(records),
			}, nil
		}
		return degraded("buildings", err), nil
	}

	measures := v.([]Measure)
	if len(measures) == 0 {
		return noData("no efficiency measures found for " + category), nil
	}

	records := measureRecords(measures, category)
	if err := t.deps.Index.Upsert(ctx, freshness.DomainBuildings, records); err != nil {
		t.deps.Logger.Warn("Measure re-index failed", map[string]interface{}{
			"operation": "buildings_tool",
			"category":  category,
			"error":     err.Error(),
		})
	}

	return &router.ToolResult{
		Text:    formatMeasures(measures),
		Sources: sourcesFromRecords(records),
	}, nil
}

// measureCategory buckets the question into a library search term.
func measureCategory(question string) string {
	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "hvac") || strings.Contains(lower, "heating") || strings.Contains(lower, "cooling"):
		return "hvac"
	case strings.Contains(lower, "lighting"):
		return "lighting"
	case strings.Contains(lower, "insulation") || strings.Contains(lower, "envelope"):
		return "envelope"
	case strings.Contains(lower, "water"):
		return "water heating"
	default:
		return "energy efficiency"
	}
}

func formatMeasures(measures []Measure) string {
	var b strings.Builder
	b.WriteString("Building energy efficiency measures:\n")
	for _, m := range measures {
		b.WriteString("- " + m.Name)
		if m.Description != "" {
			b.WriteString(": " + m.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func measureRecords(measures []Measure, category string) []core.IndexRecord {
	records := make([]core.IndexRecord, 0, len(measures))
	for _, m := range measures {
		text := m.Name
		if m.Description != "" {
			text += ": " + m.Description
		}
		records = append(records, core.IndexRecord{
			Text: text,
			Metadata: map[string]interface{}{
				"category": category,
				"name":     m.Name,
			},
		})
	}
	return records
}
