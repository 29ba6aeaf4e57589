package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridmind/gridmind/cache"
	"github.com/gridmind/gridmind/core"
	"github.com/gridmind/gridmind/freshness"
	"github.com/gridmind/gridmind/location"
	"github.com/gridmind/gridmind/resilience"
	"github.com/gridmind/gridmind/router"
)

// Deps is the shared infrastructure every tool builds on. The registry
// wires one Deps at startup and hands it to each tool constructor.
type Deps struct {
	Config    *core.Config
	Cache     *cache.Cache
	Breakers  *resilience.BreakerRegistry
	Retry     *resilience.Executor
	Freshness *freshness.Checker
	Index     core.DocumentIndex
	Extractor *location.Extractor
	Geocoder  *location.Geocoder
	Logger    core.Logger
}

// guarded runs fetch through the full composition: cache in front,
// circuit breaker around the retry loop, retries around the upstream
// call. The breaker sees one failure per exhausted retry cycle, not one
// per attempt, so a flapping dependency trips it at the configured pace.
func (d *Deps) guarded(ctx context.Context, breakerName, cacheKey string, ttl time.Duration, fetch func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return d.Cache.GetOrFetch(ctx, cacheKey, ttl, func(ctx context.Context) (interface{}, error) {
		var out interface{}
		breaker := d.Breakers.Get(breakerName)
		err := breaker.Call(ctx, func(ctx context.Context) error {
			return d.Retry.Execute(ctx, breakerName, func(ctx context.Context) error {
				v, err := fetch(ctx)
				if err != nil {
					return err
				}
				out = v
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// noData builds the degraded response a tool returns instead of an
// error when it has nothing to say.
func noData(reason string) *router.ToolResult {
	return &router.ToolResult{Text: "No data available: " + reason}
}

// degraded annotates a response produced after an upstream failure.
func degraded(breakerName string, err error) *router.ToolResult {
	if errors.Is(err, core.ErrCircuitOpen) {
		return noData(fmt.Sprintf("the %s service is temporarily unavailable (circuit open), please retry shortly", breakerName))
	}
	return noData(fmt.Sprintf("the %s service did not respond (%v)", breakerName, err))
}

// sourcesFromRecords converts indexed records to answer sources.
func sourcesFromRecords(records []core.IndexRecord) []router.Source {
	sources := make([]router.Source, 0, len(records))
	for _, r := range records {
		sources = append(sources, router.Source{Text: r.Text, Metadata: r.Metadata})
	}
	return sources
}

// staleNote annotates answers served from an out-of-date index because
// the refresh fetch failed.
func staleNote(indexedAt *time.Time) string {
	if indexedAt == nil {
		return ""
	}
	return fmt.Sprintf("\n(Note: served from data indexed %s; a refresh is pending.)",
		indexedAt.Format("2006-01-02"))
}
