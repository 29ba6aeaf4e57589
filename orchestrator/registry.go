// Package orchestrator assembles the pipeline and exposes the single
// Answer entry point: decompose, dispatch, synthesize.
package orchestrator

import (
	"fmt"

	"github.com/gridmind/gridmind/cache"
	"github.com/gridmind/gridmind/core"
	"github.com/gridmind/gridmind/freshness"
	"github.com/gridmind/gridmind/llm"
	"github.com/gridmind/gridmind/location"
	"github.com/gridmind/gridmind/resilience"
	"github.com/gridmind/gridmind/router"
	"github.com/gridmind/gridmind/tools"
)

// ServiceRegistry owns every shared component for the process lifetime.
// It is constructed once at startup and passed by reference; nothing in
// the pipeline reaches for package-level state.
type ServiceRegistry struct {
	Config    *core.Config
	Logger    core.Logger
	Cache     *cache.Cache
	Breakers  *resilience.BreakerRegistry
	Retry     *resilience.Executor
	Index     core.DocumentIndex
	Freshness *freshness.Checker
	AI        core.AIClient
	Extractor *location.Extractor
	Geocoder  *location.Geocoder
	Router    *router.Router

	redisIndex *freshness.RedisIndex
}

// NewServiceRegistry wires the full pipeline from configuration. The
// document index is Redis when a URL is configured, in-memory otherwise.
func NewServiceRegistry(cfg *core.Config, logger core.Logger) (*ServiceRegistry, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	reg := &ServiceRegistry{
		Config: cfg,
		Logger: logger,
	}

	componentLogger := func(name string) core.Logger {
		if cl, ok := logger.(core.ComponentAwareLogger); ok {
			return cl.WithComponent(name)
		}
		return logger
	}

	reg.Cache = cache.New(componentLogger("cache"))
	reg.Breakers = resilience.NewBreakerRegistry(
		cfg.Resilience.Breaker,
		componentLogger("resilience"),
		resilience.NewOTelMetricsCollector(),
	)
	reg.Retry = resilience.NewExecutor(
		resilience.PolicyFromSettings(cfg.Resilience.Retry),
		componentLogger("resilience"),
	)

	if cfg.Redis.URL != "" {
		redisIndex, err := freshness.NewRedisIndex(cfg.Redis.URL, cfg.Redis.Namespace, componentLogger("index"))
		if err != nil {
			return nil, fmt.Errorf("creating Redis index: %w", err)
		}
		reg.Index = redisIndex
		reg.redisIndex = redisIndex
	} else {
		logger.Info("No Redis URL configured, using in-memory index", map[string]interface{}{
			"operation": "startup",
		})
		reg.Index = freshness.NewMemoryIndex()
	}
	reg.Freshness = freshness.NewChecker(
		freshness.NewOracle(reg.Index, componentLogger("freshness")),
		cfg.Freshness,
	)

	aiClient, err := llm.NewClient(cfg.AI, componentLogger("llm"))
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("creating AI client: %w", err)
	}
	reg.AI = aiClient

	reg.Extractor = location.NewExtractor(reg.AI, componentLogger("location"))
	reg.Geocoder = location.NewGeocoder(reg.Cache, cfg.Cache.GeocodeTTL, componentLogger("location"))

	deps := &tools.Deps{
		Config:    cfg,
		Cache:     reg.Cache,
		Breakers:  reg.Breakers,
		Retry:     reg.Retry,
		Freshness: reg.Freshness,
		Index:     reg.Index,
		Extractor: reg.Extractor,
		Geocoder:  reg.Geocoder,
		Logger:    componentLogger("tools"),
	}

	toolSet := []router.Tool{
		tools.NewTransportationTool(deps, tools.NewStationClient(cfg.APIs)),
		tools.NewUtilityTool(deps, tools.NewRateClient(cfg.APIs)),
		tools.NewSolarTool(deps, tools.NewSolarClient(cfg.APIs)),
		tools.NewBuildingsTool(deps, tools.NewBuildingsClient(cfg.APIs)),
		tools.NewOptimizationTool(deps, tools.NewOptimizerClient(cfg.APIs)),
	}
	reg.Router = router.New(reg.AI, toolSet, componentLogger("router"))

	logger.Info("Service registry initialized", map[string]interface{}{
		"operation": "startup",
		"tools":     len(toolSet),
		"redis":     cfg.Redis.URL != "",
	})
	return reg, nil
}

// Close releases held connections.
func (r *ServiceRegistry) Close() error {
	if r.redisIndex != nil {
		return r.redisIndex.Close()
	}
	return nil
}
