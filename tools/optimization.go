package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gridmind/gridmind/router"
	"github.com/gridmind/gridmind/scenario"
)

// OptimizationTool runs the energy system optimizer. Residential
// questions fan out into a purchase-vs-lease financing comparison under
// the 2026 rules; commercial questions run one 30% ITC branch with the
// construction deadline note. Optimizer runs are minutes long and not
// cached; the branch executor keeps a failing variant from costing the
// other its result.
type OptimizationTool struct {
	deps     *Deps
	api      OptimizerAPI
	branches *scenario.BranchExecutor
}

// NewOptimizationTool wires the tool for the router.
func NewOptimizationTool(deps *Deps, api OptimizerAPI) router.Tool {
	t := &OptimizationTool{
		deps:     deps,
		api:      api,
		branches: scenario.NewBranchExecutor(deps.Logger),
	}
	return router.Tool{
		Name:        router.ToolOptimization,
		Description: "Investment analysis, ROI, optimal sizing, NPV. MUST include location (zip/city/state/coordinates) in sub-question.",
		Handler:     t.Handle,
	}
}

// Handle resolves a zip, picks the financing sweep for the property
// type, and runs all branches through the optimizer breaker.
func (t *OptimizationTool) Handle(ctx context.Context, question string) (*router.ToolResult, error) {
	loc := t.deps.Extractor.Extract(ctx, question)
	if loc == nil || loc.ZipCode == "" {
		if loc != nil && loc.City != "" && loc.State != "" {
			zip, err := t.deps.Geocoder.CityStateToZip(ctx, loc.City, loc.State)
			if err == nil {
				loc.ZipCode = zip
			}
		}
		if loc == nil || loc.ZipCode == "" {
			return noData("optimization requires a location; please mention a zip code or city"), nil
		}
	}

	propertyType := detectPropertyType(question)
	variants := scenario.FinancingVariants(propertyType)

	report, err := t.branches.RunBranches(ctx, variants, func(ctx context.Context, params scenario.Params) (interface{}, error) {
		var outcome interface{}
		breaker := t.deps.Breakers.Get("optimizer")
		callErr := breaker.Call(ctx, func(ctx context.Context) error {
			v, err := t.api.Optimize(ctx, loc.ZipCode, map[string]interface{}(params))
			if err != nil {
				return err
			}
			outcome = v
			return nil
		})
		if callErr != nil {
			return nil, callErr
		}
		return outcome, nil
	})
	if err != nil {
		return nil, err
	}

	if len(report.Succeeded()) == 0 {
		return degraded("optimizer", report.Results[0].Err), nil
	}

	return &router.ToolResult{
		Text: formatReport(report, propertyType, loc.ZipCode),
		Sources: []router.Source{{
			Text: "Energy system optimization",
			Metadata: map[string]interface{}{
				"zip":           loc.ZipCode,
				"property_type": propertyType,
			},
		}},
	}, nil
}

func detectPropertyType(question string) string {
	lower := strings.ToLower(question)
	if strings.Contains(lower, "commercial") || strings.Contains(lower, "business") ||
		strings.Contains(lower, "industrial") || strings.Contains(lower, "warehouse") {
		return "commercial"
	}
	return "residential"
}

func formatReport(report *scenario.Report, propertyType, zip string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Optimization results for zip %s (%s):\n", zip, propertyType)

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(&b, "- %s scenario: unavailable (%v)\n", res.Name, res.Err)
			continue
		}
		out := res.Outcome.(*OptimizationOutcome)
		itc, _ := res.Params["federal_itc_fraction"].(float64)
		fmt.Fprintf(&b, "- %s scenario (%.0f%% federal ITC): NPV $%.0f, %.1f kW PV, %.1f kWh storage, %.1f year payback\n",
			res.Name, itc*100, out.NPV, out.PVSizeKW, out.StorageSizeKWh, out.PaybackYears)
	}

	if propertyType == "residential" {
		purchase := report.ByName("purchase")
		lease := report.ByName("lease")
		if purchase != nil && lease != nil && purchase.Err == nil && lease.Err == nil {
			p := purchase.Outcome.(*OptimizationOutcome)
			l := lease.Outcome.(*OptimizationOutcome)
			switch {
			case l.NPV > p.NPV:
				fmt.Fprintf(&b, "Under 2026 rules a lease is more favorable: the developer keeps the 30%% credit, improving NPV by $%.0f over a cash purchase.\n", l.NPV-p.NPV)
			case p.NPV > l.NPV:
				fmt.Fprintf(&b, "A cash purchase comes out ahead by $%.0f NPV despite the expired residential credit.\n", p.NPV-l.NPV)
			}
		}
	} else if !scenario.DeadlinePassed(time.Now().UTC()) {
		b.WriteString(scenario.CommercialPolicyNote + "\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}
