package router

import "strings"

// Rule maps a text predicate to a tool name. Rules are evaluated in
// order; the first match wins.
type Rule struct {
	Name  string
	Match func(text string) bool
	Tool  string
}

// Classifier assigns a tool to a sub-question by keyword precedence. It
// repairs tool names the LLM invented (usually example names copied from
// the prompt) and routes fallback sub-questions when decomposition fails.
type Classifier struct {
	rules       []Rule
	defaultTool string
}

func containsAny(keywords ...string) func(string) bool {
	return func(text string) bool {
		for _, k := range keywords {
			if strings.Contains(text, k) {
				return true
			}
		}
		return false
	}
}

func and(preds ...func(string) bool) func(string) bool {
	return func(text string) bool {
		for _, p := range preds {
			if !p(text) {
				return false
			}
		}
		return true
	}
}

// NewClassifier builds the default rule set.
//
// The ordering is deliberate precedence, not grouping: cost and rate
// vocabulary outranks everything because "charging cost" questions are
// utility questions even though they mention charging; explicit station
// location phrases come next; a bare "charging" mention resolves to
// utility only with co-occurring cost context, otherwise to stations;
// then optimization, solar, and buildings vocabularies. Anything
// unmatched is a station-location question.
func NewClassifier() *Classifier {
	charging := containsAny("charging")

	return &Classifier{
		defaultTool: ToolTransportation,
		rules: []Rule{
			{
				Name: "utility_cost_terms",
				Match: containsAny(
					"electricity", "utility", "rate", "cost", "kwh", "price", "bill",
					"time-of-use", "off-peak", "peak rate", "charging cost",
					"charging at", "savings", "compare", "monthly", "annual",
				),
				Tool: ToolUtility,
			},
			{
				Name: "station_location_phrases",
				Match: containsAny(
					"charging station", "charging stations", "where to charge",
					"where can i charge", "charger location", "charging location",
					"nearest charging", "find charging", "dc fast", "level 2",
					"station near",
				),
				Tool: ToolTransportation,
			},
			{
				Name: "charging_with_cost_context",
				Match: and(charging, containsAny(
					"cost", "savings", "rate", "price", "bill", "at 11", "at 12", "time",
				)),
				Tool: ToolUtility,
			},
			{
				Name:  "charging_mention",
				Match: charging,
				Tool:  ToolTransportation,
			},
			{
				Name: "optimization_terms",
				Match: containsAny(
					"investment", "sizing", "roi", "optimal size", "optimal system",
					"npv", "net present value", "financial analysis",
					"economic analysis", "optimal design", "cost-benefit",
					"payback", "optimize", "optimization", "optimal solar",
					"optimal storage", "optimal energy system",
				),
				Tool: ToolOptimization,
			},
			{
				Name: "solar_terms",
				Match: containsAny(
					"solar", "solar panel", "solar energy", "solar production",
					"solar generation", "solar savings", "solar offset",
					"solar payback", "photovoltaic", "pv system",
				),
				Tool: ToolSolar,
			},
			{
				Name: "buildings_terms",
				Match: containsAny(
					"building code", "energy code", "iecc", "ashrae",
					"building standard", "efficiency requirement", "code compliance",
					"building performance", "energy efficiency standard",
					"building energy code", "building codes", "energy standards",
					"building efficiency", "lower bill", "reduce bill",
					"lower electricity", "reduce electricity",
					"energy efficiency measure", "energy retrofit",
					"improve efficiency", "reduce consumption",
				),
				Tool: ToolBuildings,
			},
		},
	}
}

// Classify returns the tool name for a sub-question text.
func (c *Classifier) Classify(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		if rule.Match(lower) {
			return rule.Tool
		}
	}
	return c.defaultTool
}
