// Package router turns a natural-language question into tool invocations:
// it asks the LLM for a decomposition into sub-questions, repairs the tool
// assignment of anything the LLM got wrong, and dispatches each
// sub-question to its tool concurrently.
package router

import "context"

// Known tool names. The classifier only ever assigns one of these.
const (
	ToolTransportation = "transportation_tool"
	ToolUtility        = "utility_tool"
	ToolSolar          = "solar_production_tool"
	ToolBuildings      = "buildings_tool"
	ToolOptimization   = "optimization_tool"
)

// SubQuestion is one routed unit of work.
type SubQuestion struct {
	Text     string `json:"sub_question"`
	ToolName string `json:"tool_name"`
}

// Source attributes part of a tool answer to an underlying record.
type Source struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToolResult is what a tool handler returns. Handlers report "no data"
// conditions inside Text rather than as errors; only infrastructure and
// programming failures surface as errors.
type ToolResult struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}

// Handler executes one sub-question against a tool's data source.
type Handler func(ctx context.Context, question string) (*ToolResult, error)

// Tool pairs a handler with the name and description the LLM sees.
type Tool struct {
	Name        string
	Description string
	Handler     Handler
}

// Answer is one sub-question's dispatched outcome.
type Answer struct {
	SubQuestion SubQuestion
	Result      *ToolResult
	Err         error
}
