package router

import (
	"fmt"
	"strings"
)

// decompositionTemplate instructs the LLM to emit the {"items": [...]}
// decomposition. The examples double as few-shot anchors for the
// cost+location and 2026 financing rules; the parser and classifier
// still repair whatever the model gets wrong.
const decompositionTemplate = `Given a user question and tools, output relevant sub-questions in JSON format.

RULES:
1. Create NEW sub-questions based on the user's question
2. Do NOT copy tool descriptions
3. Output format: {"items": [{"sub_question": "...", "tool_name": "..."}]}
4. IMPORTANT: If the year is 2026 and the question involves residential solar financing,
   explicitly compare the 0%% purchase credit vs the 30%% lease credit for homeowners.

TOOL USAGE:
- transportation_tool: Finding EV charging stations, locations, charger types
- utility_tool: Electricity rates, costs, time-of-use rates, utility info
- solar_production_tool: Solar energy production estimates (kWh) for location/system size
- buildings_tool: Building energy codes, efficiency standards, code compliance, building performance, energy efficiency measures to reduce bills
- optimization_tool: Investment analysis, ROI, optimal sizing, NPV. MUST include location (zip/city/state/coordinates) in sub-question.

TAX CREDIT CONTEXT (2026 OBBBA):
- Residential Purchase: 0%% federal tax credit (expired in 2025)
- Residential Lease: 30%% federal tax credit (still eligible)
- Commercial: 30%% if construction starts before July 4, 2026

EXAMPLES:

Q: "What are the nearest DC fast charging stations and electricity cost?"
A: {"items": [{"sub_question": "Where are the nearest DC fast charging stations?", "tool_name": "transportation_tool"}, {"sub_question": "What is the electricity cost per kWh?", "tool_name": "utility_tool"}]}

Q: "Compare savings: charging at 11 PM vs 4kW solar in zip 45424"
A: {"items": [{"sub_question": "What are electricity rates including time-of-use for zip 45424?", "tool_name": "utility_tool"}, {"sub_question": "What is solar production for 4kW system in zip 45424?", "tool_name": "solar_production_tool"}]}

Q: "Should I buy or lease solar panels for my home in 2026?"
A: {"items": [
    {"sub_question": "What is optimal solar/storage size and NPV for residential solar purchase in 2026 (0%% ITC)?", "tool_name": "optimization_tool"},
    {"sub_question": "What is optimal solar/storage size and NPV for residential solar lease in 2026 (30%% ITC)?", "tool_name": "optimization_tool"}
]}

Q: "Where is the cheapest place in Florida to charge my EV?"
A: {"items": [
    {"sub_question": "Where are EV charging stations in Florida?", "tool_name": "transportation_tool"},
    {"sub_question": "What are the electricity rates and costs for charging in Florida?", "tool_name": "utility_tool"}
]}

Q: "How do I lower my electricity bill?"
A: {"items": [
    {"sub_question": "What are current electricity rates?", "tool_name": "utility_tool"},
    {"sub_question": "What are building energy efficiency standards and measures to reduce energy consumption?", "tool_name": "buildings_tool"},
    {"sub_question": "What is solar production potential to offset electricity costs?", "tool_name": "solar_production_tool"}
]}

CRITICAL RULE FOR COST + LOCATION QUESTIONS:
- If a question asks about "cheapest", "cheaper", "most affordable", "best price", "lowest cost",
  or compares costs across locations, you MUST generate TWO sub-questions:
  1. One for finding locations/stations (transportation_tool)
  2. One for getting cost/rate information (utility_tool)

CRITICAL RULE FOR 2026 SOLAR ROI QUESTIONS:
- If the question mentions "ROI", "return on investment", "financial analysis", "NPV", "payback", or asks about buying/leasing solar in 2026, you MUST generate TWO separate sub-questions:
  1. One for purchase (0%% ITC) - explicitly mention "purchase" and "0%% ITC" in the sub-question
  2. One for lease (30%% ITC) - explicitly mention "lease" and "30%% ITC" in the sub-question
- Both sub-questions must call optimization_tool

YOUR TASK:
<Tools>
%s
</Tools>

<User Question>
%s

<Output>
`

// DecompositionPrompt renders the prompt for a question and tool catalog.
func DecompositionPrompt(question string, tools []Tool) string {
	var catalog strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&catalog, "- %s: %s\n", t.Name, t.Description)
	}
	return fmt.Sprintf(decompositionTemplate, strings.TrimSuffix(catalog.String(), "\n"), question)
}
