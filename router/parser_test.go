package router

import (
	"errors"
	"testing"

	"github.com/gridmind/gridmind/core"
)

// TestParseCleanItems tests the happy path: one well-formed object
func TestParseCleanItems(t *testing.T) {
	raw := `{"items": [
		{"sub_question": "Where are EV charging stations in Florida?", "tool_name": "transportation_tool"},
		{"sub_question": "What are electricity rates in Florida?", "tool_name": "utility_tool"}
	]}`

	subs, err := ParseDecomposition(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 sub-questions, got %d", len(subs))
	}
	if subs[0].ToolName != "transportation_tool" || subs[1].ToolName != "utility_tool" {
		t.Errorf("tool names lost in parse: %+v", subs)
	}
}

// TestParseMarkdownFenced tests fence stripping
func TestParseMarkdownFenced(t *testing.T) {
	raw := "```json\n{\"items\": [{\"sub_question\": \"What is the cost per kWh?\", \"tool_name\": \"utility_tool\"}]}\n```"

	subs, err := ParseDecomposition(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 1 || subs[0].ToolName != "utility_tool" {
		t.Errorf("unexpected result: %+v", subs)
	}
}

// TestParseConcatenatedObjects tests extraction from surrounding noise
func TestParseConcatenatedObjects(t *testing.T) {
	raw := `Here is my reasoning about the question.
{"thoughts": "the user wants stations", "confidence": 0.9}
{"items": [{"sub_question": "Where are stations near 80202?", "tool_name": "transportation_tool"}]}
Hope this helps!`

	subs, err := ParseDecomposition(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 sub-question, got %d", len(subs))
	}
	if subs[0].Text != "Where are stations near 80202?" {
		t.Errorf("wrong object selected: %+v", subs[0])
	}
}

// TestParsePrefersItemsOverSingleShape tests the items priority when both
// shapes are present
func TestParsePrefersItemsOverSingleShape(t *testing.T) {
	raw := `{"sub_question": "stray single", "tool_name": "utility_tool"}
{"items": [{"sub_question": "from the items object", "tool_name": "solar_production_tool"}]}`

	subs, err := ParseDecomposition(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 1 || subs[0].Text != "from the items object" {
		t.Errorf("expected the items-shaped object to win, got %+v", subs)
	}
}

// TestParseMultipleItemsObjects tests that with several items-shaped
// candidates the backward scan's last find (nearest the start of the
// text) is authoritative
func TestParseMultipleItemsObjects(t *testing.T) {
	raw := `{"items": [{"sub_question": "first decomposition", "tool_name": "utility_tool"}]}
some interleaved prose
{"items": [{"sub_question": "second decomposition", "tool_name": "utility_tool"}]}`

	subs, err := ParseDecomposition(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 1 || subs[0].Text != "first decomposition" {
		t.Errorf("expected the scan's final candidate, got %+v", subs)
	}
}

// TestParseDemotesCatalogEcho tests that an all-string-valued echo of the
// tool catalog loses to a real decomposition
func TestParseDemotesCatalogEcho(t *testing.T) {
	raw := `{"transportation_tool": "Finding EV charging stations", "utility_tool": "Electricity rates"}
{"items": [{"sub_question": "Where can I charge?", "tool_name": "transportation_tool"}]}`

	subs, err := ParseDecomposition(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 1 || subs[0].Text != "Where can I charge?" {
		t.Errorf("catalog echo should be demoted, got %+v", subs)
	}
}

// TestParseOnlyEchoFails tests the descriptive error when nothing but an
// echo is present
func TestParseOnlyEchoFails(t *testing.T) {
	raw := `{"transportation_tool": "Finding EV charging stations", "utility_tool": "Electricity rates"}`

	_, err := ParseDecomposition(raw)
	if !errors.Is(err, core.ErrDecomposeParse) {
		t.Errorf("expected ErrDecomposeParse, got %v", err)
	}
}

// TestParseSingleSubQuestionShape tests the bare {sub_question, tool_name}
// fallback shape
func TestParseSingleSubQuestionShape(t *testing.T) {
	raw := `{"sub_question": "What are current rates?", "tool_name": "utility_tool"}`

	subs, err := ParseDecomposition(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 1 || subs[0].Text != "What are current rates?" {
		t.Errorf("unexpected result: %+v", subs)
	}
}

// TestParseDropsItemsMissingBothKeys tests the item filter: missing both
// keys drops, missing only the tool survives for repair
func TestParseDropsItemsMissingBothKeys(t *testing.T) {
	raw := `{"items": [
		{"note": "not a sub-question"},
		{"sub_question": "What is the cost?"},
		{"sub_question": "Where are stations?", "tool_name": "transportation_tool"}
	]}`

	subs, err := ParseDecomposition(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 surviving items, got %d: %+v", len(subs), subs)
	}
	if subs[0].ToolName != "" {
		t.Errorf("expected missing tool name left empty for repair, got %q", subs[0].ToolName)
	}
}

// TestParseNoJSON tests the parse error for plain prose
func TestParseNoJSON(t *testing.T) {
	_, err := ParseDecomposition("I could not produce a decomposition, sorry.")
	if !errors.Is(err, core.ErrDecomposeParse) {
		t.Errorf("expected ErrDecomposeParse, got %v", err)
	}
}

// TestParseItemsNotAList tests the malformed items error
func TestParseItemsNotAList(t *testing.T) {
	_, err := ParseDecomposition(`{"items": "oops"}`)
	if !errors.Is(err, core.ErrDecomposeParse) {
		t.Errorf("expected ErrDecomposeParse, got %v", err)
	}
}

// TestParseEmptyItems tests that an empty items list is a parse failure
func TestParseEmptyItems(t *testing.T) {
	_, err := ParseDecomposition(`{"items": []}`)
	if !errors.Is(err, core.ErrDecomposeParse) {
		t.Errorf("expected ErrDecomposeParse, got %v", err)
	}
}
