package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gridmind/gridmind/core"
)

// TestClassifyPrecedence tests the ordered keyword rules
func TestClassifyPrecedence(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		text string
		want string
	}{
		// Cost vocabulary outranks everything, even explicit station phrases.
		{"What is the charging cost at the nearest station?", ToolUtility},
		{"What are electricity rates including time-of-use for zip 45424?", ToolUtility},
		{"Compare monthly savings between providers", ToolUtility},

		// Station location phrases without cost context.
		{"Where are DC fast charging stations in Denver?", ToolTransportation},
		{"Find charging near the airport", ToolTransportation},

		// Bare "charging" disambiguation.
		{"Is charging at 11 PM cheaper?", ToolUtility},
		{"Is overnight charging available downtown?", ToolTransportation},

		// Optimization vocabulary.
		{"What is the optimal system NPV for zip 80202?", ToolOptimization},
		{"Payback period for a 10kW array?", ToolOptimization},

		// Solar vocabulary.
		{"How much does a 4kW photovoltaic system produce?", ToolSolar},

		// Buildings vocabulary.
		{"Which IECC requirements apply to my remodel?", ToolBuildings},
		{"How can I reduce consumption in an older home?", ToolBuildings},

		// Default.
		{"Tell me about my area", ToolTransportation},
	}

	for _, tc := range cases {
		if got := c.Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

// TestClassifyCaseInsensitive tests lowercasing before matching
func TestClassifyCaseInsensitive(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("WHAT ARE ELECTRICITY RATES?"); got != ToolUtility {
		t.Errorf("expected case-insensitive match, got %s", got)
	}
}

type scriptedAI struct {
	response string
	err      error
}

func (s *scriptedAI) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &core.AIResponse{Content: s.response}, nil
}

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: name,
		Handler: func(ctx context.Context, question string) (*ToolResult, error) {
			return &ToolResult{Text: name + ": " + question}, nil
		},
	}
}

func testTools() []Tool {
	return []Tool{
		echoTool(ToolTransportation),
		echoTool(ToolUtility),
		echoTool(ToolSolar),
		echoTool(ToolBuildings),
		echoTool(ToolOptimization),
	}
}

// TestDecomposeRepairsUnknownTool tests classifier repair of invented
// tool names
func TestDecomposeRepairsUnknownTool(t *testing.T) {
	ai := &scriptedAI{response: `{"items": [
		{"sub_question": "What are electricity rates in 80202?", "tool_name": "rates_api"},
		{"sub_question": "Where are charging stations in 80202?", "tool_name": "transportation_tool"}
	]}`}
	r := New(ai, testTools(), nil)

	subs, err := r.Decompose(context.Background(), "cheapest charging in 80202?")
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	if subs[0].ToolName != ToolUtility {
		t.Errorf("expected invented name repaired to utility_tool, got %s", subs[0].ToolName)
	}
	if subs[1].ToolName != ToolTransportation {
		t.Errorf("valid tool name must pass through, got %s", subs[1].ToolName)
	}
}

// TestDecomposeFallbackOnParseError tests the single-question fallback
func TestDecomposeFallbackOnParseError(t *testing.T) {
	ai := &scriptedAI{response: "I am sorry, I cannot help with that."}
	r := New(ai, testTools(), nil)

	subs, err := r.Decompose(context.Background(), "What are electricity rates in Denver?")
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected the whole question as one sub-question, got %d", len(subs))
	}
	if subs[0].Text != "What are electricity rates in Denver?" {
		t.Errorf("expected original question text, got %q", subs[0].Text)
	}
	if subs[0].ToolName != ToolUtility {
		t.Errorf("expected classifier routing for the fallback, got %s", subs[0].ToolName)
	}
}

// TestDecomposeAIErrorPropagates tests that transport failures are not
// swallowed by the fallback
func TestDecomposeAIErrorPropagates(t *testing.T) {
	boom := errors.New("model overloaded")
	r := New(&scriptedAI{err: boom}, testTools(), nil)

	_, err := r.Decompose(context.Background(), "anything")
	if !errors.Is(err, boom) {
		t.Errorf("expected AI error propagated, got %v", err)
	}
}

// TestDispatchIsolatesFailures tests that a failing sibling does not
// suppress the others and order is preserved
func TestDispatchIsolatesFailures(t *testing.T) {
	boom := errors.New("api down")
	tools := []Tool{
		echoTool(ToolUtility),
		{
			Name:        ToolTransportation,
			Description: "stations",
			Handler: func(ctx context.Context, q string) (*ToolResult, error) {
				return nil, boom
			},
		},
	}
	r := New(&scriptedAI{}, tools, nil)

	answers := r.Dispatch(context.Background(), []SubQuestion{
		{Text: "rates?", ToolName: ToolUtility},
		{Text: "stations?", ToolName: ToolTransportation},
		{Text: "orphan", ToolName: "nonexistent_tool"},
	})

	if len(answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(answers))
	}
	if answers[0].Err != nil || answers[0].Result == nil {
		t.Errorf("healthy tool should succeed: %+v", answers[0])
	}
	if !strings.Contains(answers[0].Result.Text, "rates?") {
		t.Errorf("answers must keep input order, got %q", answers[0].Result.Text)
	}
	if !errors.Is(answers[1].Err, boom) {
		t.Errorf("expected tool error recorded, got %v", answers[1].Err)
	}
	if answers[2].Err == nil {
		t.Error("expected error for unregistered tool")
	}
}
