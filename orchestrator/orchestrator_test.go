package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gridmind/gridmind/core"
	"github.com/gridmind/gridmind/location"
	"github.com/gridmind/gridmind/router"
)

// scriptedAI answers decomposition, extraction, and synthesis prompts
// from a small script keyed by prompt content.
type scriptedAI struct {
	decomposition string
	synthesis     string
	failSynthesis bool
}

func (s *scriptedAI) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	switch {
	case strings.Contains(prompt, "sub-questions in JSON format"):
		return &core.AIResponse{Content: s.decomposition}, nil
	case strings.Contains(prompt, "location information"):
		return &core.AIResponse{Content: `{"zip_code": "80202", "city": null, "state": null, "location_type": "zip_code"}`}, nil
	default:
		if s.failSynthesis {
			return nil, errors.New("model overloaded")
		}
		return &core.AIResponse{Content: s.synthesis}, nil
	}
}

func testRegistry(ai core.AIClient, toolSet []router.Tool) *ServiceRegistry {
	return &ServiceRegistry{
		Logger:    &core.NoOpLogger{},
		AI:        ai,
		Extractor: location.NewExtractor(ai, nil),
		Router:    router.New(ai, toolSet, nil),
	}
}

func staticTool(name, answer string, err error) router.Tool {
	return router.Tool{
		Name:        name,
		Description: name,
		Handler: func(ctx context.Context, question string) (*router.ToolResult, error) {
			if err != nil {
				return nil, err
			}
			return &router.ToolResult{
				Text:    answer,
				Sources: []router.Source{{Text: answer}},
			}, nil
		},
	}
}

// TestAnswerCompositeFlow tests the full decompose/dispatch/synthesize
// path with two tools contributing
func TestAnswerCompositeFlow(t *testing.T) {
	ai := &scriptedAI{
		decomposition: `{"items": [
			{"sub_question": "Where are charging stations in 80202?", "tool_name": "transportation_tool"},
			{"sub_question": "What are electricity rates in 80202?", "tool_name": "utility_tool"}
		]}`,
		synthesis: "Stations are downtown; rates average $0.13/kWh.",
	}
	reg := testRegistry(ai, []router.Tool{
		staticTool(router.ToolTransportation, "3 stations found", nil),
		staticTool(router.ToolUtility, "avg $0.13/kWh", nil),
	})

	resp, err := New(reg).Answer(context.Background(), "cheapest charging in 80202?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if resp.Answer != "Stations are downtown; rates average $0.13/kWh." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.ToolsUsed) != 2 {
		t.Errorf("expected 2 tools used, got %v", resp.ToolsUsed)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("expected sources from both tools, got %d", len(resp.Sources))
	}
	if resp.DetectedLocation == nil || resp.DetectedLocation.ZipCode != "80202" {
		t.Errorf("expected detected location, got %+v", resp.DetectedLocation)
	}
	if resp.RequestID == "" {
		t.Error("expected a request id")
	}
}

// TestAnswerPartialFailure tests that one failing tool degrades, not
// fails, the composite answer
func TestAnswerPartialFailure(t *testing.T) {
	ai := &scriptedAI{
		decomposition: `{"items": [
			{"sub_question": "Where are charging stations in 80202?", "tool_name": "transportation_tool"},
			{"sub_question": "What are electricity rates in 80202?", "tool_name": "utility_tool"}
		]}`,
		synthesis: "Stations found; rate data unavailable.",
	}
	reg := testRegistry(ai, []router.Tool{
		staticTool(router.ToolTransportation, "3 stations found", nil),
		staticTool(router.ToolUtility, "", errors.New("rates service down")),
	})

	resp, err := New(reg).Answer(context.Background(), "cheapest charging in 80202?")
	if err != nil {
		t.Fatalf("partial failure must not fail the answer: %v", err)
	}
	if len(resp.Sources) != 1 {
		t.Errorf("expected sources only from the surviving tool, got %d", len(resp.Sources))
	}
	if len(resp.ToolsUsed) != 2 {
		t.Errorf("tools_used should name every attempted tool, got %v", resp.ToolsUsed)
	}
}

// TestAnswerAllToolsFailed tests the no-findings degradation message
func TestAnswerAllToolsFailed(t *testing.T) {
	ai := &scriptedAI{
		decomposition: `{"items": [{"sub_question": "What are rates?", "tool_name": "utility_tool"}]}`,
	}
	reg := testRegistry(ai, []router.Tool{
		staticTool(router.ToolUtility, "", errors.New("down")),
	})

	resp, err := New(reg).Answer(context.Background(), "rates in 80202?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(resp.Answer, "could not retrieve data") {
		t.Errorf("expected degradation message, got %q", resp.Answer)
	}
}

// TestAnswerSynthesisFailureReturnsFindings tests the raw-findings
// fallback when the synthesis model call fails
func TestAnswerSynthesisFailureReturnsFindings(t *testing.T) {
	ai := &scriptedAI{
		decomposition: `{"items": [{"sub_question": "What are rates?", "tool_name": "utility_tool"}]}`,
		failSynthesis: true,
	}
	reg := testRegistry(ai, []router.Tool{
		staticTool(router.ToolUtility, "avg $0.13/kWh", nil),
	})

	resp, err := New(reg).Answer(context.Background(), "rates in 80202?")
	if err != nil {
		t.Fatalf("synthesis failure must degrade: %v", err)
	}
	if !strings.Contains(resp.Answer, "avg $0.13/kWh") {
		t.Errorf("expected raw findings returned, got %q", resp.Answer)
	}
}

// TestAnswerFallbackDecomposition tests the single-question fallback
// flowing end to end
func TestAnswerFallbackDecomposition(t *testing.T) {
	ai := &scriptedAI{
		decomposition: "no json here, sorry",
		synthesis:     "Rates average $0.13/kWh.",
	}
	reg := testRegistry(ai, []router.Tool{
		staticTool(router.ToolUtility, "avg $0.13/kWh", nil),
		staticTool(router.ToolTransportation, "stations", nil),
	})

	resp, err := New(reg).Answer(context.Background(), "What are electricity rates in 80202?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != router.ToolUtility {
		t.Errorf("expected classifier-routed fallback to utility_tool, got %v", resp.ToolsUsed)
	}
}
