package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gridmind/gridmind/core"
)

// Router owns the decompose/repair/dispatch pipeline.
type Router struct {
	ai         core.AIClient
	tools      map[string]Tool
	ordered    []Tool
	classifier *Classifier
	logger     core.Logger
}

// New creates a router over the given tool set.
func New(ai core.AIClient, tools []Tool, logger core.Logger) *Router {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}
	return &Router{
		ai:         ai,
		tools:      byName,
		ordered:    tools,
		classifier: NewClassifier(),
		logger:     logger,
	}
}

// Decompose asks the LLM to split question into routed sub-questions and
// repairs every tool name that is not in the tool set. A decomposition
// parse failure is not fatal: the whole question becomes a single
// sub-question routed by the classifier.
func (r *Router) Decompose(ctx context.Context, question string) ([]SubQuestion, error) {
	resp, err := r.ai.GenerateResponse(ctx, DecompositionPrompt(question, r.ordered), &core.AIOptions{
		SystemPrompt: "You are a question decomposition engine. Output only JSON.",
	})
	if err != nil {
		return nil, fmt.Errorf("decomposition request failed: %w", err)
	}

	subs, err := ParseDecomposition(resp.Content)
	if err != nil {
		if !errors.Is(err, core.ErrDecomposeParse) {
			return nil, err
		}
		r.logger.Warn("Decomposition unparseable, routing whole question", map[string]interface{}{
			"operation": "decompose",
			"error":     err.Error(),
		})
		subs = []SubQuestion{{Text: question}}
	}

	for i := range subs {
		if _, known := r.tools[subs[i].ToolName]; known {
			continue
		}
		repaired := r.classifier.Classify(subs[i].Text)
		r.logger.Debug("Repaired tool assignment", map[string]interface{}{
			"operation": "decompose",
			"from":      subs[i].ToolName,
			"to":        repaired,
		})
		subs[i].ToolName = repaired
	}

	r.logger.Info("Question decomposed", map[string]interface{}{
		"operation":     "decompose",
		"sub_questions": len(subs),
	})
	return subs, nil
}

// Dispatch runs every sub-question against its tool concurrently and
// returns answers in input order. One sub-question's failure never aborts
// its siblings; each answer carries its own error.
func (r *Router) Dispatch(ctx context.Context, subs []SubQuestion) []Answer {
	answers := make([]Answer, len(subs))

	var wg sync.WaitGroup
	for i, sq := range subs {
		wg.Add(1)
		go func(i int, sq SubQuestion) {
			defer wg.Done()
			answers[i] = r.dispatchOne(ctx, sq)
		}(i, sq)
	}
	wg.Wait()
	return answers
}

func (r *Router) dispatchOne(ctx context.Context, sq SubQuestion) Answer {
	tool, ok := r.tools[sq.ToolName]
	if !ok {
		return Answer{
			SubQuestion: sq,
			Err:         fmt.Errorf("no handler registered for tool %q", sq.ToolName),
		}
	}

	result, err := tool.Handler(ctx, sq.Text)
	if err != nil {
		r.logger.Error("Tool invocation failed", map[string]interface{}{
			"operation":    "dispatch",
			"tool":         sq.ToolName,
			"sub_question": sq.Text,
			"error":        err.Error(),
		})
		return Answer{SubQuestion: sq, Err: err}
	}
	return Answer{SubQuestion: sq, Result: result}
}
