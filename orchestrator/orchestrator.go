package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridmind/gridmind/location"
	"github.com/gridmind/gridmind/router"
)

// Response is the composite answer returned to callers.
type Response struct {
	Answer           string             `json:"answer"`
	Sources          []router.Source    `json:"sources,omitempty"`
	ToolsUsed        []string           `json:"tools_used"`
	DetectedLocation *location.Location `json:"detected_location,omitempty"`
	RequestID        string             `json:"request_id"`
}

// Orchestrator runs questions end to end.
type Orchestrator struct {
	registry *ServiceRegistry
}

// New creates an orchestrator over a wired registry.
func New(registry *ServiceRegistry) *Orchestrator {
	return &Orchestrator{registry: registry}
}

// Answer decomposes the question, dispatches every sub-question, and
// synthesizes one composite answer. Partial tool failures degrade the
// answer instead of failing it; only decomposition transport errors and
// a fully-failed synthesis surface as errors.
func (o *Orchestrator) Answer(ctx context.Context, question string) (*Response, error) {
	requestID := uuid.NewString()
	logger := o.registry.Logger
	start := time.Now()

	logger.Info("Answering question", map[string]interface{}{
		"operation":  "answer",
		"request_id": requestID,
		"question":   question,
	})

	detected := o.registry.Extractor.Extract(ctx, question)

	subs, err := o.registry.Router.Decompose(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("decomposing question: %w", err)
	}

	answers := o.registry.Router.Dispatch(ctx, subs)

	var (
		sources   []router.Source
		toolsUsed []string
		succeeded int
	)
	seen := make(map[string]bool)
	for _, a := range answers {
		if !seen[a.SubQuestion.ToolName] {
			seen[a.SubQuestion.ToolName] = true
			toolsUsed = append(toolsUsed, a.SubQuestion.ToolName)
		}
		if a.Err == nil && a.Result != nil {
			succeeded++
			sources = append(sources, a.Result.Sources...)
		}
	}
	if succeeded == 0 {
		logger.Warn("Every sub-question failed", map[string]interface{}{
			"operation":  "answer",
			"request_id": requestID,
		})
	}

	final, err := o.synthesize(ctx, question, answers)
	if err != nil {
		return nil, fmt.Errorf("synthesizing answer: %w", err)
	}

	logger.Info("Question answered", map[string]interface{}{
		"operation":     "answer",
		"request_id":    requestID,
		"sub_questions": len(subs),
		"succeeded":     succeeded,
		"duration":      time.Since(start).String(),
	})

	return &Response{
		Answer:           final,
		Sources:          sources,
		ToolsUsed:        toolsUsed,
		DetectedLocation: detected,
		RequestID:        requestID,
	}, nil
}
