package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/gridmind/gridmind/core"
	"github.com/gridmind/gridmind/router"
)

const synthesisTemplate = `Answer the user's question using only the tool findings below.

RULES:
- Be concise and concrete; lead with the direct answer.
- If a finding says data is unavailable, say so for that part and answer the rest.
- If the findings contain a purchase-vs-lease financing comparison, present both
  scenarios and state which is more favorable under 2026 rules and why.

User question: %q

Tool findings:
%s`

// synthesize asks the LLM for the final composite answer. When every
// sub-question failed there is nothing to synthesize from, so a plain
// degradation message comes back instead of a model call.
func (o *Orchestrator) synthesize(ctx context.Context, question string, answers []router.Answer) (string, error) {
	findings := formatFindings(answers)
	if findings == "" {
		return "I could not retrieve data from any source for this question. The upstream services may be temporarily unavailable; please try again shortly.", nil
	}

	resp, err := o.registry.AI.GenerateResponse(ctx, fmt.Sprintf(synthesisTemplate, question, findings), &core.AIOptions{
		SystemPrompt: "You are an energy advisor. Answer from the provided findings only.",
	})
	if err != nil {
		// The findings are still useful raw; degrade rather than discard.
		o.registry.Logger.Warn("Synthesis failed, returning raw findings", map[string]interface{}{
			"operation": "synthesize",
			"error":     err.Error(),
		})
		return findings, nil
	}
	return resp.Content, nil
}

func formatFindings(answers []router.Answer) string {
	var b strings.Builder
	for _, a := range answers {
		if a.Err != nil || a.Result == nil {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n", a.SubQuestion.ToolName, a.SubQuestion.Text, a.Result.Text)
	}
	return strings.TrimSpace(b.String())
}
