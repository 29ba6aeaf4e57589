package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gridmind/gridmind/core"
)

// ParseDecomposition extracts sub-questions from raw LLM output.
//
// The expected shape is a single {"items": [{"sub_question", "tool_name"}]}
// object, but model output routinely arrives wrapped in markdown fences,
// concatenated with other JSON objects, or polluted with echoes of the
// tool catalog. The strategy:
//
//  1. Try the whole (fence-stripped, trimmed) string as one JSON object.
//  2. Failing that, scan backward from the end for balanced {...} spans
//     and collect every non-empty object that parses.
//  3. Demote objects whose values are all strings — those are tool
//     catalog echoes, not decompositions — unless nothing better exists.
//  4. Prefer an object with an "items" key, then the bare
//     {sub_question, tool_name} shape. When several items-shaped objects
//     were collected, the last one the backward scan found is
//     authoritative.
//
// Items missing both keys are dropped; an item missing only its tool name
// survives so the keyword classifier can repair it. All failures wrap
// core.ErrDecomposeParse.
func ParseDecomposition(raw string) ([]SubQuestion, error) {
	objects := extractObjects(stripFences(raw))
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: no JSON object found in output: %.200s", core.ErrDecomposeParse, raw)
	}

	candidate, err := selectCandidate(objects)
	if err != nil {
		return nil, err
	}

	if rawItems, ok := candidate["items"]; ok {
		items, ok := rawItems.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: \"items\" is not a list", core.ErrDecomposeParse)
		}
		var subs []SubQuestion
		for _, ri := range items {
			item, ok := ri.(map[string]interface{})
			if !ok {
				continue
			}
			text, hasText := item["sub_question"].(string)
			tool, hasTool := item["tool_name"].(string)
			if !hasText && !hasTool {
				continue
			}
			subs = append(subs, SubQuestion{Text: text, ToolName: tool})
		}
		if len(subs) == 0 {
			return nil, fmt.Errorf("%w: no valid sub-questions in items", core.ErrDecomposeParse)
		}
		return subs, nil
	}

	// Single sub-question shape.
	text, hasText := candidate["sub_question"].(string)
	tool, hasTool := candidate["tool_name"].(string)
	if hasText || hasTool {
		return []SubQuestion{{Text: text, ToolName: tool}}, nil
	}

	return nil, fmt.Errorf("%w: object has neither \"items\" nor a sub-question shape", core.ErrDecomposeParse)
}

// stripFences removes markdown code fence markers, leaving the content.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}
	out := strings.ReplaceAll(raw, "```json", "")
	return strings.ReplaceAll(out, "```", "")
}

// extractObjects collects candidate JSON objects. When the whole string
// parses, that is the only candidate; otherwise the backward brace scan
// runs, so objects appear in end-to-start order.
func extractObjects(raw string) []map[string]interface{} {
	trimmed := strings.TrimSpace(raw)

	var whole map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &whole); err == nil && whole != nil {
		return []map[string]interface{}{whole}
	}

	var objects []map[string]interface{}
	i := len(trimmed) - 1
	for i >= 0 {
		if trimmed[i] != '}' {
			i--
			continue
		}
		start := matchingOpenBrace(trimmed, i)
		if start < 0 {
			i--
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed[start:i+1]), &obj); err == nil && len(obj) > 0 {
			objects = append(objects, obj)
			i = start - 1
			continue
		}
		i--
	}
	return objects
}

// matchingOpenBrace finds the '{' balancing the '}' at close, or -1.
// Braces inside string literals are not special-cased; a span that
// miscounts simply fails to parse and is skipped.
func matchingOpenBrace(s string, close int) int {
	depth := 0
	for j := close; j >= 0; j-- {
		switch s[j] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// selectCandidate applies the priority rules over collected objects.
func selectCandidate(objects []map[string]interface{}) (map[string]interface{}, error) {
	var itemsShaped []map[string]interface{}
	var acceptable []map[string]interface{}

	for _, obj := range objects {
		if _, ok := obj["items"]; ok {
			itemsShaped = append(itemsShaped, obj)
			continue
		}
		_, hasText := obj["sub_question"]
		_, hasTool := obj["tool_name"]
		if hasText && hasTool {
			acceptable = append(acceptable, obj)
			continue
		}
		if !allStringValues(obj) {
			acceptable = append(acceptable, obj)
		}
	}

	switch {
	case len(itemsShaped) > 0:
		return itemsShaped[len(itemsShaped)-1], nil
	case len(acceptable) > 0:
		return acceptable[len(acceptable)-1], nil
	}

	last := objects[len(objects)-1]
	if allStringValues(last) {
		echo, _ := json.Marshal(last)
		return nil, fmt.Errorf(
			"%w: output echoes the tool catalog instead of a decomposition: %.300s",
			core.ErrDecomposeParse, echo)
	}
	return last, nil
}

func allStringValues(obj map[string]interface{}) bool {
	for _, v := range obj {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}
