// Package location extracts the geographic anchor of a question (zip
// code, city, state) so tools can filter stations, rates, and solar data
// by place. Extraction is LLM-first with a regex fallback, mirroring the
// decomposition path: model output is helpful but never trusted to be
// well formed.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gridmind/gridmind/core"
)

// Location is the detected geographic anchor. Type names the strongest
// signal found: "zip_code", "city_state", or "state".
type Location struct {
	ZipCode string `json:"zip_code,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Type    string `json:"location_type,omitempty"`
}

const extractionTemplate = `Extract location information from this question about EV charging and energy.

Question: %q

Look for zip codes (5 digits), city names, and state names or abbreviations.

Respond with ONLY a JSON object in this exact format:
{"zip_code": "12345" or null, "city": "CityName" or null, "state": "XX" or null, "location_type": "zip_code" or "city_state" or "state" or null}

If no location is found, return: {"zip_code": null, "city": null, "state": null, "location_type": null}`

// Extractor detects locations in question text.
type Extractor struct {
	ai     core.AIClient
	logger core.Logger
}

// NewExtractor creates an extractor. A nil AI client skips straight to
// the regex fallback.
func NewExtractor(ai core.AIClient, logger core.Logger) *Extractor {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Extractor{ai: ai, logger: logger}
}

// Extract returns the question's location, or nil when none is found.
// LLM failures of any kind degrade to the regex fallback; Extract never
// returns an error because a missing location only narrows an answer,
// it never blocks one.
func (e *Extractor) Extract(ctx context.Context, question string) *Location {
	if e.ai != nil {
		if loc := e.extractWithLLM(ctx, question); loc != nil {
			return loc
		}
	}
	return FallbackExtract(question)
}

func (e *Extractor) extractWithLLM(ctx context.Context, question string) *Location {
	resp, err := e.ai.GenerateResponse(ctx, fmt.Sprintf(extractionTemplate, question), &core.AIOptions{
		SystemPrompt: "You are a location extraction engine. Output only JSON.",
	})
	if err != nil {
		e.logger.Warn("Location extraction request failed, using fallback", map[string]interface{}{
			"operation": "extract_location",
			"error":     err.Error(),
		})
		return nil
	}

	text := strings.TrimSpace(resp.Content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var loc Location
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &loc); err != nil {
		e.logger.Warn("Unparseable location extraction, using fallback", map[string]interface{}{
			"operation": "extract_location",
			"error":     err.Error(),
		})
		return nil
	}
	if loc.Type == "" {
		return nil
	}
	return &loc
}

var zipPattern = regexp.MustCompile(`\b(\d{5})\b`)

var stateAbbrevs = map[string]bool{
	"al": true, "ak": true, "az": true, "ar": true, "ca": true, "co": true,
	"ct": true, "de": true, "fl": true, "ga": true, "hi": true, "id": true,
	"il": true, "in": true, "ia": true, "ks": true, "ky": true, "la": true,
	"me": true, "md": true, "ma": true, "mi": true, "mn": true, "ms": true,
	"mo": true, "mt": true, "ne": true, "nv": true, "nh": true, "nj": true,
	"nm": true, "ny": true, "nc": true, "nd": true, "oh": true, "ok": true,
	"or": true, "pa": true, "ri": true, "sc": true, "sd": true, "tn": true,
	"tx": true, "ut": true, "vt": true, "va": true, "wa": true, "wv": true,
	"wi": true, "wy": true,
}

type stateName struct {
	name string
	code string
}

// Compound names come first so "west virginia" never matches "virginia".
var stateNames = []stateName{
	{"new hampshire", "NH"}, {"new jersey", "NJ"}, {"new mexico", "NM"},
	{"new york", "NY"}, {"north carolina", "NC"}, {"north dakota", "ND"},
	{"rhode island", "RI"}, {"south carolina", "SC"}, {"south dakota", "SD"},
	{"west virginia", "WV"},
	{"alabama", "AL"}, {"alaska", "AK"}, {"arizona", "AZ"},
	{"arkansas", "AR"}, {"california", "CA"}, {"colorado", "CO"},
	{"connecticut", "CT"}, {"delaware", "DE"}, {"florida", "FL"},
	{"georgia", "GA"}, {"hawaii", "HI"}, {"idaho", "ID"},
	{"illinois", "IL"}, {"indiana", "IN"}, {"iowa", "IA"},
	{"kansas", "KS"}, {"kentucky", "KY"}, {"louisiana", "LA"},
	{"maine", "ME"}, {"maryland", "MD"}, {"massachusetts", "MA"},
	{"michigan", "MI"}, {"minnesota", "MN"}, {"mississippi", "MS"},
	{"missouri", "MO"}, {"montana", "MT"}, {"nebraska", "NE"},
	{"nevada", "NV"}, {"ohio", "OH"}, {"oklahoma", "OK"},
	{"oregon", "OR"}, {"pennsylvania", "PA"}, {"tennessee", "TN"},
	{"texas", "TX"}, {"utah", "UT"}, {"vermont", "VT"},
	{"virginia", "VA"}, {"washington", "WA"}, {"wisconsin", "WI"},
	{"wyoming", "WY"},
}

var wordPattern = regexp.MustCompile(`\b([a-z]{2})\b`)

// FallbackExtract applies regex heuristics: a 5-digit zip wins, then a
// full state name, then a bare two-letter abbreviation. Returns nil when
// nothing matches.
func FallbackExtract(question string) *Location {
	if m := zipPattern.FindStringSubmatch(question); m != nil {
		return &Location{ZipCode: m[1], Type: "zip_code"}
	}

	lower := strings.ToLower(question)
	for _, s := range stateNames {
		if strings.Contains(lower, s.name) {
			return &Location{State: s.code, Type: "state"}
		}
	}

	for _, m := range wordPattern.FindAllStringSubmatch(lower, -1) {
		if stateAbbrevs[m[1]] {
			return &Location{State: strings.ToUpper(m[1]), Type: "state"}
		}
	}
	return nil
}
