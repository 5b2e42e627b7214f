// Package parser extracts a structured prediction from raw model output.
// Models are not guaranteed to emit pure JSON, so extraction tolerates
// surrounding prose and markdown fences: the first balanced {...} span
// that parses as JSON wins.
package parser

import (
	"encoding/json"
	"fmt"
)

// Prediction is the model's triage answer for one ticket. Derived fresh
// per ticket per run and never mutated afterwards.
type Prediction struct {
	Category   string  `json:"predicted_category"`
	Routing    string  `json:"predicted_routing"`
	Resolution string  `json:"predicted_resolution"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ParseError reports model output that could not be interpreted.
type ParseError struct {
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("parse model response: %s", e.Reason)
	}
	return fmt.Sprintf("parse model response: %s (response: %s)", e.Reason, e.Snippet)
}

// rawPrediction accepts the field aliases different prompt revisions and
// models produce for the same values.
type rawPrediction struct {
	Category            string `json:"category"`
	PredictedCategory   string `json:"predicted_category"`
	Routing             string `json:"routing"`
	PredictedRouting    string `json:"predicted_routing"`
	PrimaryTeam         string `json:"primary_team"`
	Resolution          string `json:"resolution"`
	PredictedResolution string `json:"predicted_resolution"`
	SuggestedResolution string `json:"suggested_resolution"`

	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

const defaultConfidence = 0.5

// Parse extracts a Prediction from raw model text. It fails with a
// *ParseError when no balanced JSON object exists in the text or when
// any of category, routing or resolution is absent. Confidence defaults
// to 0.5 when missing or outside [0,1].
func Parse(raw string) (Prediction, error) {
	span, ok := FirstJSONObject(raw)
	if !ok {
		return Prediction{}, &ParseError{Reason: "no JSON object found", Snippet: snippet(raw)}
	}

	var rp rawPrediction
	if err := json.Unmarshal([]byte(span), &rp); err != nil {
		return Prediction{}, &ParseError{Reason: err.Error(), Snippet: snippet(span)}
	}

	p := Prediction{
		Category:   firstNonEmpty(rp.PredictedCategory, rp.Category),
		Routing:    firstNonEmpty(rp.PredictedRouting, rp.Routing, rp.PrimaryTeam),
		Resolution: firstNonEmpty(rp.PredictedResolution, rp.Resolution, rp.SuggestedResolution),
		Confidence: defaultConfidence,
		Reasoning:  rp.Reasoning,
	}
	if rp.Confidence != nil && *rp.Confidence >= 0 && *rp.Confidence <= 1 {
		p.Confidence = *rp.Confidence
	}

	switch {
	case p.Category == "":
		return Prediction{}, &ParseError{Reason: "missing category", Snippet: snippet(span)}
	case p.Routing == "":
		return Prediction{}, &ParseError{Reason: "missing routing", Snippet: snippet(span)}
	case p.Resolution == "":
		return Prediction{}, &ParseError{Reason: "missing resolution", Snippet: snippet(span)}
	}
	return p, nil
}

// FirstJSONObject returns the first balanced, valid {...} span in text.
// Brace counting is string-aware so braces inside JSON strings do not
// unbalance the scan. Spans that balance but fail to parse are skipped
// and the scan continues from the next opening brace.
func FirstJSONObject(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				if inString {
					escaped = true
				}
			case '"':
				inString = !inString
			case '{':
				if !inString {
					depth++
				}
			case '}':
				if !inString {
					depth--
					if depth == 0 {
						span := text[start : i+1]
						if json.Valid([]byte(span)) {
							return span, true
						}
						i = len(text) // abandon this start position
					}
				}
			}
		}
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func snippet(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
