package processor

import "strings"

// stopwords excluded from resolution keyword tokens.
var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "were": true, "been": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true, "can": true,
	"need": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "you": true, "they": true, "them": true, "their": true,
	"please": true, "try": true, "check": true,
}

// labelsMatch compares a predicted label against the expected one:
// case-insensitive exact match, or containment in either direction
// ("Network" matches "Network Team").
func labelsMatch(predicted, expected string) bool {
	p := strings.ToLower(strings.TrimSpace(predicted))
	e := strings.ToLower(strings.TrimSpace(expected))
	if p == "" || e == "" {
		return p == e
	}
	return p == e || strings.Contains(p, e) || strings.Contains(e, p)
}

// resolutionMatch is the advisory resolution heuristic: the prediction
// counts as correct when it contains at least one keyword token of the
// expected resolution. Keyword tokens are lowercased alphanumeric words
// longer than two characters that are not stopwords. This is an
// approximate signal, not an exact correctness oracle.
func resolutionMatch(predicted, expected string) bool {
	p := strings.ToLower(predicted)
	for _, token := range keywordTokens(expected) {
		if strings.Contains(p, token) {
			return true
		}
	}
	return false
}

func keywordTokens(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		var b strings.Builder
		for _, r := range word {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		token := b.String()
		if len(token) > 2 && !stopwords[token] {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// score fills the correctness fields of a result from the ticket's
// expected labels. Dimensions without an expected value stay nil.
func score(r *Result) {
	t := r.Ticket
	p := r.Prediction

	if t.ExpectedCategory != "" {
		r.CategoryCorrect = boolPtr(labelsMatch(p.Category, t.ExpectedCategory))
	}
	if t.ExpectedRouting != "" {
		r.RoutingCorrect = boolPtr(labelsMatch(p.Routing, t.ExpectedRouting))
	}
	if t.ExpectedResolution != "" {
		r.ResolutionCorrect = boolPtr(resolutionMatch(p.Resolution, t.ExpectedResolution))
	}
}

// accuracy computes per-dimension correct ratios over tickets with a
// known expectation; unknowns never enter the denominator.
func accuracy(results []Result) map[string]float64 {
	type tally struct{ correct, known int }
	tallies := map[string]*tally{
		"category":   {},
		"routing":    {},
		"resolution": {},
	}

	count := func(t *tally, verdict *bool) {
		if verdict == nil {
			return
		}
		t.known++
		if *verdict {
			t.correct++
		}
	}

	for _, r := range results {
		count(tallies["category"], r.CategoryCorrect)
		count(tallies["routing"], r.RoutingCorrect)
		count(tallies["resolution"], r.ResolutionCorrect)
	}

	out := make(map[string]float64, len(tallies))
	for dim, t := range tallies {
		if t.known == 0 {
			out[dim] = 0
			continue
		}
		out[dim] = float64(t.correct) / float64(t.known)
	}
	return out
}

func boolPtr(v bool) *bool { return &v }
