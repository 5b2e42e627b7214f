// Package prompt composes the instruction text sent to the model. The
// output is deterministic for a given ticket and skill set: no
// timestamps, no randomness, fixed section order.
package prompt

import (
	"fmt"
	"strings"

	"github.com/opsdesk/triagent/internal/skills"
	"github.com/opsdesk/triagent/internal/ticket"
)

const preamble = `You are an ITSM (IT Service Management) agent specializing in ticket triage.
Analyze the support ticket and provide:
1. Category classification
2. Routing recommendation
3. Resolution suggestion

Respond ONLY with a JSON object in this exact format:
{
    "category": "Incident|Problem|Change Request|Service Request",
    "routing": "Team or group name",
    "resolution": "Suggested resolution or next steps",
    "confidence": 0.0-1.0,
    "reasoning": "Brief explanation of your decisions"
}`

// sectionTitles maps core skill ids to their prompt headings. The order
// of sections follows skills.BuiltinOrder, never map iteration.
var sectionTitles = map[string]string{
	"ticket-parser":  "Ticket Parsing Guidelines",
	"categorization": "Categorization Guidelines",
	"routing":        "Routing Guidelines",
	"resolution":     "Resolution Guidelines",
}

// System builds the system prompt from the active skill set. Built-in
// guidance sections come first in the declared order; approved learned
// skills are appended last as supplementary guidance. Pending skills
// must never reach this function; the skill store does not list them
// as active.
func System(active []skills.Document) string {
	var b strings.Builder
	b.WriteString(preamble)

	byID := make(map[string]skills.Document, len(active))
	var learned []skills.Document
	for _, doc := range active {
		if doc.State == skills.StateBuiltIn {
			byID[doc.ID] = doc
		} else {
			learned = append(learned, doc)
		}
	}

	for _, id := range skills.BuiltinOrder {
		doc, ok := byID[id]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n\n## %s\n%s", sectionTitles[id], strings.TrimSpace(doc.Body))
	}

	if len(learned) > 0 {
		b.WriteString("\n\n## Supplementary Insights from Learned Skills\n")
		b.WriteString("The following insights come from analyzing past incorrect predictions. ")
		b.WriteString("Use them as contextual guidance to inform your reasoning; the core guidelines above remain primary.\n")
		for _, doc := range learned {
			fmt.Fprintf(&b, "\n### %s\n%s", doc.Name, strings.TrimSpace(doc.Body))
		}
	}

	return b.String()
}

// User builds the per-ticket prompt. Ticket fields are inserted verbatim:
// no escaping is performed, so hostile ticket text can steer the model.
// That is a known limitation of the design, not something this layer
// tries to paper over.
func User(t ticket.Ticket) string {
	var b strings.Builder
	b.WriteString("Analyze the following ITSM ticket and provide category, routing, and resolution:\n\n")
	fmt.Fprintf(&b, "**Ticket ID**: %s\n", t.ID)
	fmt.Fprintf(&b, "**Title**: %s\n", t.Title)
	fmt.Fprintf(&b, "**Description**: %s\n", t.Description)
	if t.Reporter != "" {
		fmt.Fprintf(&b, "**Reporter**: %s\n", t.Reporter)
	}
	if t.UrgencyLevel != "" {
		fmt.Fprintf(&b, "**Urgency**: %s\n", t.UrgencyLevel)
	}
	if len(t.AffectedSystems) > 0 {
		fmt.Fprintf(&b, "**Affected Systems**: %s\n", strings.Join(t.AffectedSystems, ", "))
	}
	b.WriteString("\nProvide your analysis as JSON.")
	return b.String()
}
