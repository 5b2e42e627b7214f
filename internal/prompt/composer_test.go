package prompt

import (
	"strings"
	"testing"

	"github.com/opsdesk/triagent/internal/skills"
	"github.com/opsdesk/triagent/internal/ticket"
)

func activeSet() []skills.Document {
	return []skills.Document{
		{ID: "ticket-parser", Name: "ticket-parser", Body: "Parse fields carefully.", State: skills.StateBuiltIn},
		{ID: "categorization", Name: "categorization", Body: "Incidents break things.", State: skills.StateBuiltIn},
		{ID: "routing", Name: "routing", Body: "Route by ownership.", State: skills.StateBuiltIn},
		{ID: "resolution", Name: "resolution", Body: "Suggest concrete steps.", State: skills.StateBuiltIn},
		{ID: "routing-ab12", Name: "email vs network", Body: "Mail-flow issues go to Email Support.", State: skills.StateApproved},
	}
}

func TestSystem_SectionOrderIsFixed(t *testing.T) {
	out := System(activeSet())

	sections := []string{
		"## Ticket Parsing Guidelines",
		"## Categorization Guidelines",
		"## Routing Guidelines",
		"## Resolution Guidelines",
		"## Supplementary Insights from Learned Skills",
	}
	pos := -1
	for _, s := range sections {
		i := strings.Index(out, s)
		if i < 0 {
			t.Fatalf("missing section %q", s)
		}
		if i < pos {
			t.Fatalf("section %q out of order", s)
		}
		pos = i
	}

	if !strings.Contains(out, "Mail-flow issues go to Email Support.") {
		t.Error("learned skill body missing from prompt")
	}
}

func TestSystem_Deterministic(t *testing.T) {
	set := activeSet()
	first := System(set)
	for i := 0; i < 10; i++ {
		if got := System(set); got != first {
			t.Fatal("System output varies between calls for the same skill set")
		}
	}
}

func TestSystem_NoLearnedSkillsOmitsSupplementarySection(t *testing.T) {
	out := System(activeSet()[:4])
	if strings.Contains(out, "Supplementary Insights") {
		t.Error("supplementary section present without learned skills")
	}
}

func TestUser_FieldsInsertedVerbatim(t *testing.T) {
	tk := ticket.Ticket{
		ID:              "TKT-1",
		Title:           "VPN not connecting",
		Description:     "client times out after upgrade",
		Reporter:        "jsmith",
		UrgencyLevel:    "High",
		AffectedSystems: []string{"vpn-gw-01", "radius"},
	}

	out := User(tk)
	for _, want := range []string{
		"**Ticket ID**: TKT-1",
		"**Title**: VPN not connecting",
		"**Description**: client times out after upgrade",
		"**Reporter**: jsmith",
		"**Urgency**: High",
		"**Affected Systems**: vpn-gw-01, radius",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in user prompt", want)
		}
	}
}

func TestUser_OptionalFieldsOmitted(t *testing.T) {
	out := User(ticket.Ticket{ID: "TKT-2", Title: "t", Description: "d"})
	if strings.Contains(out, "Reporter") || strings.Contains(out, "Urgency") || strings.Contains(out, "Affected Systems") {
		t.Errorf("optional field headers present for empty fields:\n%s", out)
	}
}
