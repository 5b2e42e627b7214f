package ticket

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeBatch_JSONArray(t *testing.T) {
	payload := `[
		{"id": "TKT-1", "title": "VPN not connecting", "description": "client times out", "expected_category": "Incident", "expected_routing": "Network Team"},
		{"id": "TKT-2", "title": "Need new laptop", "description": "starter on Monday", "affected_systems": ["procurement"]}
	]`

	tickets, err := DecodeBatch(strings.NewReader(payload), "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}
	if tickets[0].ExpectedRouting != "Network Team" {
		t.Errorf("expected routing label, got %q", tickets[0].ExpectedRouting)
	}
	if len(tickets[1].AffectedSystems) != 1 || tickets[1].AffectedSystems[0] != "procurement" {
		t.Errorf("unexpected affected systems: %v", tickets[1].AffectedSystems)
	}
}

func TestDecodeBatch_JSONWrappedObject(t *testing.T) {
	payload := `{"tickets": [{"id": "TKT-1", "title": "a", "description": "b"}]}`

	tickets, err := DecodeBatch(strings.NewReader(payload), "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != "TKT-1" {
		t.Fatalf("unexpected tickets: %+v", tickets)
	}
}

func TestDecodeBatch_CSVHeaderAliases(t *testing.T) {
	payload := "id,subject,body,assigned_team,category\n" +
		"TKT-9,Printer jam,paper stuck in tray 2,Desktop Support,Incident\n"

	tickets, err := DecodeBatch(strings.NewReader(payload), "csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(tickets))
	}
	got := tickets[0]
	if got.Title != "Printer jam" {
		t.Errorf("subject alias not applied, got title %q", got.Title)
	}
	if got.Description != "paper stuck in tray 2" {
		t.Errorf("body alias not applied, got description %q", got.Description)
	}
	if got.ExpectedRouting != "Desktop Support" {
		t.Errorf("assigned_team alias not applied, got %q", got.ExpectedRouting)
	}
	if got.ExpectedCategory != "Incident" {
		t.Errorf("category alias not applied, got %q", got.ExpectedCategory)
	}
}

func TestDecodeBatch_CSVMissingIDGetsGenerated(t *testing.T) {
	payload := "title,description\nVPN down,cannot connect\n"

	tickets, err := DecodeBatch(strings.NewReader(payload), "csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tickets[0].ID != "TKT-0001" {
		t.Errorf("expected generated id TKT-0001, got %q", tickets[0].ID)
	}
}

func TestDecodeBatch_UnsupportedFormat(t *testing.T) {
	_, err := DecodeBatch(strings.NewReader("x"), "xml")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateBatch(t *testing.T) {
	valid := Ticket{ID: "TKT-1", Title: "t", Description: "d"}

	tests := []struct {
		name    string
		tickets []Ticket
		wantErr bool
	}{
		{"valid", []Ticket{valid}, false},
		{"empty batch", nil, true},
		{"missing id", []Ticket{{Title: "t", Description: "d"}}, true},
		{"missing title", []Ticket{{ID: "TKT-1", Description: "d"}}, true},
		{"missing description", []Ticket{{ID: "TKT-1", Title: "t"}}, true},
		{"duplicate ids", []Ticket{valid, {ID: "TKT-1", Title: "x", Description: "y"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatch(tt.tickets)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestValidateBatch_DuplicateRejectsWholeBatch(t *testing.T) {
	tickets := []Ticket{
		{ID: "TKT-1", Title: "a", Description: "b"},
		{ID: "TKT-2", Title: "c", Description: "d"},
		{ID: "TKT-1", Title: "e", Description: "f"},
	}
	if err := ValidateBatch(tickets); err == nil {
		t.Fatal("expected duplicate id to reject the batch")
	}
}
