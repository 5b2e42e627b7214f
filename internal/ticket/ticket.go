package ticket

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Ticket is one unit of support work as uploaded. The Expected* fields
// carry ground-truth labels when the batch is used for evaluation;
// they are optional and absence means correctness is unknown, not wrong.
type Ticket struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Reporter        string   `json:"reporter,omitempty"`
	UrgencyLevel    string   `json:"urgency_level,omitempty"`
	AffectedSystems []string `json:"affected_systems,omitempty"`

	ExpectedCategory   string `json:"expected_category,omitempty"`
	ExpectedRouting    string `json:"expected_routing,omitempty"`
	ExpectedResolution string `json:"expected_resolution,omitempty"`
}

// ValidationError reports a malformed upload. The whole batch is rejected;
// nothing is partially processed.
type ValidationError struct {
	TicketID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.TicketID == "" {
		return fmt.Sprintf("invalid batch: %s", e.Reason)
	}
	return fmt.Sprintf("invalid ticket %s: %s %s", e.TicketID, e.Field, e.Reason)
}

// jsonUpload accepts both a bare array and an object wrapping it.
type jsonUpload struct {
	Tickets []Ticket `json:"tickets"`
}

// DecodeBatch parses an uploaded ticket dataset. format is "json" or "csv";
// callers typically derive it from the upload filename.
func DecodeBatch(r io.Reader, format string) ([]Ticket, error) {
	switch strings.ToLower(format) {
	case "json":
		return decodeJSON(r)
	case "csv":
		return decodeCSV(r)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported format %q, want json or csv", format)}
	}
}

func decodeJSON(r io.Reader) ([]Ticket, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	var tickets []Ticket
	if err := json.Unmarshal(data, &tickets); err == nil {
		return tickets, nil
	}

	var wrapped jsonUpload
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return wrapped.Tickets, nil
}

// csvAliases maps accepted header names onto canonical fields. Exported
// datasets from common desks use subject/body and assigned_team.
var csvAliases = map[string]string{
	"id":                  "id",
	"title":               "title",
	"subject":             "title",
	"description":         "description",
	"body":                "description",
	"reporter":            "reporter",
	"urgency":             "urgency_level",
	"urgency_level":       "urgency_level",
	"affected_systems":    "affected_systems",
	"expected_category":   "expected_category",
	"category":            "expected_category",
	"actual_category":     "expected_category",
	"expected_routing":    "expected_routing",
	"routing":             "expected_routing",
	"actual_routing":      "expected_routing",
	"assigned_team":       "expected_routing",
	"expected_resolution": "expected_resolution",
	"resolution":          "expected_resolution",
	"actual_resolution":   "expected_resolution",
}

func decodeCSV(r io.Reader) ([]Ticket, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid CSV: %v", err)}
	}

	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := csvAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var tickets []Ticket
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("invalid CSV: %v", err)}
		}

		t := Ticket{
			ID:                 field(row, "id"),
			Title:              field(row, "title"),
			Description:        field(row, "description"),
			Reporter:           field(row, "reporter"),
			UrgencyLevel:       field(row, "urgency_level"),
			ExpectedCategory:   field(row, "expected_category"),
			ExpectedRouting:    field(row, "expected_routing"),
			ExpectedResolution: field(row, "expected_resolution"),
		}
		if systems := field(row, "affected_systems"); systems != "" {
			for _, s := range strings.Split(systems, ";") {
				if s = strings.TrimSpace(s); s != "" {
					t.AffectedSystems = append(t.AffectedSystems, s)
				}
			}
		}
		if t.ID == "" {
			t.ID = fmt.Sprintf("TKT-%04d", len(tickets)+1)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// ValidateBatch enforces the upload contract: every ticket has an id,
// title and description, and ids are unique within the batch. A single
// violation rejects the whole batch.
func ValidateBatch(tickets []Ticket) error {
	if len(tickets) == 0 {
		return &ValidationError{Reason: "no tickets in upload"}
	}

	seen := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		switch {
		case strings.TrimSpace(t.ID) == "":
			return &ValidationError{Field: "id", Reason: "must not be empty"}
		case strings.TrimSpace(t.Title) == "":
			return &ValidationError{TicketID: t.ID, Field: "title", Reason: "must not be empty"}
		case strings.TrimSpace(t.Description) == "":
			return &ValidationError{TicketID: t.ID, Field: "description", Reason: "must not be empty"}
		}
		if seen[t.ID] {
			return &ValidationError{TicketID: t.ID, Field: "id", Reason: "duplicated within batch"}
		}
		seen[t.ID] = true
	}
	return nil
}
