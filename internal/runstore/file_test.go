package runstore

import (
	"context"
	"errors"
	"testing"

	"github.com/opsdesk/triagent/internal/processor"
	"github.com/opsdesk/triagent/internal/ticket"
)

func TestFileStore_TicketsRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	tickets := []ticket.Ticket{
		{ID: "TKT-0001", Title: "VPN down", Description: "cannot connect", ExpectedCategory: "Incident"},
		{ID: "TKT-0002", Title: "New laptop", Description: "onboarding request"},
	}
	if err := s.SaveTickets(ctx, "run-aabbccdd", tickets); err != nil {
		t.Fatalf("save tickets: %v", err)
	}

	got, err := s.GetTickets(ctx, "run-aabbccdd")
	if err != nil {
		t.Fatalf("get tickets: %v", err)
	}
	if len(got) != 2 || got[0].ID != "TKT-0001" || got[0].ExpectedCategory != "Incident" {
		t.Errorf("tickets did not round-trip: %+v", got)
	}
}

func TestFileStore_RecordLifecycle(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	rec := Record{RunID: "run-aabbccdd", Status: StatusUploaded}
	if err := s.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save record: %v", err)
	}

	rec.Status = StatusCompleted
	rec.Summary = &processor.Summary{
		RunID:        "run-aabbccdd",
		TotalTickets: 2,
		Accuracy:     map[string]float64{"category": 0.5, "routing": 1, "resolution": 0},
	}
	if err := s.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("update record: %v", err)
	}

	got, err := s.GetRecord(ctx, "run-aabbccdd")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status: got %q", got.Status)
	}
	if got.Summary == nil || got.Summary.TotalTickets != 2 {
		t.Errorf("summary did not survive: %+v", got.Summary)
	}
	if got.Summary.Accuracy["routing"] != 1 {
		t.Errorf("accuracy did not survive: %v", got.Summary.Accuracy)
	}
}

func TestFileStore_UnknownRun(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if _, err := s.GetRecord(ctx, "run-missing1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get record: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetTickets(ctx, "run-missing1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get tickets: got %v, want ErrNotFound", err)
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s1.SaveRecord(ctx, Record{RunID: "run-11223344", Status: StatusProcessing}); err != nil {
		t.Fatalf("save record: %v", err)
	}

	s2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	got, err := s2.GetRecord(ctx, "run-11223344")
	if err != nil {
		t.Fatalf("get record after reopen: %v", err)
	}
	if got.Status != StatusProcessing {
		t.Errorf("status after reopen: got %q", got.Status)
	}
}
