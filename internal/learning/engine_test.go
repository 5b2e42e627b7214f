package learning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/opsdesk/triagent/internal/llm"
	"github.com/opsdesk/triagent/internal/parser"
	"github.com/opsdesk/triagent/internal/processor"
	"github.com/opsdesk/triagent/internal/skills"
	"github.com/opsdesk/triagent/internal/ticket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClient struct {
	response string
	err      error
	systems  []string
	users    []string
}

func (f *fakeClient) Complete(ctx context.Context, system, user string, opts llm.Options) (string, error) {
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type memStore struct {
	saved []skills.Document
	err   error
}

func (m *memStore) SavePending(doc skills.Document) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, doc)
	return nil
}

func mismatch(id, dimension string) processor.Result {
	r := processor.Result{
		TicketID: id,
		Ticket: ticket.Ticket{
			ID:          id,
			Title:       "Printer offline on floor 3",
			Description: "Shared printer shows offline after the firmware update.",
		},
		Prediction: &parser.Prediction{
			Category:   "Service Request",
			Routing:    "Service Desk",
			Resolution: "Reinstall drivers",
			Confidence: 0.8,
		},
		State: processor.StateDone,
	}
	wrong := false
	switch dimension {
	case "category":
		r.Ticket.ExpectedCategory = "Incident"
		r.CategoryCorrect = &wrong
	case "routing":
		r.Ticket.ExpectedRouting = "Field Services"
		r.RoutingCorrect = &wrong
	}
	return r
}

const draftResponse = `{"skill_name":"printer-incidents","description":"Printer outages after updates are incidents","patterns":["printer offline","after firmware update"],"rules":["Classify printer outages as Incident, not Service Request"]}`

func TestAnalyze_SavesPendingProposal(t *testing.T) {
	client := &fakeClient{response: draftResponse}
	store := &memStore{}
	e := NewEngine(client, store, nil, llm.Options{}, discardLogger())

	ids := e.Analyze(context.Background(), []processor.Result{mismatch("TKT-0001", "category")})
	if len(ids) != 1 {
		t.Fatalf("proposal ids: got %d, want 1", len(ids))
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved proposals: got %d, want 1", len(store.saved))
	}

	doc := store.saved[0]
	if doc.ID != ids[0] {
		t.Errorf("returned id %q does not match saved doc %q", ids[0], doc.ID)
	}
	if !strings.HasPrefix(doc.ID, "category-") {
		t.Errorf("proposal id should carry its dimension: %q", doc.ID)
	}
	if doc.Name != "printer-incidents" {
		t.Errorf("name: got %q", doc.Name)
	}
	if len(doc.SourceTicketIDs) != 1 || doc.SourceTicketIDs[0] != "TKT-0001" {
		t.Errorf("source tickets: %v", doc.SourceTicketIDs)
	}
	if !strings.Contains(doc.Body, "Classify printer outages as Incident") {
		t.Error("body must carry the drafted rules")
	}
	if !strings.Contains(doc.Body, "TKT-0001") {
		t.Error("body must reference the source mistakes")
	}
}

func TestAnalyze_OneProposalPerDimension(t *testing.T) {
	client := &fakeClient{response: draftResponse}
	store := &memStore{}
	e := NewEngine(client, store, nil, llm.Options{}, discardLogger())

	results := []processor.Result{
		mismatch("TKT-0001", "category"),
		mismatch("TKT-0002", "category"),
		mismatch("TKT-0003", "routing"),
	}
	ids := e.Analyze(context.Background(), results)
	if len(ids) != 2 {
		t.Fatalf("proposal ids: got %d, want 2 (one per dimension)", len(ids))
	}
	if len(client.users) != 2 {
		t.Fatalf("model calls: got %d, want 2", len(client.users))
	}
	// The category draft should show both category mistakes.
	if !strings.Contains(client.users[0], "TKT-0001") || !strings.Contains(client.users[0], "TKT-0002") {
		t.Error("category draft prompt should include every category mistake")
	}
}

func TestAnalyze_ModelFailureIsBestEffort(t *testing.T) {
	client := &fakeClient{err: errors.New("model unavailable")}
	store := &memStore{}
	e := NewEngine(client, store, nil, llm.Options{}, discardLogger())

	ids := e.Analyze(context.Background(), []processor.Result{mismatch("TKT-0001", "category")})
	if len(ids) != 0 {
		t.Errorf("no proposals expected on model failure, got %v", ids)
	}
	if len(store.saved) != 0 {
		t.Errorf("nothing should be saved on model failure")
	}
}

func TestAnalyze_RejectsDraftWithoutRules(t *testing.T) {
	client := &fakeClient{response: `{"skill_name":"x","description":"y","patterns":[],"rules":[]}`}
	store := &memStore{}
	e := NewEngine(client, store, nil, llm.Options{}, discardLogger())

	ids := e.Analyze(context.Background(), []processor.Result{mismatch("TKT-0001", "routing")})
	if len(ids) != 0 {
		t.Errorf("ruleless draft must be discarded, got %v", ids)
	}
}

func TestAnalyze_ToleratesProseAroundDraft(t *testing.T) {
	client := &fakeClient{response: "Here is the insight:\n" + draftResponse + "\nHope that helps."}
	store := &memStore{}
	e := NewEngine(client, store, nil, llm.Options{}, discardLogger())

	ids := e.Analyze(context.Background(), []processor.Result{mismatch("TKT-0001", "category")})
	if len(ids) != 1 {
		t.Fatalf("proposal ids: got %d, want 1", len(ids))
	}
}

func TestAnalyze_DedupesSourceTicketIDs(t *testing.T) {
	client := &fakeClient{response: draftResponse}
	store := &memStore{}
	e := NewEngine(client, store, nil, llm.Options{}, discardLogger())

	r := mismatch("TKT-0001", "category")
	ids := e.Analyze(context.Background(), []processor.Result{r, r})
	if len(ids) != 1 {
		t.Fatalf("proposal ids: got %d, want 1", len(ids))
	}
	if got := store.saved[0].SourceTicketIDs; len(got) != 1 {
		t.Errorf("source tickets should be deduplicated: %v", got)
	}
}

func TestFailurePrompt_CapsExamples(t *testing.T) {
	var failures []processor.Result
	for i := 0; i < 9; i++ {
		r := mismatch(fmt.Sprintf("TKT-%04d", i), "category")
		failures = append(failures, r)
	}

	prompt := failurePrompt("category", failures)
	if !strings.Contains(prompt, "9 category mistakes") {
		t.Error("prompt should report the true mistake count")
	}
	if !strings.Contains(prompt, "TKT-0004") {
		t.Error("fifth example should be shown")
	}
	if strings.Contains(prompt, "TKT-0005") {
		t.Error("examples beyond the cap should be dropped")
	}
}

func TestFailurePrompt_ShowsPredictionAndCorrection(t *testing.T) {
	r := mismatch("TKT-0042", "routing")
	prompt := failurePrompt("routing", []processor.Result{r})

	for _, want := range []string{"TKT-0042", "Service Desk", "Field Services"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestNewProposalID_Format(t *testing.T) {
	id := newProposalID("category")
	if !strings.HasPrefix(id, "category-") {
		t.Fatalf("id: %q", id)
	}
	suffix := strings.TrimPrefix(id, "category-")
	if len(suffix) != 8 {
		t.Errorf("suffix should be 8 hex chars, got %q", suffix)
	}
	if strings.Trim(suffix, "0123456789abcdef") != "" {
		t.Errorf("suffix not hex: %q", suffix)
	}
}
