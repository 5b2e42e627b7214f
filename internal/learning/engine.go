// Package learning turns triage mistakes into skill proposals. The
// engine groups mismatched results by dimension, asks the model to
// generalize an insight from each group, and saves the rendered skill as
// a pending proposal for human review. Nothing the engine produces
// enters a prompt until a reviewer approves it.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/opsdesk/triagent/internal/llm"
	"github.com/opsdesk/triagent/internal/parser"
	"github.com/opsdesk/triagent/internal/processor"
	"github.com/opsdesk/triagent/internal/skills"
)

// ProposalStore is the slice of the skill store the engine needs.
type ProposalStore interface {
	SavePending(doc skills.Document) error
}

// Publisher emits skill lifecycle events. May be nil.
type Publisher interface {
	Publish(subject string, data any) error
}

// Engine drafts skill proposals from scored results.
type Engine struct {
	llm    llm.Client
	store  ProposalStore
	events Publisher
	logger *slog.Logger
	opts   llm.Options
}

// NewEngine creates a learning engine. events may be nil.
func NewEngine(client llm.Client, store ProposalStore, events Publisher, opts llm.Options, logger *slog.Logger) *Engine {
	return &Engine{
		llm:    client,
		store:  store,
		events: events,
		logger: logger,
		opts:   opts,
	}
}

// draft is the model's answer when asked to generalize from mistakes.
type draft struct {
	SkillName   string   `json:"skill_name"`
	Description string   `json:"description"`
	Patterns    []string `json:"patterns"`
	Rules       []string `json:"rules"`
}

// Analyze drafts at most one proposal per dimension (category, routing)
// from the mismatched results it is given. Drafting is best-effort: a
// failure on one dimension is logged and the other still proceeds.
// Returns the ids of proposals that were saved.
func (e *Engine) Analyze(ctx context.Context, results []processor.Result) []string {
	groups := map[string][]processor.Result{}
	for _, r := range results {
		if r.CategoryCorrect != nil && !*r.CategoryCorrect {
			groups["category"] = append(groups["category"], r)
		}
		if r.RoutingCorrect != nil && !*r.RoutingCorrect {
			groups["routing"] = append(groups["routing"], r)
		}
	}

	var ids []string
	for _, dimension := range []string{"category", "routing"} {
		failures := groups[dimension]
		if len(failures) == 0 {
			continue
		}
		doc, err := e.propose(ctx, dimension, failures)
		if err != nil {
			e.logger.Warn("skill proposal failed", "dimension", dimension, "mistakes", len(failures), "error", err)
			continue
		}
		ids = append(ids, doc.ID)

		if e.events != nil {
			if err := e.events.Publish("triage.skill.proposed", map[string]any{
				"skill_id":  doc.ID,
				"name":      doc.Name,
				"dimension": dimension,
				"tickets":   doc.SourceTicketIDs,
			}); err != nil {
				e.logger.Warn("failed to publish skill proposed", "skill_id", doc.ID, "error", err)
			}
		}
	}
	return ids
}

// propose asks the model for an insight over one dimension's failures
// and persists the rendered proposal.
func (e *Engine) propose(ctx context.Context, dimension string, failures []processor.Result) (skills.Document, error) {
	system := fmt.Sprintf(draftSystemPrompt, dimension)
	user := failurePrompt(dimension, failures)

	raw, err := e.llm.Complete(ctx, system, user, e.opts)
	if err != nil {
		return skills.Document{}, fmt.Errorf("draft %s skill: %w", dimension, err)
	}

	span, ok := parser.FirstJSONObject(raw)
	if !ok {
		return skills.Document{}, fmt.Errorf("draft %s skill: no JSON object in response", dimension)
	}
	var d draft
	if err := json.Unmarshal([]byte(span), &d); err != nil {
		return skills.Document{}, fmt.Errorf("draft %s skill: %w", dimension, err)
	}
	if d.SkillName == "" || len(d.Rules) == 0 {
		return skills.Document{}, fmt.Errorf("draft %s skill: response missing skill_name or rules", dimension)
	}

	doc := skills.Document{
		ID:              newProposalID(dimension),
		Name:            d.SkillName,
		Description:     d.Description,
		Body:            renderBody(dimension, d, failures),
		SourceTicketIDs: ticketIDs(failures),
	}
	if err := e.store.SavePending(doc); err != nil {
		return skills.Document{}, fmt.Errorf("save proposal %s: %w", doc.ID, err)
	}

	e.logger.Info("skill proposed",
		"skill_id", doc.ID,
		"name", doc.Name,
		"dimension", dimension,
		"mistakes", len(failures),
	)
	return doc, nil
}

// maxDraftExamples bounds the mistakes shown per draft so a large batch
// cannot blow out the prompt.
const maxDraftExamples = 5

// failurePrompt lists the mistakes the model should generalize from.
func failurePrompt(dimension string, failures []processor.Result) string {
	shown := failures
	if len(shown) > maxDraftExamples {
		shown = shown[:maxDraftExamples]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The assistant made %d %s mistakes:\n\n", len(failures), dimension)
	for _, r := range shown {
		predicted, expected := dimensionValues(dimension, r)
		fmt.Fprintf(&b, draftFailureEntry,
			r.TicketID, r.Ticket.Title, truncate(r.Ticket.Description, 300),
			dimension, predicted, dimension, expected)
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func dimensionValues(dimension string, r processor.Result) (predicted, expected string) {
	switch dimension {
	case "category":
		return r.Prediction.Category, r.Ticket.ExpectedCategory
	case "routing":
		return r.Prediction.Routing, r.Ticket.ExpectedRouting
	}
	return "", ""
}

// renderBody produces the markdown document a reviewer sees and, once
// approved, the composer includes in prompts.
func renderBody(dimension string, d draft, failures []processor.Result) string {
	var mistakes strings.Builder
	for _, r := range failures {
		predicted, expected := dimensionValues(dimension, r)
		fmt.Fprintf(&mistakes, "- %s: predicted %q, correct answer was %q\n", r.TicketID, predicted, expected)
	}
	return fmt.Sprintf(skillBodyTemplate,
		d.SkillName,
		d.Description,
		d.SkillName,
		d.Description,
		bulletList(d.Patterns),
		bulletList(d.Rules),
		strings.TrimRight(mistakes.String(), "\n"),
		dimension,
	)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none identified)"
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}

func ticketIDs(failures []processor.Result) []string {
	seen := map[string]bool{}
	var ids []string
	for _, r := range failures {
		if !seen[r.TicketID] {
			seen[r.TicketID] = true
			ids = append(ids, r.TicketID)
		}
	}
	return ids
}

func newProposalID(dimension string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%x", dimension, id[:4])
}
