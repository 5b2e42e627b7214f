// Package processor orchestrates the triage pipeline: it snapshots the
// active skill set, fans tickets out to a bounded worker pool, scores
// predictions against expected labels and hands mismatches to the
// learning engine.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/triagent/internal/llm"
	"github.com/opsdesk/triagent/internal/parser"
	"github.com/opsdesk/triagent/internal/prompt"
	"github.com/opsdesk/triagent/internal/skills"
	"github.com/opsdesk/triagent/internal/ticket"
)

// SkillSource yields the skill documents composed into prompts.
type SkillSource interface {
	ListActive() ([]skills.Document, error)
}

// Learner drafts skill proposals from mismatched results. Implementations
// are best-effort: they log their own failures and return whatever
// proposal ids they managed to create.
type Learner interface {
	Analyze(ctx context.Context, results []Result) []string
}

// Publisher emits pipeline events. A nil Publisher is valid and drops
// everything.
type Publisher interface {
	Publish(subject string, data any) error
}

// Processor runs ticket batches against the model.
type Processor struct {
	skills  SkillSource
	llm     llm.Client
	learner Learner
	events  Publisher
	logger  *slog.Logger

	workers int
	opts    llm.Options
}

// New creates a Processor. learner and events may be nil. workers bounds
// concurrent model calls; values below 1 are treated as 1.
func New(source SkillSource, client llm.Client, learner Learner, events Publisher, workers int, opts llm.Options, logger *slog.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		skills:  source,
		llm:     client,
		learner: learner,
		events:  events,
		logger:  logger,
		workers: workers,
		opts:    opts,
	}
}

// Run processes a batch under the given run id. Tickets are evaluated
// independently; a model or parse failure on one ticket marks only that
// ticket failed. The summary lists results in input order regardless of
// completion order.
func (p *Processor) Run(ctx context.Context, runID string, tickets []ticket.Ticket) (*Summary, error) {
	if err := ticket.ValidateBatch(tickets); err != nil {
		return nil, err
	}

	// Snapshot the skill set once so approve/reject during the run cannot
	// produce a mixed prompt, and no store lock is held during model calls.
	active, err := p.skills.ListActive()
	if err != nil {
		return nil, fmt.Errorf("load active skills: %w", err)
	}
	systemPrompt := prompt.System(active)

	startedAt := time.Now().UTC()
	p.logger.Info("run started",
		"run_id", runID,
		"tickets", len(tickets),
		"skills", len(active),
		"workers", p.workers,
	)

	// Index-addressed results keep output aligned with input order.
	results := make([]Result, len(tickets))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for i, t := range tickets {
		wg.Add(1)
		go func(idx int, t ticket.Ticket) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = p.processTicket(ctx, t, systemPrompt)
		}(i, t)
	}
	wg.Wait()

	summary := &Summary{
		RunID:        runID,
		TotalTickets: len(tickets),
		Results:      results,
		Accuracy:     accuracy(results),
		StartedAt:    startedAt,
	}

	// Learning is best-effort and never blocks or corrupts the run.
	if p.learner != nil {
		if failures := mismatches(results); len(failures) > 0 {
			summary.ProposedSkillIDs = p.learner.Analyze(ctx, failures)
		}
	}

	summary.CompletedAt = time.Now().UTC()

	if p.events != nil {
		if err := p.events.Publish("triage.run.completed", map[string]any{
			"run_id":          runID,
			"total_tickets":   summary.TotalTickets,
			"accuracy":        summary.Accuracy,
			"proposed_skills": len(summary.ProposedSkillIDs),
		}); err != nil {
			p.logger.Warn("failed to publish run completed", "run_id", runID, "error", err)
		}
	}

	p.logger.Info("run completed",
		"run_id", runID,
		"tickets", summary.TotalTickets,
		"category_accuracy", summary.Accuracy["category"],
		"routing_accuracy", summary.Accuracy["routing"],
		"proposed_skills", len(summary.ProposedSkillIDs),
	)
	return summary, nil
}

// processTicket drives one ticket through
// pending→composed→predicted→scored→done, or →failed on a model or
// parse error.
func (p *Processor) processTicket(ctx context.Context, t ticket.Ticket, systemPrompt string) Result {
	result := Result{TicketID: t.ID, Ticket: t, State: StatePending}

	userPrompt := prompt.User(t)
	result.State = StateComposed

	raw, err := p.llm.Complete(ctx, systemPrompt, userPrompt, p.opts)
	if err != nil {
		p.logger.Warn("model call failed", "ticket_id", t.ID, "error", err)
		result.State = StateFailed
		result.Error = err.Error()
		return result
	}

	pred, err := parser.Parse(raw)
	if err != nil {
		p.logger.Warn("unparseable model response", "ticket_id", t.ID, "error", err)
		result.State = StateFailed
		result.Error = err.Error()
		return result
	}
	result.Prediction = &pred
	result.State = StatePredicted

	score(&result)
	result.State = StateScored

	result.State = StateDone
	return result
}

// mismatches selects results whose category or routing verdict is an
// explicit false. Resolution misses alone never trigger learning; that
// verdict is heuristic and too noisy to learn from.
func mismatches(results []Result) []Result {
	var out []Result
	for _, r := range results {
		categoryWrong := r.CategoryCorrect != nil && !*r.CategoryCorrect
		routingWrong := r.RoutingCorrect != nil && !*r.RoutingCorrect
		if categoryWrong || routingWrong {
			out = append(out, r)
		}
	}
	return out
}

// NewRunID mints a run identifier. Ids are assigned when a batch is
// uploaded, before any processing starts, so callers can poll status by
// the same id they got back from the upload.
func NewRunID() string {
	id := uuid.New()
	return fmt.Sprintf("run-%x", id[:4])
}
