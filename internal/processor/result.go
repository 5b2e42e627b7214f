package processor

import (
	"time"

	"github.com/opsdesk/triagent/internal/parser"
	"github.com/opsdesk/triagent/internal/ticket"
)

// State tracks a ticket through the per-ticket pipeline. Every ticket
// ends in exactly one of StateDone or StateFailed; a failed ticket never
// aborts its batch.
type State string

const (
	StatePending   State = "pending"
	StateComposed  State = "composed"
	StatePredicted State = "predicted"
	StateScored    State = "scored"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Result is the outcome of processing a single ticket. Correctness
// fields are nil ("unknown") when the ticket carries no expected value
// for that dimension, or when prediction failed entirely.
type Result struct {
	TicketID   string             `json:"ticket_id"`
	Ticket     ticket.Ticket      `json:"ticket"`
	Prediction *parser.Prediction `json:"prediction"`
	State      State              `json:"state"`
	Error      string             `json:"error,omitempty"`

	CategoryCorrect   *bool `json:"category_correct"`
	RoutingCorrect    *bool `json:"routing_correct"`
	ResolutionCorrect *bool `json:"resolution_correct"`
}

// Summary is the immutable snapshot of one processing run. Results are
// ordered exactly as the input tickets were, regardless of the order in
// which workers finished them.
type Summary struct {
	RunID        string             `json:"run_id"`
	TotalTickets int                `json:"total_tickets"`
	Results      []Result           `json:"results"`
	Accuracy     map[string]float64 `json:"accuracy"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  time.Time          `json:"completed_at"`

	ProposedSkillIDs []string `json:"proposed_skill_ids,omitempty"`
}
