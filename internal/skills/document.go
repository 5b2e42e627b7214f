package skills

import "time"

// State is the lifecycle state of a skill document. Built-in skills are
// created at startup and never transition; learned skills move
// pending→approved or pending→rejected exactly once.
type State string

const (
	StateBuiltIn  State = "built-in"
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

// Document is one named block of instruction text plus its metadata.
// The body contributes prompt text only; skills never execute anything.
type Document struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description" yaml:"description"`
	Body            string    `json:"body" yaml:"-"`
	State           State     `json:"state" yaml:"state"`
	SourceTicketIDs []string  `json:"source_ticket_ids,omitempty" yaml:"source_ticket_ids,omitempty"`
	GeneratedAt     time.Time `json:"generated_at,omitempty" yaml:"generated_at,omitempty"`
	ApprovedAt      time.Time `json:"approved_at,omitempty" yaml:"approved_at,omitempty"`
}
