// Package runstore persists uploaded ticket batches and completed run
// summaries. The file store is the default; the Postgres store is used
// when a database URL is configured.
package runstore

import (
	"context"
	"errors"

	"github.com/opsdesk/triagent/internal/processor"
	"github.com/opsdesk/triagent/internal/ticket"
)

// ErrNotFound is returned for a run id with no stored record.
var ErrNotFound = errors.New("run not found")

// Status tracks a run through the API lifecycle.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is the stored state of one run.
type Record struct {
	RunID   string             `json:"run_id"`
	Status  Status             `json:"status"`
	Error   string             `json:"error,omitempty"`
	Summary *processor.Summary `json:"summary,omitempty"`
}

// Store persists runs. Implementations must be safe for concurrent use.
type Store interface {
	SaveTickets(ctx context.Context, runID string, tickets []ticket.Ticket) error
	GetTickets(ctx context.Context, runID string) ([]ticket.Ticket, error)
	SaveRecord(ctx context.Context, rec Record) error
	GetRecord(ctx context.Context, runID string) (Record, error)
}
