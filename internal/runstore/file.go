package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/opsdesk/triagent/internal/ticket"
)

// FileStore keeps runs as JSON files under dataDir: one tickets file and
// one record file per run id. A mutex serializes writers so a status
// update never races a summary write on the same run.
type FileStore struct {
	mu         sync.Mutex
	runsDir    string
	ticketsDir string
}

// NewFileStore prepares the run directories under dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	runsDir := filepath.Join(dataDir, "runs")
	ticketsDir := filepath.Join(dataDir, "tickets")
	for _, dir := range []string{runsDir, ticketsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run dir %s: %w", dir, err)
		}
	}
	return &FileStore{runsDir: runsDir, ticketsDir: ticketsDir}, nil
}

func (s *FileStore) SaveTickets(ctx context.Context, runID string, tickets []ticket.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.ticketsDir, runID+".json"), tickets)
}

func (s *FileStore) GetTickets(ctx context.Context, runID string) ([]ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tickets []ticket.Ticket
	if err := readJSON(filepath.Join(s.ticketsDir, runID+".json"), &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *FileStore) SaveRecord(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.runsDir, rec.RunID+".json"), rec)
}

func (s *FileStore) GetRecord(ctx context.Context, runID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec Record
	if err := readJSON(filepath.Join(s.runsDir, runID+".json"), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
