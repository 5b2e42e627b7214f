package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/triagent/internal/ticket"
)

// PostgresStore persists runs in two jsonb-backed tables:
//
//	CREATE TABLE triage_tickets (
//	    run_id   text PRIMARY KEY,
//	    tickets  jsonb NOT NULL,
//	    created_at timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE TABLE triage_runs (
//	    run_id   text PRIMARY KEY,
//	    record   jsonb NOT NULL,
//	    updated_at timestamptz NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and pings the database.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) SaveTickets(ctx context.Context, runID string, tickets []ticket.Ticket) error {
	data, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("marshal tickets: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO triage_tickets (run_id, tickets)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET tickets = EXCLUDED.tickets`,
		runID, data,
	)
	if err != nil {
		return fmt.Errorf("save tickets %s: %w", runID, err)
	}
	return nil
}

func (s *PostgresStore) GetTickets(ctx context.Context, runID string) ([]ticket.Ticket, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT tickets FROM triage_tickets WHERE run_id = $1`, runID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tickets %s: %w", runID, err)
	}

	var tickets []ticket.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, fmt.Errorf("parse tickets %s: %w", runID, err)
	}
	return tickets, nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO triage_runs (run_id, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (run_id) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`,
		rec.RunID, data,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rec.RunID, err)
	}
	return nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, runID string) (Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM triage_runs WHERE run_id = $1`, runID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load run %s: %w", runID, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse run %s: %w", runID, err)
	}
	return rec, nil
}
