// Package storage implements the terminal-order archive external
// collaborator (spec.md §6 "Persisted state") on top of Postgres.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epic1st/optioncore/backend/internal/oms"
	"github.com/epic1st/optioncore/backend/internal/order"
)

// PostgresArchiver writes immutable terminal-order records as JSONB
// rows, keyed by the record's ArchiveID; order_id is a unique column.
type PostgresArchiver struct {
	pool *pgxpool.Pool
}

// NewPostgresArchiver connects to Postgres using dsn and ensures the
// archive table exists.
func NewPostgresArchiver(ctx context.Context, dsn string) (*PostgresArchiver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	a := &PostgresArchiver{pool: pool}
	if err := a.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *PostgresArchiver) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS terminal_orders (
	archive_id   TEXT PRIMARY KEY,
	order_id     BIGINT NOT NULL UNIQUE,
	instrument_id TEXT NOT NULL,
	status       TEXT NOT NULL,
	archived_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	record       JSONB NOT NULL
)`
	_, err := a.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

// terminalRecord is the JSON-serializable mirror of oms.Record; kept
// separate so oms.Record itself carries no storage/json tags.
type terminalRecord struct {
	ArchiveID    string             `json:"archive_id"`
	OrderID      uint64             `json:"order_id"`
	InstrumentID string             `json:"instrument_id"`
	Side         int                `json:"side"`
	Type         int                `json:"type"`
	OrderedQty   int64              `json:"ordered_qty"`
	FilledQty    int64              `json:"filled_qty"`
	AveragePrice float64            `json:"average_price"`
	Commission   float64            `json:"commission"`
	Status       int                `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	SubmittedAt  time.Time          `json:"submitted_at"`
	FilledAt     time.Time          `json:"filled_at"`
	CancelledAt  time.Time          `json:"cancelled_at"`
	ExecCount    int                `json:"exec_count"`
	Executions   []order.Execution `json:"executions"`
}

// Archive inserts the terminal record as a JSONB row. Order ids are
// never reused, so a conflict indicates a bug upstream and is
// surfaced rather than silently upserted.
func (a *PostgresArchiver) Archive(ctx context.Context, rec oms.Record) error {
	payload := terminalRecord{
		ArchiveID:    rec.ArchiveID,
		OrderID:      rec.OrderID,
		InstrumentID: rec.InstrumentID,
		Side:         int(rec.Side),
		Type:         int(rec.Type),
		OrderedQty:   rec.OrderedQty,
		FilledQty:    rec.FilledQty,
		AveragePrice: rec.AveragePrice,
		Commission:   rec.Commission,
		Status:       int(rec.Status),
		CreatedAt:    rec.CreatedAt,
		SubmittedAt:  rec.SubmittedAt,
		FilledAt:     rec.FilledAt,
		CancelledAt:  rec.CancelledAt,
		ExecCount:    len(rec.Executions),
		Executions:   rec.Executions,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("storage: marshal record: %w", err)
	}

	const stmt = `
INSERT INTO terminal_orders (archive_id, order_id, instrument_id, status, record)
VALUES ($1, $2, $3, $4, $5)`
	_, err = a.pool.Exec(ctx, stmt, rec.ArchiveID, rec.OrderID, rec.InstrumentID, rec.Status.String(), data)
	if err != nil {
		return fmt.Errorf("storage: insert terminal order %d: %w", rec.OrderID, err)
	}
	return nil
}

// Close releases the connection pool.
func (a *PostgresArchiver) Close() {
	a.pool.Close()
}
