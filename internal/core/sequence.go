package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceNumberSequence is the counter name that invoice numbers are drawn from.
const InvoiceNumberSequence = "invoiceNumber"

// InvoiceSequencer hands out invoice numbers with no gaps and no duplicates.
type InvoiceSequencer interface {
	// NextInvoiceNumber advances the counter in its own transaction.
	NextInvoiceNumber(ctx context.Context) (int64, error)
	// NextInvoiceNumberTx advances the counter inside the caller's transaction. The
	// counter row stays locked until that transaction ends, so a rollback gives the
	// number back and concurrent callers are serialised.
	NextInvoiceNumberTx(ctx context.Context, tx pgx.Tx) (int64, error)
	// Current returns the last number issued, or 0 if none has been.
	Current(ctx context.Context) (int64, error)
}

type invoiceSequencer struct {
	pool *pgxpool.Pool
	name string
}

// NewInvoiceSequencer constructs an InvoiceSequencer over the sequence_counters table.
func NewInvoiceSequencer(pool *pgxpool.Pool) InvoiceSequencer {
	return &invoiceSequencer{pool: pool, name: InvoiceNumberSequence}
}

func (s *invoiceSequencer) NextInvoiceNumber(ctx context.Context) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	n, err := s.NextInvoiceNumberTx(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, persistErr("commit invoice number", err)
	}
	return n, nil
}

func (s *invoiceSequencer) NextInvoiceNumberTx(ctx context.Context, tx pgx.Tx) (int64, error) {
	return nextSequenceValue(ctx, tx, s.name)
}

func (s *invoiceSequencer) Current(ctx context.Context) (int64, error) {
	var last int64
	err := s.pool.QueryRow(ctx,
		"SELECT COALESCE((SELECT last_value FROM sequence_counters WHERE name = $1), 0)", s.name,
	).Scan(&last)
	if err != nil {
		return 0, persistErr("read sequence "+s.name, err)
	}
	return last, nil
}

// nextSequenceValue increments the named counter and returns the new value as a
// single read-modify-write statement, creating the row at 1 on first use.
func nextSequenceValue(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	var next int64
	err := tx.QueryRow(ctx, `
		INSERT INTO sequence_counters (name, last_value)
		VALUES ($1, 1)
		ON CONFLICT (name)
		DO UPDATE SET last_value = sequence_counters.last_value + 1
		RETURNING last_value
	`, name).Scan(&next)
	if err != nil {
		return 0, &PersistenceError{Op: fmt.Sprintf("advance sequence %s", name), Err: err}
	}
	return next, nil
}
