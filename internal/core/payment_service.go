package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRecorder appends payment records and drives the accepted → paid transition.
type PaymentRecorder interface {
	// RecordPayment appends a payment and marks the quote paid in one transaction.
	// Either both happen or neither does. A repeated (method, reference) pair for the
	// same quote returns the original receipt with Duplicate set.
	RecordPayment(ctx context.Context, in PaymentInput) (*PaymentReceipt, error)
	// ListPayments returns the payments recorded against a quote, oldest first.
	ListPayments(ctx context.Context, quoteID uuid.UUID) ([]Payment, error)
}

type paymentRecorder struct {
	pool     *pgxpool.Pool
	quotes   QuoteService
	invoices InvoiceService
}

// NewPaymentRecorder constructs a PaymentRecorder.
func NewPaymentRecorder(pool *pgxpool.Pool, quotes QuoteService, invoices InvoiceService) PaymentRecorder {
	return &paymentRecorder{pool: pool, quotes: quotes, invoices: invoices}
}

func (r *paymentRecorder) RecordPayment(ctx context.Context, in PaymentInput) (*PaymentReceipt, error) {
	method, err := ParsePaymentMethod(string(in.Method))
	if err != nil {
		return nil, err
	}
	in.Method = method
	if in.Amount.IsNegative() {
		return nil, &ValidationError{Field: "amount", Reason: "amount must not be negative"}
	}
	var reference *string
	if ref := strings.TrimSpace(in.Reference); ref != "" {
		reference = &ref
	}
	if in.Method == PaymentMethodCard && reference == nil {
		return nil, &ValidationError{Field: "reference", Reason: "card payments require the gateway reference"}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Locking the quote first serialises retried deliveries of the same payment,
	// so the duplicate check below sees the earlier one.
	q, err := r.quotes.LockQuoteTx(ctx, tx, in.QuoteID)
	if err != nil {
		return nil, err
	}

	if reference != nil {
		existing, err := findPaymentByReference(ctx, tx, in.Method, *reference)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.QuoteID != in.QuoteID {
				return nil, &ValidationError{
					Field:  "reference",
					Reason: fmt.Sprintf("reference %s was already used for quote %s", *reference, existing.QuoteID),
				}
			}
			return r.duplicateReceipt(ctx, existing)
		}
	}

	if !q.Status.CanTransition(QuoteStatusPaid) {
		return nil, &InvalidTransitionError{Entity: "quote", ID: q.ID.String(), From: q.Status, To: QuoteStatusPaid}
	}

	applyTotals(q)
	if !in.Amount.IsZero() && !in.Amount.Equal(q.Total) {
		return nil, &ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("payment of %s does not match quote total %s", in.Amount.StringFixed(2), q.Total.StringFixed(2)),
		}
	}

	p := &Payment{
		ID:        uuid.New(),
		QuoteID:   q.ID,
		Method:    in.Method,
		Reference: reference,
		Amount:    q.Total,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (id, quote_id, method, reference, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING recorded_at
	`, p.ID, p.QuoteID, string(p.Method), p.Reference, p.Amount).Scan(&p.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Entity: "payment", ID: derefOr(reference, p.ID.String())}
		}
		return nil, persistErr("insert payment", err)
	}

	inv, err := r.quotes.MarkPaidTx(ctx, tx, q)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit payment", err)
	}

	paid, err := r.quotes.GetQuote(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return &PaymentReceipt{Payment: p, Quote: paid, Invoice: inv}, nil
}

func (r *paymentRecorder) duplicateReceipt(ctx context.Context, p *Payment) (*PaymentReceipt, error) {
	q, err := r.quotes.GetQuote(ctx, p.QuoteID)
	if err != nil {
		return nil, err
	}
	inv, err := r.invoices.GetInvoiceByQuote(ctx, p.QuoteID)
	if err != nil {
		return nil, err
	}
	return &PaymentReceipt{Payment: p, Quote: q, Invoice: inv, Duplicate: true}, nil
}

func (r *paymentRecorder) ListPayments(ctx context.Context, quoteID uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quote_id, method, reference, amount, recorded_at
		FROM payments
		WHERE quote_id = $1
		ORDER BY recorded_at, id
	`, quoteID)
	if err != nil {
		return nil, persistErr("query payments", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate payments", err)
	}
	return payments, nil
}

func findPaymentByReference(ctx context.Context, q pgxQuerier, method PaymentMethod, reference string) (*Payment, error) {
	p, err := scanPayment(q.QueryRow(ctx, `
		SELECT id, quote_id, method, reference, amount, recorded_at
		FROM payments
		WHERE method = $1 AND reference = $2
	`, string(method), reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var method string
	if err := row.Scan(&p.ID, &p.QuoteID, &method, &p.Reference, &p.Amount, &p.RecordedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, persistErr("scan payment", err)
	}
	p.Method = PaymentMethod(method)
	return &p, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
