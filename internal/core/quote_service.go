package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuoteService owns quote creation, item edits and status transitions.
type QuoteService interface {
	// CreateQuote inserts a new pending quote with server-computed totals.
	CreateQuote(ctx context.Context, in QuoteInput) (*Quote, error)
	// UpdateQuote replaces items, tax rate and deadline of a pending quote.
	// expectedVersion must match the stored version or ErrConflict is returned.
	UpdateQuote(ctx context.Context, quoteID uuid.UUID, expectedVersion int, in QuoteInput) (*Quote, error)

	// Accept transitions pending → accepted.
	Accept(ctx context.Context, quoteID uuid.UUID) (*Quote, error)
	// Reject transitions pending → rejected.
	Reject(ctx context.Context, quoteID uuid.UUID) (*Quote, error)
	// MarkPaid transitions accepted → paid, issuing the invoice number and snapshot
	// in the same transaction as the status change.
	MarkPaid(ctx context.Context, quoteID uuid.UUID) (*Quote, *Invoice, error)
	// MarkPaidTx is MarkPaid inside the caller's transaction. The quote must already
	// be locked by the caller (see LockQuoteTx).
	MarkPaidTx(ctx context.Context, tx pgx.Tx, q *Quote) (*Invoice, error)
	// LockQuoteTx loads a quote with SELECT ... FOR UPDATE.
	LockQuoteTx(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID) (*Quote, error)

	// Queries
	GetQuote(ctx context.Context, quoteID uuid.UUID) (*Quote, error)
	ListQuotes(ctx context.Context, filter QuoteFilter) ([]Quote, error)
}

type quoteService struct {
	pool *pgxpool.Pool
	seq  InvoiceSequencer
	now  func() time.Time
}

// NewQuoteService constructs a QuoteService that draws invoice numbers from seq.
func NewQuoteService(pool *pgxpool.Pool, seq InvoiceSequencer) QuoteService {
	return &quoteService{pool: pool, seq: seq, now: time.Now}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ── Create / edit ────────────────────────────────────────────────────────────

func (s *quoteService) CreateQuote(ctx context.Context, in QuoteInput) (*Quote, error) {
	if err := ValidateQuoteInput(in); err != nil {
		return nil, err
	}

	q := &Quote{
		ID:         uuid.New(),
		ClientID:   in.ClientID,
		Items:      normalizeItems(in.Items),
		TaxRate:    in.TaxRate.Round(6),
		Status:     QuoteStatusPending,
		ValidUntil: in.ValidUntil.UTC(),
	}
	applyTotals(q)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureClient(ctx, tx, q.ClientID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO quotes (id, client_id, subtotal, tax_rate, tax_amount, total, status, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, q.ID, q.ClientID, q.Subtotal, q.TaxRate, q.TaxAmount, q.Total, string(q.Status), q.ValidUntil)
	if err != nil {
		return nil, persistErr("insert quote", err)
	}

	if err := insertItems(ctx, tx, q.ID, q.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit quote creation", err)
	}

	return s.GetQuote(ctx, q.ID)
}

func (s *quoteService) UpdateQuote(ctx context.Context, quoteID uuid.UUID, expectedVersion int, in QuoteInput) (*Quote, error) {
	if in.ValidUntil.IsZero() {
		return nil, &ValidationError{Field: "valid_until", Reason: "validity deadline is required"}
	}
	if err := ValidateItems(in.Items, in.TaxRate); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	q, err := s.LockQuoteTx(ctx, tx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.Status != QuoteStatusPending {
		return nil, &InvalidTransitionError{Entity: "quote", ID: quoteID.String(), From: q.Status, Action: "edited"}
	}
	if q.Version != expectedVersion {
		return nil, &ConflictError{Entity: "quote", ID: quoteID.String(), ExpectedVersion: expectedVersion}
	}

	q.Items = normalizeItems(in.Items)
	q.TaxRate = in.TaxRate.Round(6)
	q.ValidUntil = in.ValidUntil.UTC()
	applyTotals(q)

	tag, err := tx.Exec(ctx, `
		UPDATE quotes
		SET subtotal = $1, tax_rate = $2, tax_amount = $3, total = $4, valid_until = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
	`, q.Subtotal, q.TaxRate, q.TaxAmount, q.Total, q.ValidUntil, quoteID, expectedVersion)
	if err != nil {
		return nil, persistErr("update quote", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &ConflictError{Entity: "quote", ID: quoteID.String(), ExpectedVersion: expectedVersion}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM quote_items WHERE quote_id = $1", quoteID); err != nil {
		return nil, persistErr("replace quote items", err)
	}
	if err := insertItems(ctx, tx, quoteID, q.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit quote update", err)
	}

	return s.GetQuote(ctx, quoteID)
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *quoteService) Accept(ctx context.Context, quoteID uuid.UUID) (*Quote, error) {
	return s.transition(ctx, quoteID, QuoteStatusAccepted)
}

func (s *quoteService) Reject(ctx context.Context, quoteID uuid.UUID) (*Quote, error) {
	return s.transition(ctx, quoteID, QuoteStatusRejected)
}

// transition handles the plain status edges (accept, reject) that carry no side effects.
func (s *quoteService) transition(ctx context.Context, quoteID uuid.UUID, to QuoteStatus) (*Quote, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	q, err := s.LockQuoteTx(ctx, tx, quoteID)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanTransition(to) {
		return nil, &InvalidTransitionError{Entity: "quote", ID: quoteID.String(), From: q.Status, To: to}
	}
	if to == QuoteStatusAccepted && q.Expired(s.now()) {
		return nil, &ValidationError{
			Field:  "valid_until",
			Reason: fmt.Sprintf("quote expired on %s", q.ValidUntil.Format(time.RFC3339)),
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE quotes
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`, string(to), quoteID)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("set quote %s to %s", quoteID, to), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit quote transition", err)
	}

	return s.GetQuote(ctx, quoteID)
}

func (s *quoteService) MarkPaid(ctx context.Context, quoteID uuid.UUID) (*Quote, *Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	q, err := s.LockQuoteTx(ctx, tx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.MarkPaidTx(ctx, tx, q)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, persistErr("commit paid transition", err)
	}

	paid, err := s.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	return paid, inv, nil
}

func (s *quoteService) MarkPaidTx(ctx context.Context, tx pgx.Tx, q *Quote) (*Invoice, error) {
	if !q.Status.CanTransition(QuoteStatusPaid) {
		return nil, &InvalidTransitionError{Entity: "quote", ID: q.ID.String(), From: q.Status, To: QuoteStatusPaid}
	}

	// Stored totals are not trusted for the snapshot.
	applyTotals(q)

	number, err := s.seq.NextInvoiceNumberTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	inv := &Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		QuoteID:       q.ID,
		ClientID:      q.ClientID,
		Items:         q.Items,
		Subtotal:      q.Subtotal,
		TaxRate:       q.TaxRate,
		TaxAmount:     q.TaxAmount,
		Total:         q.Total,
		InvoiceDate:   now,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (id, invoice_number, quote_id, client_id, items, subtotal, tax_rate, tax_amount, total, invoice_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, inv.ID, inv.InvoiceNumber, inv.QuoteID, inv.ClientID, inv.Items,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total, inv.InvoiceDate,
	).Scan(&inv.CreatedAt)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("insert invoice %d", number), err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE quotes
		SET status = $1, invoice_number = $2, invoice_date = $3, paid_at = $3,
		    subtotal = $4, tax_amount = $5, total = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7
	`, string(QuoteStatusPaid), number, now, q.Subtotal, q.TaxAmount, q.Total, q.ID)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("mark quote %s paid", q.ID), err)
	}

	return inv, nil
}

func (s *quoteService) LockQuoteTx(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID) (*Quote, error) {
	return fetchQuote(ctx, tx, quoteID, true)
}

// ── Queries ──────────────────────────────────────────────────────────────────

const quoteColumns = `
	id, client_id, subtotal, tax_rate, tax_amount, total, status, valid_until,
	version, invoice_number, invoice_date, paid_at, created_at, updated_at`

func (s *quoteService) GetQuote(ctx context.Context, quoteID uuid.UUID) (*Quote, error) {
	return fetchQuote(ctx, s.pool, quoteID, false)
}

func (s *quoteService) ListQuotes(ctx context.Context, filter QuoteFilter) ([]Quote, error) {
	query := "SELECT " + quoteColumns + " FROM quotes WHERE true"
	var args []any

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persistErr("query quotes", err)
	}
	defer rows.Close()

	var quotes []Quote
	var ids []uuid.UUID
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate quotes", err)
	}
	if len(quotes) == 0 {
		return quotes, nil
	}

	items, err := fetchItemsFor(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range quotes {
		quotes[i].Items = items[quotes[i].ID]
	}
	return quotes, nil
}

func fetchQuote(ctx context.Context, q pgxQuerier, quoteID uuid.UUID, forUpdate bool) (*Quote, error) {
	query := "SELECT " + quoteColumns + " FROM quotes WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	quote, err := scanQuote(q.QueryRow(ctx, query, quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "quote", Key: quoteID.String()}
		}
		return nil, err
	}

	items, err := fetchItemsFor(ctx, q, []uuid.UUID{quoteID})
	if err != nil {
		return nil, err
	}
	quote.Items = items[quoteID]
	return quote, nil
}

// scanQuote scans one quotes row. pgx.ErrNoRows is returned unwrapped so callers
// can turn it into a NotFoundError.
func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	var status string
	err := row.Scan(
		&q.ID, &q.ClientID, &q.Subtotal, &q.TaxRate, &q.TaxAmount, &q.Total, &status, &q.ValidUntil,
		&q.Version, &q.InvoiceNumber, &q.InvoiceDate, &q.PaidAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, persistErr("scan quote", err)
	}
	st, err := ParseQuoteStatus(status)
	if err != nil {
		return nil, persistErr("scan quote", fmt.Errorf("stored status %q is invalid", status))
	}
	q.Status = st
	return &q, nil
}

func fetchItemsFor(ctx context.Context, q pgxQuerier, quoteIDs []uuid.UUID) (map[uuid.UUID][]LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT quote_id, title, price, discount_percent
		FROM quote_items
		WHERE quote_id = ANY($1::uuid[])
		ORDER BY quote_id, line_number
	`, uuidStrings(quoteIDs))
	if err != nil {
		return nil, persistErr("query quote items", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]LineItem, len(quoteIDs))
	for rows.Next() {
		var id uuid.UUID
		var it LineItem
		if err := rows.Scan(&id, &it.Title, &it.Price, &it.DiscountPercent); err != nil {
			return nil, persistErr("scan quote item", err)
		}
		out[id] = append(out[id], it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate quote items", err)
	}
	return out, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func insertItems(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID, items []LineItem) error {
	for i, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO quote_items (quote_id, line_number, title, price, discount_percent)
			VALUES ($1, $2, $3, $4, $5)
		`, quoteID, i+1, it.Title, it.Price, it.DiscountPercent)
		if err != nil {
			return persistErr(fmt.Sprintf("insert quote item %d", i+1), err)
		}
	}
	return nil
}

// ensureClient verifies that clientID names an existing user with the client role.
func ensureClient(ctx context.Context, q pgxQuerier, clientID uuid.UUID) error {
	var role string
	err := q.QueryRow(ctx, "SELECT role FROM users WHERE id = $1", clientID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ValidationError{Field: "client_id", Reason: fmt.Sprintf("client %s does not exist", clientID)}
		}
		return persistErr("resolve client", err)
	}
	if Role(role) != RoleClient {
		return &ValidationError{Field: "client_id", Reason: fmt.Sprintf("user %s is not a client", clientID)}
	}
	return nil
}
