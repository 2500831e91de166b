package core

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceService reads invoice snapshots. Invoices are only ever written by
// QuoteService.MarkPaidTx.
type InvoiceService interface {
	GetInvoiceByNumber(ctx context.Context, number int64) (*Invoice, error)
	GetInvoiceByQuote(ctx context.Context, quoteID uuid.UUID) (*Invoice, error)
	// ListInvoices returns invoices newest first, optionally for one client only.
	ListInvoices(ctx context.Context, clientID *uuid.UUID) ([]Invoice, error)
}

type invoiceService struct {
	pool *pgxpool.Pool
}

func NewInvoiceService(pool *pgxpool.Pool) InvoiceService {
	return &invoiceService{pool: pool}
}

const invoiceColumns = `
	id, invoice_number, quote_id, client_id, items, subtotal, tax_rate, tax_amount, total,
	invoice_date, created_at`

func (s *invoiceService) GetInvoiceByNumber(ctx context.Context, number int64) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE invoice_number = $1", number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "invoice", Key: strconv.FormatInt(number, 10)}
	}
	return inv, err
}

func (s *invoiceService) GetInvoiceByQuote(ctx context.Context, quoteID uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE quote_id = $1", quoteID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "invoice for quote", Key: quoteID.String()}
	}
	return inv, err
}

func (s *invoiceService) ListInvoices(ctx context.Context, clientID *uuid.UUID) ([]Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices"
	var args []any
	if clientID != nil {
		query += " WHERE client_id = $1"
		args = append(args, *clientID)
	}
	query += " ORDER BY invoice_number DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persistErr("query invoices", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate invoices", err)
	}
	return invoices, nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.QuoteID, &inv.ClientID, &inv.Items,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total, &inv.InvoiceDate, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, persistErr("scan invoice", err)
	}
	return &inv, nil
}
