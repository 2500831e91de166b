package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one priced entry on a quote or invoice.
// DiscountPercent is optional; zero means no discount.
type LineItem struct {
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Quote is a priced proposal sent to a client.
// Status progresses through the state machine:
//
//	pending → accepted → paid
//	pending → rejected
//
// Subtotal, TaxAmount and Total are derived from Items and TaxRate and are
// recomputed by the service before every write.
type Quote struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	Items         []LineItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Status        QuoteStatus     `json:"status"`
	ValidUntil    time.Time       `json:"valid_until"`
	Version       int             `json:"version"`
	InvoiceNumber *int64          `json:"invoice_number,omitempty"` // set only when paid
	InvoiceDate   *time.Time      `json:"invoice_date,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Expired reports whether the quote's validity deadline has passed at now.
func (q *Quote) Expired(now time.Time) bool {
	return !q.ValidUntil.IsZero() && now.After(q.ValidUntil)
}

// Invoice is the immutable snapshot of a quote taken at the moment it was paid.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber int64           `json:"invoice_number"`
	QuoteID       uuid.UUID       `json:"quote_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	Items         []LineItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Payment is an append-only record of money received against a quote.
type Payment struct {
	ID         uuid.UUID       `json:"id"`
	QuoteID    uuid.UUID       `json:"quote_id"`
	Method     PaymentMethod   `json:"method"`
	Reference  *string         `json:"reference,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// QuoteInput is used when creating or editing a quote.
// It deliberately carries no totals: those are always computed server side.
type QuoteInput struct {
	ClientID   uuid.UUID
	Items      []LineItem
	TaxRate    decimal.Decimal
	ValidUntil time.Time
}

// QuoteFilter narrows ListQuotes. Nil fields are not applied.
type QuoteFilter struct {
	ClientID *uuid.UUID
	Status   *QuoteStatus
}

// PaymentInput is the input to RecordPayment.
// Amount is optional; when non-zero it must match the quote total.
type PaymentInput struct {
	QuoteID   uuid.UUID
	Method    PaymentMethod
	Reference string
	Amount    decimal.Decimal
}

// PaymentReceipt is returned by RecordPayment.
// Duplicate is true when the (method, reference) pair had already been recorded
// and the original payment and invoice are being returned unchanged.
type PaymentReceipt struct {
	Payment   *Payment `json:"payment"`
	Quote     *Quote   `json:"quote"`
	Invoice   *Invoice `json:"invoice"`
	Duplicate bool     `json:"duplicate"`
}
