package app

import (
	"context"
	"errors"

	"freelance-billing/internal/core"

	"github.com/google/uuid"
)

var (
	// ErrForbidden is returned when the actor's role or ownership does not allow an operation.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable is returned when an optional integration is not configured.
	ErrUnavailable = errors.New("not configured")
)

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	UserID uuid.UUID
	Role   core.Role
}

// IsAdmin reports whether the actor manages quotes for the business.
func (a Actor) IsAdmin() bool { return a.Role == core.RoleAdmin }

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations contain no
// display logic and decide nothing about transport.
type ApplicationService interface {
	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, email, password string) (*UserSession, error)

	// GetUser returns a user profile. Clients may only read themselves.
	GetUser(ctx context.Context, actor Actor, userID uuid.UUID) (*UserResult, error)

	// CreateUser registers a new admin or client. Admin only.
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResult, error)

	// ListClients returns every client account. Admin only.
	ListClients(ctx context.Context, actor Actor) (*UserListResult, error)

	// CreateQuote creates a pending quote. Admin only.
	CreateQuote(ctx context.Context, actor Actor, req QuoteRequest) (*QuoteResult, error)

	// UpdateQuote replaces the items, tax rate and deadline of a pending quote. Admin only.
	UpdateQuote(ctx context.Context, actor Actor, quoteID string, req UpdateQuoteRequest) (*QuoteResult, error)

	// GetQuote returns one quote. Clients only see their own.
	GetQuote(ctx context.Context, actor Actor, quoteID string) (*QuoteResult, error)

	// ListQuotes returns quotes, optionally filtered by status. Clients only see their own.
	ListQuotes(ctx context.Context, actor Actor, status string) (*QuoteListResult, error)

	// AcceptQuote and RejectQuote resolve a pending quote and notify its client.
	AcceptQuote(ctx context.Context, actor Actor, quoteID string) (*QuoteResult, error)
	RejectQuote(ctx context.Context, actor Actor, quoteID string) (*QuoteResult, error)

	// RecordPayment records an offline (cash or other) payment against an accepted
	// quote, which marks it paid and issues its invoice. Admin only. Card payments
	// are refused here; they arrive through RecordGatewayPayment.
	RecordPayment(ctx context.Context, actor Actor, req PaymentRequest) (*PaymentResult, error)

	// RecordGatewayPayment records a card payment confirmed by the payment gateway.
	// The caller is responsible for having verified the gateway's signature.
	RecordGatewayPayment(ctx context.Context, req GatewayPaymentRequest) (*PaymentResult, error)

	// ListPayments returns the payments recorded against a quote.
	ListPayments(ctx context.Context, actor Actor, quoteID string) (*PaymentListResult, error)

	// ListInvoices returns invoices newest first. Clients only see their own.
	ListInvoices(ctx context.Context, actor Actor) (*InvoiceListResult, error)

	// GetInvoice returns an invoice by its number.
	GetInvoice(ctx context.Context, actor Actor, number int64) (*InvoiceResult, error)

	// RenderInvoicePDF returns the printable form of an invoice.
	RenderInvoicePDF(ctx context.Context, actor Actor, number int64) (*InvoicePDFResult, error)

	// DraftQuote asks the AI drafter for suggested line items. Nothing is stored. Admin only.
	DraftQuote(ctx context.Context, actor Actor, text string) (*DraftResult, error)
}
