package app

import (
	"freelance-billing/internal/core"

	"github.com/shopspring/decimal"
)

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID string
	Email  string
	Name   string
	Role   core.Role
}

// UserResult is returned by single-user operations.
type UserResult struct {
	User *core.User
}

// UserListResult is returned by ListClients.
type UserListResult struct {
	Users []core.User
}

// QuoteResult is returned by quote lifecycle operations.
type QuoteResult struct {
	Quote *core.Quote
}

// QuoteListResult is returned by ListQuotes.
type QuoteListResult struct {
	Quotes []core.Quote
}

// PaymentResult is returned by RecordPayment and RecordGatewayPayment.
type PaymentResult struct {
	Receipt *core.PaymentReceipt
}

// PaymentListResult is returned by ListPayments.
type PaymentListResult struct {
	Payments []core.Payment
}

// InvoiceResult is returned by GetInvoice.
type InvoiceResult struct {
	Invoice *core.Invoice
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice
}

// InvoicePDFResult is returned by RenderInvoicePDF.
type InvoicePDFResult struct {
	Filename string
	Content  []byte
}

// DraftResult is returned by DraftQuote.
type DraftResult struct {
	Items      []core.LineItem
	TaxRate    decimal.Decimal
	Reasoning  string
	Confidence float64
}
