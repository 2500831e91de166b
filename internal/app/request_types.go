package app

import (
	"github.com/shopspring/decimal"
)

// CreateUserRequest is the input for registering a user.
type CreateUserRequest struct {
	Email    string
	Name     string
	Password string
	Role     string // "admin" or "client"
}

// QuoteRequest is the input for creating a quote.
type QuoteRequest struct {
	ClientID   string
	Items      []LineItemInput
	TaxRate    decimal.Decimal
	ValidUntil string // YYYY-MM-DD (valid through that day, UTC) or RFC 3339
}

// UpdateQuoteRequest is the input for editing a pending quote.
// Version must be the version the caller last read.
type UpdateQuoteRequest struct {
	Version    int
	Items      []LineItemInput
	TaxRate    decimal.Decimal
	ValidUntil string
}

// LineItemInput is a single line within a quote request.
type LineItemInput struct {
	Title           string
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal // zero means no discount
}

// PaymentRequest is the input for recording a payment by hand.
type PaymentRequest struct {
	QuoteID   string
	Method    string // card, cash or other
	Reference string
	Amount    decimal.Decimal // zero means "the quote total"
}

// GatewayPaymentRequest is a card payment confirmed by the payment gateway.
type GatewayPaymentRequest struct {
	QuoteID   string
	Reference string // gateway payment id
	Amount    decimal.Decimal
}
