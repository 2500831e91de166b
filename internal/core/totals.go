package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Totals holds the derived money fields of a quote.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// RecomputeTotals derives subtotal, tax and total from items and taxRate.
//
//	subtotal = round2(Σ price × (1 − discount/100))
//	tax      = round2(subtotal × taxRate)
//	total    = subtotal + tax
//
// It is pure and idempotent; input is assumed to have passed ValidateItems.
func RecomputeTotals(items []LineItem, taxRate decimal.Decimal) Totals {
	sum := decimal.Zero
	for _, it := range items {
		factor := one.Sub(it.DiscountPercent.Div(hundred))
		sum = sum.Add(it.Price.Mul(factor))
	}
	subtotal := sum.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}

// applyTotals overwrites the derived fields on q from its items and tax rate.
func applyTotals(q *Quote) {
	t := RecomputeTotals(q.Items, q.TaxRate)
	q.Subtotal = t.Subtotal
	q.TaxAmount = t.TaxAmount
	q.Total = t.Total
}

// ValidateItems checks the line items and tax rate of a quote.
func ValidateItems(items []LineItem, taxRate decimal.Decimal) error {
	if len(items) == 0 {
		return &ValidationError{Field: "items", Reason: "quote must have at least one item"}
	}
	for i, it := range items {
		if strings.TrimSpace(it.Title) == "" {
			return &ValidationError{Field: itemField(i, "title"), Reason: "title is required"}
		}
		if it.Price.IsNegative() {
			return &ValidationError{Field: itemField(i, "price"), Reason: "price must not be negative"}
		}
		if it.DiscountPercent.IsNegative() || it.DiscountPercent.GreaterThan(hundred) {
			return &ValidationError{Field: itemField(i, "discount_percent"), Reason: "discount must be between 0 and 100"}
		}
	}
	if taxRate.IsNegative() {
		return &ValidationError{Field: "tax_rate", Reason: "tax rate must not be negative"}
	}
	return nil
}

// ValidateQuoteInput checks a full create request.
func ValidateQuoteInput(in QuoteInput) error {
	if in.ClientID == uuid.Nil {
		return &ValidationError{Field: "client_id", Reason: "client is required"}
	}
	if in.ValidUntil.IsZero() {
		return &ValidationError{Field: "valid_until", Reason: "validity deadline is required"}
	}
	return ValidateItems(in.Items, in.TaxRate)
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}

// normalizeItems trims titles and fixes money to two decimals so that what is stored
// is exactly what the totals were computed from.
func normalizeItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = LineItem{
			Title:           strings.TrimSpace(it.Title),
			Price:           it.Price.Round(2),
			DiscountPercent: it.DiscountPercent.Round(2),
		}
	}
	return out
}
