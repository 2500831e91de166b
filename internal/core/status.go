package core

import (
	"fmt"
	"strings"
)

// QuoteStatus is the lifecycle state of a quote. The zero value is not a valid status;
// values only enter the system through the constants below or ParseQuoteStatus.
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusPaid     QuoteStatus = "paid"
)

// quoteTransitions lists every legal edge of the quote state machine.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusPending:  {QuoteStatusAccepted, QuoteStatusRejected},
	QuoteStatusAccepted: {QuoteStatusPaid},
}

// ParseQuoteStatus converts an untrusted string into a QuoteStatus.
func ParseQuoteStatus(s string) (QuoteStatus, error) {
	st := QuoteStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown quote status %q", s)}
	}
	return st, nil
}

// Valid reports whether s is one of the four known statuses.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusPaid:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s QuoteStatus) Terminal() bool {
	return len(quoteTransitions[s]) == 0
}

// CanTransition reports whether from → to is a legal edge.
func (s QuoteStatus) CanTransition(to QuoteStatus) bool {
	for _, next := range quoteTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s QuoteStatus) String() string { return string(s) }

// MarshalText implements encoding.TextMarshaler.
func (s QuoteStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// UnmarshalText rejects anything that is not a known status, so decoded
// request bodies can never carry an invalid state.
func (s *QuoteStatus) UnmarshalText(b []byte) error {
	st, err := ParseQuoteStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// PaymentMethod is how a payment was made.
type PaymentMethod string

const (
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodOther PaymentMethod = "other"
)

// ParsePaymentMethod converts an untrusted string into a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodOther:
		return m, nil
	}
	return "", &ValidationError{Field: "method", Reason: fmt.Sprintf("unknown payment method %q", s)}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PaymentMethod) UnmarshalText(b []byte) error {
	pm, err := ParsePaymentMethod(string(b))
	if err != nil {
		return err
	}
	*m = pm
	return nil
}
