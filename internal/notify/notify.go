// Package notify tells clients when one of their quotes changes status.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"freelance-billing/internal/core"
)

// Notifier delivers quote status updates to the quote's client.
type Notifier interface {
	QuoteStatusChanged(ctx context.Context, q *core.Quote, recipient *core.User) error
}

// LogNotifier writes notifications to the standard logger instead of sending them.
type LogNotifier struct{}

func (LogNotifier) QuoteStatusChanged(_ context.Context, q *core.Quote, recipient *core.User) error {
	subject, _ := composeStatusMail(q, recipient, "")
	log.Printf("notify: %s <%s>: %s", recipient.Name, recipient.Email, subject)
	return nil
}

// composeStatusMail renders the subject and plain-text body for a status change.
func composeStatusMail(q *core.Quote, recipient *core.User, company string) (subject, body string) {
	ref := shortID(q)
	switch q.Status {
	case core.QuoteStatusPaid:
		number := int64(0)
		if q.InvoiceNumber != nil {
			number = *q.InvoiceNumber
		}
		subject = fmt.Sprintf("Invoice #%d for quote %s", number, ref)
	default:
		subject = fmt.Sprintf("Quote %s %s", ref, q.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", recipient.Name)
	switch q.Status {
	case core.QuoteStatusAccepted:
		fmt.Fprintf(&b, "Your quote %s for %s has been accepted.\n", ref, q.Total.StringFixed(2))
	case core.QuoteStatusRejected:
		fmt.Fprintf(&b, "Your quote %s has been rejected.\n", ref)
	case core.QuoteStatusPaid:
		fmt.Fprintf(&b, "We received your payment of %s for quote %s.\n", q.Total.StringFixed(2), ref)
		if q.InvoiceNumber != nil {
			fmt.Fprintf(&b, "Your invoice number is %d.\n", *q.InvoiceNumber)
		}
	default:
		fmt.Fprintf(&b, "Quote %s is now %s.\n", ref, q.Status)
	}
	if company != "" {
		fmt.Fprintf(&b, "\n%s\n", company)
	}
	return subject, b.String()
}

func shortID(q *core.Quote) string {
	return strings.ToUpper(q.ID.String()[:8])
}
