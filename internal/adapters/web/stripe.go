package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"freelance-billing/internal/app"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// quoteIDMetadataKey is the PaymentIntent metadata entry that links a payment to a quote.
const quoteIDMetadataKey = "quote_id"

type webhookResponse struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   string `json:"ignored,omitempty"`
}

// stripeWebhook handles POST /api/webhooks/stripe.
//
// Only payment_intent.succeeded is acted on, and only when it is in the billing
// currency with a non-zero amount received. Errors that a redelivery cannot fix
// (unknown quote, wrong status, amount mismatch) are acknowledged with 200 and
// logged; storage failures return 500 so Stripe retries.
func (h *Handler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.stripeSecret == "" {
		writeError(w, r, "stripe webhook is not configured", "UNAVAILABLE", http.StatusServiceUnavailable)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, "failed to read body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.stripeSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		writeError(w, r, "invalid signature", "BAD_SIGNATURE", http.StatusBadRequest)
		return
	}

	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		writeJSON(w, webhookResponse{Received: true, Ignored: string(event.Type)})
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		writeError(w, r, "malformed payment intent", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	quoteID := pi.Metadata[quoteIDMetadataKey]
	if quoteID == "" {
		log.Printf("stripe: payment intent %s has no %s metadata, ignoring", pi.ID, quoteIDMetadataKey)
		writeJSON(w, webhookResponse{Received: true, Ignored: "no quote_id metadata"})
		return
	}

	if !strings.EqualFold(string(pi.Currency), h.currency) {
		log.Printf("stripe: payment intent %s for quote %s is in %q, expected %q, ignoring", pi.ID, quoteID, pi.Currency, h.currency)
		writeJSON(w, webhookResponse{Received: true, Ignored: "unexpected currency " + string(pi.Currency)})
		return
	}
	if pi.AmountReceived <= 0 {
		log.Printf("stripe: payment intent %s for quote %s received nothing, ignoring", pi.ID, quoteID)
		writeJSON(w, webhookResponse{Received: true, Ignored: "no amount received"})
		return
	}

	res, err := h.svc.RecordGatewayPayment(r.Context(), app.GatewayPaymentRequest{
		QuoteID:   quoteID,
		Reference: pi.ID,
		Amount:    minorUnits(pi.AmountReceived),
	})
	if err != nil {
		if status, _ := classify(err); status == http.StatusInternalServerError {
			writeServiceError(w, r, err)
			return
		}
		log.Printf("stripe: payment intent %s for quote %s not recorded: %v", pi.ID, quoteID, err)
		writeJSON(w, webhookResponse{Received: true, Ignored: err.Error()})
		return
	}

	if !res.Receipt.Duplicate {
		log.Printf("stripe: quote %s paid by %s, invoice %d", quoteID, pi.ID, res.Receipt.Invoice.InvoiceNumber)
	}
	writeJSON(w, webhookResponse{Received: true, Duplicate: res.Receipt.Duplicate})
}

// minorUnits converts a two-decimal currency amount in cents to a decimal.
func minorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
