package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"freelance-billing/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79/webhook"
)

func signStripePayload(payload []byte, secret string, ts time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	}).Header
}

func paymentIntentEvent(eventType, piID string, amount int64, metadata map[string]string) []byte {
	return paymentIntentEventIn(eventType, piID, amount, "eur", metadata)
}

func paymentIntentEventIn(eventType, piID string, amount int64, currency string, metadata map[string]string) []byte {
	event := map[string]any{
		"id":          "evt_" + piID,
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":              piID,
				"object":          "payment_intent",
				"amount":          amount,
				"amount_received": amount,
				"currency":        currency,
				"status":          "succeeded",
				"metadata":        metadata,
			},
		},
	}
	b, _ := json.Marshal(event)
	return b
}

func postWebhook(t *testing.T, url string, payload []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(string(payload)))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Stripe-Signature", signature)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStripeWebhook_RecordsPayment(t *testing.T) {
	srv, svc := newTestServer(t)
	url := srv.URL + "/api/webhooks/stripe"
	payload := paymentIntentEvent("payment_intent.succeeded", "pi_3Nabc", 31030, map[string]string{"quote_id": "q-123"})

	resp := postWebhook(t, url, payload, signStripePayload(payload, testStripeSecret, time.Now()))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(svc.gateways) != 1 {
		t.Fatalf("expected one recorded payment, got %d", len(svc.gateways))
	}
	got := svc.gateways[0]
	if got.QuoteID != "q-123" || got.Reference != "pi_3Nabc" || !got.Amount.Equal(decimal.RequireFromString("310.30")) {
		t.Errorf("unexpected gateway request %+v", got)
	}

	// Stripe redelivers; the service reports a duplicate and we still acknowledge.
	resp = postWebhook(t, url, payload, signStripePayload(payload, testStripeSecret, time.Now()))
	var body webhookResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || !body.Duplicate {
		t.Errorf("expected acknowledged duplicate, got %d %+v", resp.StatusCode, body)
	}
}

func TestStripeWebhook_RejectsBadSignature(t *testing.T) {
	srv, svc := newTestServer(t)
	url := srv.URL + "/api/webhooks/stripe"
	payload := paymentIntentEvent("payment_intent.succeeded", "pi_forged", 100, map[string]string{"quote_id": "q-1"})

	for name, sig := range map[string]string{
		"wrong secret": signStripePayload(payload, "whsec_other", time.Now()),
		"too old":      signStripePayload(payload, testStripeSecret, time.Now().Add(-time.Hour)),
		"missing":      "",
	} {
		t.Run(name, func(t *testing.T) {
			resp := postWebhook(t, url, payload, sig)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
	if len(svc.gateways) != 0 {
		t.Errorf("unsigned events must not record payments, got %d", len(svc.gateways))
	}
}

func TestStripeWebhook_IgnoresAndRetries(t *testing.T) {
	srv, svc := newTestServer(t)
	url := srv.URL + "/api/webhooks/stripe"

	other := paymentIntentEvent("payment_intent.created", "pi_1", 100, map[string]string{"quote_id": "q-1"})
	resp := postWebhook(t, url, other, signStripePayload(other, testStripeSecret, time.Now()))
	if resp.StatusCode != http.StatusOK || len(svc.gateways) != 0 {
		t.Errorf("other event types must be acknowledged and ignored, got %d", resp.StatusCode)
	}

	noMeta := paymentIntentEvent("payment_intent.succeeded", "pi_2", 100, nil)
	resp = postWebhook(t, url, noMeta, signStripePayload(noMeta, testStripeSecret, time.Now()))
	if resp.StatusCode != http.StatusOK || len(svc.gateways) != 0 {
		t.Errorf("payments without quote metadata must be ignored, got %d", resp.StatusCode)
	}

	payload := paymentIntentEvent("payment_intent.succeeded", "pi_3", 100, map[string]string{"quote_id": "q-1"})

	svc.err = &core.InvalidTransitionError{Entity: "quote", ID: "q-1", From: core.QuoteStatusRejected, To: core.QuoteStatusPaid}
	resp = postWebhook(t, url, payload, signStripePayload(payload, testStripeSecret, time.Now()))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("permanent failures are acknowledged so Stripe stops retrying, got %d", resp.StatusCode)
	}

	svc.err = &core.PersistenceError{Op: "commit payment", Err: fmt.Errorf("connection reset")}
	resp = postWebhook(t, url, payload, signStripePayload(payload, testStripeSecret, time.Now()))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("storage failures must return 500 so Stripe retries, got %d", resp.StatusCode)
	}
}

func TestStripeWebhook_IgnoresWrongCurrencyAndZeroAmount(t *testing.T) {
	srv, svc := newTestServer(t)
	url := srv.URL + "/api/webhooks/stripe"
	meta := map[string]string{"quote_id": "q-1"}

	for name, payload := range map[string][]byte{
		"other currency": paymentIntentEventIn("payment_intent.succeeded", "pi_usd", 31030, "usd", meta),
		"zero amount":    paymentIntentEvent("payment_intent.succeeded", "pi_zero", 0, meta),
	} {
		t.Run(name, func(t *testing.T) {
			resp := postWebhook(t, url, payload, signStripePayload(payload, testStripeSecret, time.Now()))
			var body webhookResponse
			_ = json.NewDecoder(resp.Body).Decode(&body)
			if resp.StatusCode != http.StatusOK || body.Ignored == "" {
				t.Errorf("expected acknowledged and ignored, got %d %+v", resp.StatusCode, body)
			}
		})
	}
	if len(svc.gateways) != 0 {
		t.Errorf("ignored events must not record payments, got %+v", svc.gateways)
	}

	upper := paymentIntentEventIn("payment_intent.succeeded", "pi_eur", 31030, "EUR", meta)
	resp := postWebhook(t, url, upper, signStripePayload(upper, testStripeSecret, time.Now()))
	if resp.StatusCode != http.StatusOK || len(svc.gateways) != 1 {
		t.Errorf("currency match should ignore case, got %d with %d payments", resp.StatusCode, len(svc.gateways))
	}
}
