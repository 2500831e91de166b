package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"freelance-billing/internal/app"
	"freelance-billing/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeService struct {
	app.ApplicationService
	payments []app.PaymentRequest
	actor    app.Actor
}

func (f *fakeService) ListQuotes(_ context.Context, actor app.Actor, status string) (*app.QuoteListResult, error) {
	f.actor = actor
	if status == "bogus" {
		return nil, &core.ValidationError{Field: "status", Reason: "unknown"}
	}
	n := int64(3)
	return &app.QuoteListResult{Quotes: []core.Quote{
		{ID: uuid.New(), Status: core.QuoteStatusPaid, Total: decimal.RequireFromString("310.3"), InvoiceNumber: &n},
	}}, nil
}

func (f *fakeService) RecordPayment(_ context.Context, actor app.Actor, req app.PaymentRequest) (*app.PaymentResult, error) {
	f.payments = append(f.payments, req)
	return &app.PaymentResult{Receipt: &core.PaymentReceipt{
		Payment: &core.Payment{Method: core.PaymentMethodCash, Amount: decimal.RequireFromString("310.3")},
		Invoice: &core.Invoice{InvoiceNumber: 4},
	}}, nil
}

func TestRun_Quotes(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer

	if err := Run(context.Background(), svc, []string{"quotes", "paid"}, &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "310.30") || !strings.Contains(out.String(), "#3") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if !svc.actor.IsAdmin() {
		t.Error("CLI must act as an admin")
	}

	err := Run(context.Background(), svc, []string{"quotes", "bogus"}, &out)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error to propagate, got %v", err)
	}
}

func TestRun_Pay(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer

	if err := Run(context.Background(), svc, []string{"pay", "q-1", "cash", "receipt-17"}, &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(svc.payments) != 1 || svc.payments[0].Reference != "receipt-17" {
		t.Errorf("unexpected payment request %+v", svc.payments)
	}
	if !strings.Contains(out.String(), "Invoice #4 issued") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	for _, method := range []string{"card", "CARD"} {
		if err := Run(context.Background(), svc, []string{"pay", "q-1", method, "pi_1"}, &out); err == nil {
			t.Errorf("%s payments must be refused on the CLI", method)
		}
	}
	if len(svc.payments) != 1 {
		t.Error("refused command must not reach the service")
	}
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	for _, args := range [][]string{nil, {"launch"}, {"show"}, {"invoice-pdf", "x", "out.pdf"}} {
		if err := Run(context.Background(), &fakeService{}, args, &out); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}
