package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"freelance-billing/internal/ai"
	"freelance-billing/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type fakeQuotes struct {
	core.QuoteService
	quotes  map[uuid.UUID]*core.Quote
	created []core.QuoteInput
	filter  core.QuoteFilter
}

func (f *fakeQuotes) GetQuote(_ context.Context, id uuid.UUID) (*core.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "quote", Key: id.String()}
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuotes) CreateQuote(_ context.Context, in core.QuoteInput) (*core.Quote, error) {
	f.created = append(f.created, in)
	return &core.Quote{ID: uuid.New(), ClientID: in.ClientID, Status: core.QuoteStatusPending, ValidUntil: in.ValidUntil}, nil
}

func (f *fakeQuotes) Accept(_ context.Context, id uuid.UUID) (*core.Quote, error) {
	return f.move(id, core.QuoteStatusAccepted)
}

func (f *fakeQuotes) Reject(_ context.Context, id uuid.UUID) (*core.Quote, error) {
	return f.move(id, core.QuoteStatusRejected)
}

func (f *fakeQuotes) move(id uuid.UUID, to core.QuoteStatus) (*core.Quote, error) {
	q := f.quotes[id]
	if !q.Status.CanTransition(to) {
		return nil, &core.InvalidTransitionError{Entity: "quote", ID: id.String(), From: q.Status, To: to}
	}
	q.Status = to
	cp := *q
	return &cp, nil
}

func (f *fakeQuotes) ListQuotes(_ context.Context, filter core.QuoteFilter) ([]core.Quote, error) {
	f.filter = filter
	return nil, nil
}

type fakePayments struct {
	core.PaymentRecorder
	quotes *fakeQuotes
	inputs []core.PaymentInput
}

func (f *fakePayments) RecordPayment(_ context.Context, in core.PaymentInput) (*core.PaymentReceipt, error) {
	f.inputs = append(f.inputs, in)
	q := f.quotes.quotes[in.QuoteID]
	if q.Status == core.QuoteStatusPaid {
		return &core.PaymentReceipt{Quote: q, Duplicate: true}, nil
	}
	q.Status = core.QuoteStatusPaid
	n := int64(len(f.inputs))
	q.InvoiceNumber = &n
	return &core.PaymentReceipt{
		Payment: &core.Payment{ID: uuid.New(), QuoteID: q.ID, Method: in.Method},
		Quote:   q,
		Invoice: &core.Invoice{InvoiceNumber: n, QuoteID: q.ID, ClientID: q.ClientID},
	}, nil
}

type fakeInvoices struct {
	core.InvoiceService
	byNumber map[int64]*core.Invoice
	clientID *uuid.UUID
}

func (f *fakeInvoices) GetInvoiceByNumber(_ context.Context, n int64) (*core.Invoice, error) {
	inv, ok := f.byNumber[n]
	if !ok {
		return nil, &core.NotFoundError{Entity: "invoice", Key: "x"}
	}
	return inv, nil
}

func (f *fakeInvoices) ListInvoices(_ context.Context, clientID *uuid.UUID) ([]core.Invoice, error) {
	f.clientID = clientID
	return nil, nil
}

type fakeUsers struct {
	core.UserService
	users map[uuid.UUID]*core.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "user", Key: id.String()}
	}
	return u, nil
}

type recordingNotifier struct {
	sent []core.QuoteStatus
	err  error
}

func (n *recordingNotifier) QuoteStatusChanged(_ context.Context, q *core.Quote, _ *core.User) error {
	n.sent = append(n.sent, q.Status)
	return n.err
}

type fakeRenderer struct{}

func (fakeRenderer) Render(inv *core.Invoice, client *core.User) ([]byte, error) {
	return []byte("%PDF-fake " + client.Name), nil
}

type fakeDrafter struct{ draft *ai.QuoteDraft }

func (f fakeDrafter) DraftQuote(context.Context, string) (*ai.QuoteDraft, error) {
	return f.draft, nil
}

type fixture struct {
	svc      ApplicationService
	quotes   *fakeQuotes
	payments *fakePayments
	invoices *fakeInvoices
	notifier *recordingNotifier
	admin    Actor
	client   Actor
	stranger Actor
	quote    *core.Quote
}

func newFixture() *fixture {
	clientUser := &core.User{ID: uuid.New(), Name: "Acme", Email: "client@acme.test", Role: core.RoleClient}
	adminUser := &core.User{ID: uuid.New(), Name: "Owner", Role: core.RoleAdmin}

	q := &core.Quote{ID: uuid.New(), ClientID: clientUser.ID, Status: core.QuoteStatusPending, Total: decimal.NewFromInt(100)}
	quotes := &fakeQuotes{quotes: map[uuid.UUID]*core.Quote{q.ID: q}}
	payments := &fakePayments{quotes: quotes}
	invoices := &fakeInvoices{byNumber: map[int64]*core.Invoice{
		1: {InvoiceNumber: 1, ClientID: clientUser.ID},
	}}
	users := &fakeUsers{users: map[uuid.UUID]*core.User{clientUser.ID: clientUser, adminUser.ID: adminUser}}
	notifier := &recordingNotifier{}

	return &fixture{
		svc:      NewAppService(users, quotes, payments, invoices, nil, notifier, fakeRenderer{}),
		quotes:   quotes,
		payments: payments,
		invoices: invoices,
		notifier: notifier,
		admin:    Actor{UserID: adminUser.ID, Role: core.RoleAdmin},
		client:   Actor{UserID: clientUser.ID, Role: core.RoleClient},
		stranger: Actor{UserID: uuid.New(), Role: core.RoleClient},
		quote:    q,
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestCreateQuote_AdminOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := QuoteRequest{
		ClientID:   f.client.UserID.String(),
		Items:      []LineItemInput{{Title: "Design", Price: decimal.NewFromInt(100)}},
		TaxRate:    decimal.RequireFromString("0.07"),
		ValidUntil: "2026-12-31",
	}

	if _, err := f.svc.CreateQuote(ctx, f.client, req); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for client, got %v", err)
	}

	res, err := f.svc.CreateQuote(ctx, f.admin, req)
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	want := time.Date(2026, 12, 31, 23, 59, 59, 999999000, time.UTC)
	if !res.Quote.ValidUntil.Equal(want) {
		t.Errorf("date-only deadline should mean end of day, got %s", res.Quote.ValidUntil)
	}

	req.ClientID = "not-a-uuid"
	if _, err := f.svc.CreateQuote(ctx, f.admin, req); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for bad client id, got %v", err)
	}
}

func TestParseValidUntil(t *testing.T) {
	if _, err := parseValidUntil("31/12/2026"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	got, err := parseValidUntil("2026-05-01T10:00:00+02:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %s", got)
	}
}

func TestAcceptQuote_OwnershipAndNotification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.AcceptQuote(ctx, f.stranger, f.quote.ID.String()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another client, got %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Error("forbidden call must not notify")
	}

	res, err := f.svc.AcceptQuote(ctx, f.client, f.quote.ID.String())
	if err != nil {
		t.Fatalf("AcceptQuote failed: %v", err)
	}
	if res.Quote.Status != core.QuoteStatusAccepted {
		t.Errorf("expected accepted, got %s", res.Quote.Status)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != core.QuoteStatusAccepted {
		t.Errorf("expected one accepted notification, got %v", f.notifier.sent)
	}

	if _, err := f.svc.RejectQuote(ctx, f.client, f.quote.ID.String()); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("smtp down")

	res, err := f.svc.RejectQuote(context.Background(), f.admin, f.quote.ID.String())
	if err != nil {
		t.Fatalf("RejectQuote should succeed despite notifier error, got %v", err)
	}
	if res.Quote.Status != core.QuoteStatusRejected {
		t.Errorf("expected rejected, got %s", res.Quote.Status)
	}
}

func TestRecordPayment_Roles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.quote.Status = core.QuoteStatusAccepted
	id := f.quote.ID.String()

	if _, err := f.svc.RecordPayment(ctx, f.client, PaymentRequest{QuoteID: id, Method: "cash"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("clients must not record cash, got %v", err)
	}
	for _, actor := range []Actor{f.client, f.admin} {
		_, err := f.svc.RecordPayment(ctx, actor, PaymentRequest{QuoteID: id, Method: "card", Reference: "i-promise-i-paid"})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("%s recording a card payment: expected ErrForbidden, got %v", actor.Role, err)
		}
	}
	if len(f.payments.inputs) != 0 || f.quote.Status != core.QuoteStatusAccepted {
		t.Fatalf("refused payments must not reach the recorder: inputs=%v status=%s", f.payments.inputs, f.quote.Status)
	}
	if _, err := f.svc.RecordPayment(ctx, f.admin, PaymentRequest{QuoteID: id, Method: "cheque"}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown method, got %v", err)
	}

	res, err := f.svc.RecordPayment(ctx, f.admin, PaymentRequest{QuoteID: id, Method: "CASH"})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if res.Receipt.Quote.Status != core.QuoteStatusPaid {
		t.Errorf("expected paid, got %s", res.Receipt.Quote.Status)
	}
	if f.payments.inputs[0].Method != core.PaymentMethodCash {
		t.Errorf("method not normalised: %q", f.payments.inputs[0].Method)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != core.QuoteStatusPaid {
		t.Errorf("expected paid notification, got %v", f.notifier.sent)
	}
}

func TestRecordGatewayPayment_DuplicateDoesNotNotify(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.quote.Status = core.QuoteStatusAccepted
	req := GatewayPaymentRequest{QuoteID: f.quote.ID.String(), Reference: "pi_1", Amount: decimal.NewFromInt(100)}

	if _, err := f.svc.RecordGatewayPayment(ctx, req); err != nil {
		t.Fatalf("RecordGatewayPayment failed: %v", err)
	}
	res, err := f.svc.RecordGatewayPayment(ctx, req)
	if err != nil {
		t.Fatalf("repeated RecordGatewayPayment failed: %v", err)
	}
	if !res.Receipt.Duplicate {
		t.Error("expected duplicate receipt")
	}
	if len(f.notifier.sent) != 1 {
		t.Errorf("duplicate delivery must not notify again, got %v", f.notifier.sent)
	}
	if in := f.payments.inputs[0]; in.Method != core.PaymentMethodCard || in.Reference != "pi_1" {
		t.Errorf("unexpected payment input %+v", in)
	}
}

func TestRecordGatewayPayment_RequiresAmount(t *testing.T) {
	f := newFixture()
	f.quote.Status = core.QuoteStatusAccepted

	_, err := f.svc.RecordGatewayPayment(context.Background(), GatewayPaymentRequest{QuoteID: f.quote.ID.String(), Reference: "pi_0"})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for a gateway payment without amount, got %v", err)
	}
	if len(f.payments.inputs) != 0 {
		t.Errorf("rejected gateway payment reached the recorder: %+v", f.payments.inputs)
	}
}

func TestListScopesToClient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.ListQuotes(ctx, f.client, "accepted"); err != nil {
		t.Fatalf("ListQuotes failed: %v", err)
	}
	if f.quotes.filter.ClientID == nil || *f.quotes.filter.ClientID != f.client.UserID {
		t.Error("client listing must be scoped to the client")
	}
	if f.quotes.filter.Status == nil || *f.quotes.filter.Status != core.QuoteStatusAccepted {
		t.Error("status filter not applied")
	}

	if _, err := f.svc.ListQuotes(ctx, f.admin, ""); err != nil {
		t.Fatalf("ListQuotes failed: %v", err)
	}
	if f.quotes.filter.ClientID != nil || f.quotes.filter.Status != nil {
		t.Error("admin listing without status must not be filtered")
	}

	if _, err := f.svc.ListQuotes(ctx, f.admin, "cancelled"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown status, got %v", err)
	}

	if _, err := f.svc.ListInvoices(ctx, f.client); err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}
	if f.invoices.clientID == nil || *f.invoices.clientID != f.client.UserID {
		t.Error("client invoice listing must be scoped to the client")
	}
}

func TestRenderInvoicePDF(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.RenderInvoicePDF(ctx, f.stranger, 1); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	res, err := f.svc.RenderInvoicePDF(ctx, f.client, 1)
	if err != nil {
		t.Fatalf("RenderInvoicePDF failed: %v", err)
	}
	if res.Filename != "invoice-000001.pdf" || string(res.Content) != "%PDF-fake Acme" {
		t.Errorf("unexpected result %q %q", res.Filename, res.Content)
	}
	if _, err := f.svc.RenderInvoicePDF(ctx, f.admin, 2); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDraftQuote(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.DraftQuote(ctx, f.admin, "a logo"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable without drafter, got %v", err)
	}

	svc := f.svc.(*appService)
	svc.drafter = fakeDrafter{draft: &ai.QuoteDraft{
		Items:     []ai.DraftItem{{Title: "Logo", Price: "450", DiscountPercent: "0"}},
		TaxRate:   "0.2",
		Reasoning: "single deliverable",
	}}

	if _, err := svc.DraftQuote(ctx, f.client, "a logo"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for client, got %v", err)
	}
	res, err := svc.DraftQuote(ctx, f.admin, "a logo")
	if err != nil {
		t.Fatalf("DraftQuote failed: %v", err)
	}
	if len(res.Items) != 1 || !res.TaxRate.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("unexpected draft %+v", res)
	}
	if len(f.quotes.created) != 0 {
		t.Error("drafting must not create a quote")
	}
}
