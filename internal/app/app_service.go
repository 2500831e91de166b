package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"freelance-billing/internal/ai"
	"freelance-billing/internal/core"
	"freelance-billing/internal/notify"

	"github.com/google/uuid"
)

// InvoiceRenderer produces the printable form of an invoice.
type InvoiceRenderer interface {
	Render(inv *core.Invoice, client *core.User) ([]byte, error)
}

type appService struct {
	users    core.UserService
	quotes   core.QuoteService
	payments core.PaymentRecorder
	invoices core.InvoiceService
	drafter  ai.QuoteDrafter
	notifier notify.Notifier
	renderer InvoiceRenderer
}

// NewAppService constructs an appService that satisfies ApplicationService.
// drafter, notifier and renderer may be nil; the operations that need them then
// return ErrUnavailable (or, for notifications, do nothing).
func NewAppService(
	users core.UserService,
	quotes core.QuoteService,
	payments core.PaymentRecorder,
	invoices core.InvoiceService,
	drafter ai.QuoteDrafter,
	notifier notify.Notifier,
	renderer InvoiceRenderer,
) ApplicationService {
	return &appService{
		users:    users,
		quotes:   quotes,
		payments: payments,
		invoices: invoices,
		drafter:  drafter,
		notifier: notifier,
		renderer: renderer,
	}
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, email, password string) (*UserSession, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &UserSession{UserID: u.ID.String(), Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, actor Actor, userID uuid.UUID) (*UserResult, error) {
	if !actor.IsAdmin() && actor.UserID != userID {
		return nil, fmt.Errorf("%w: clients can only view their own profile", ErrForbidden)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{User: u}, nil
}

func (s *appService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResult, error) {
	if err := requireAdmin(actor, "create users"); err != nil {
		return nil, err
	}
	role, err := core.ParseRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if err != nil {
		return nil, err
	}
	u, err := s.users.CreateUser(ctx, req.Email, req.Name, req.Password, role)
	if err != nil {
		return nil, err
	}
	return &UserResult{User: u}, nil
}

func (s *appService) ListClients(ctx context.Context, actor Actor) (*UserListResult, error) {
	if err := requireAdmin(actor, "list clients"); err != nil {
		return nil, err
	}
	users, err := s.users.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	return &UserListResult{Users: users}, nil
}

// ── Quotes ───────────────────────────────────────────────────────────────────

func (s *appService) CreateQuote(ctx context.Context, actor Actor, req QuoteRequest) (*QuoteResult, error) {
	if err := requireAdmin(actor, "create quotes"); err != nil {
		return nil, err
	}
	clientID, err := parseID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	validUntil, err := parseValidUntil(req.ValidUntil)
	if err != nil {
		return nil, err
	}

	q, err := s.quotes.CreateQuote(ctx, core.QuoteInput{
		ClientID:   clientID,
		Items:      toLineItems(req.Items),
		TaxRate:    req.TaxRate,
		ValidUntil: validUntil,
	})
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: q}, nil
}

func (s *appService) UpdateQuote(ctx context.Context, actor Actor, quoteID string, req UpdateQuoteRequest) (*QuoteResult, error) {
	if err := requireAdmin(actor, "edit quotes"); err != nil {
		return nil, err
	}
	id, err := parseID("quote_id", quoteID)
	if err != nil {
		return nil, err
	}
	if req.Version <= 0 {
		return nil, &core.ValidationError{Field: "version", Reason: "the version last read is required"}
	}
	validUntil, err := parseValidUntil(req.ValidUntil)
	if err != nil {
		return nil, err
	}

	q, err := s.quotes.UpdateQuote(ctx, id, req.Version, core.QuoteInput{
		Items:      toLineItems(req.Items),
		TaxRate:    req.TaxRate,
		ValidUntil: validUntil,
	})
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: q}, nil
}

func (s *appService) GetQuote(ctx context.Context, actor Actor, quoteID string) (*QuoteResult, error) {
	q, err := s.loadQuote(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: q}, nil
}

func (s *appService) ListQuotes(ctx context.Context, actor Actor, status string) (*QuoteListResult, error) {
	var filter core.QuoteFilter
	if !actor.IsAdmin() {
		filter.ClientID = &actor.UserID
	}
	if strings.TrimSpace(status) != "" {
		st, err := core.ParseQuoteStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}

	quotes, err := s.quotes.ListQuotes(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &QuoteListResult{Quotes: quotes}, nil
}

func (s *appService) AcceptQuote(ctx context.Context, actor Actor, quoteID string) (*QuoteResult, error) {
	q, err := s.loadQuote(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}
	q, err = s.quotes.Accept(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	s.notifyClient(ctx, q)
	return &QuoteResult{Quote: q}, nil
}

func (s *appService) RejectQuote(ctx context.Context, actor Actor, quoteID string) (*QuoteResult, error) {
	q, err := s.loadQuote(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}
	q, err = s.quotes.Reject(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	s.notifyClient(ctx, q)
	return &QuoteResult{Quote: q}, nil
}

// ── Payments ─────────────────────────────────────────────────────────────────

func (s *appService) RecordPayment(ctx context.Context, actor Actor, req PaymentRequest) (*PaymentResult, error) {
	if err := requireAdmin(actor, "record payments"); err != nil {
		return nil, err
	}
	method, err := core.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, err
	}
	if method == core.PaymentMethodCard {
		return nil, fmt.Errorf("%w: card payments are recorded by the payment gateway", ErrForbidden)
	}
	q, err := s.loadQuote(ctx, actor, req.QuoteID)
	if err != nil {
		return nil, err
	}
	return s.recordPayment(ctx, core.PaymentInput{
		QuoteID:   q.ID,
		Method:    method,
		Reference: req.Reference,
		Amount:    req.Amount,
	})
}

func (s *appService) RecordGatewayPayment(ctx context.Context, req GatewayPaymentRequest) (*PaymentResult, error) {
	id, err := parseID("quote_id", req.QuoteID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, &core.ValidationError{Field: "amount", Reason: "gateway payments must carry the amount received"}
	}
	return s.recordPayment(ctx, core.PaymentInput{
		QuoteID:   id,
		Method:    core.PaymentMethodCard,
		Reference: req.Reference,
		Amount:    req.Amount,
	})
}

func (s *appService) recordPayment(ctx context.Context, in core.PaymentInput) (*PaymentResult, error) {
	receipt, err := s.payments.RecordPayment(ctx, in)
	if err != nil {
		return nil, err
	}
	if !receipt.Duplicate {
		s.notifyClient(ctx, receipt.Quote)
	}
	return &PaymentResult{Receipt: receipt}, nil
}

func (s *appService) ListPayments(ctx context.Context, actor Actor, quoteID string) (*PaymentListResult, error) {
	q, err := s.loadQuote(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListPayments(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return &PaymentListResult{Payments: payments}, nil
}

// ── Invoices ─────────────────────────────────────────────────────────────────

func (s *appService) ListInvoices(ctx context.Context, actor Actor) (*InvoiceListResult, error) {
	var clientID *uuid.UUID
	if !actor.IsAdmin() {
		clientID = &actor.UserID
	}
	invoices, err := s.invoices.ListInvoices(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

func (s *appService) GetInvoice(ctx context.Context, actor Actor, number int64) (*InvoiceResult, error) {
	inv, err := s.invoices.GetInvoiceByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && inv.ClientID != actor.UserID {
		return nil, fmt.Errorf("%w: invoice %d belongs to another client", ErrForbidden, number)
	}
	return &InvoiceResult{Invoice: inv}, nil
}

func (s *appService) RenderInvoicePDF(ctx context.Context, actor Actor, number int64) (*InvoicePDFResult, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("%w: invoice rendering", ErrUnavailable)
	}
	res, err := s.GetInvoice(ctx, actor, number)
	if err != nil {
		return nil, err
	}
	client, err := s.users.GetByID(ctx, res.Invoice.ClientID)
	if err != nil {
		return nil, err
	}
	content, err := s.renderer.Render(res.Invoice, client)
	if err != nil {
		return nil, err
	}
	return &InvoicePDFResult{
		Filename: fmt.Sprintf("invoice-%06d.pdf", number),
		Content:  content,
	}, nil
}

// ── AI ───────────────────────────────────────────────────────────────────────

func (s *appService) DraftQuote(ctx context.Context, actor Actor, text string) (*DraftResult, error) {
	if err := requireAdmin(actor, "draft quotes"); err != nil {
		return nil, err
	}
	if s.drafter == nil {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY to enable quote drafting", ErrUnavailable)
	}
	draft, err := s.drafter.DraftQuote(ctx, text)
	if err != nil {
		return nil, err
	}
	items, taxRate, err := draft.LineItems()
	if err != nil {
		return nil, err
	}
	return &DraftResult{
		Items:      items,
		TaxRate:    taxRate,
		Reasoning:  draft.Reasoning,
		Confidence: draft.Confidence,
	}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// loadQuote resolves quoteID and checks the actor may see it.
func (s *appService) loadQuote(ctx context.Context, actor Actor, quoteID string) (*core.Quote, error) {
	id, err := parseID("quote_id", quoteID)
	if err != nil {
		return nil, err
	}
	q, err := s.quotes.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && q.ClientID != actor.UserID {
		return nil, fmt.Errorf("%w: quote %s belongs to another client", ErrForbidden, id)
	}
	return q, nil
}

// notifyClient tells the quote's client about its new status. Failures are logged
// and never undo the transition that triggered them.
func (s *appService) notifyClient(ctx context.Context, q *core.Quote) {
	if s.notifier == nil || q == nil {
		return
	}
	client, err := s.users.GetByID(ctx, q.ClientID)
	if err != nil {
		log.Printf("notify: quote %s: failed to load client: %v", q.ID, err)
		return
	}
	if err := s.notifier.QuoteStatusChanged(ctx, q, client); err != nil {
		log.Printf("notify: quote %s (%s): %v", q.ID, q.Status, err)
	}
}

func requireAdmin(actor Actor, action string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins can %s", ErrForbidden, action)
	}
	return nil
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, &core.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a valid id", s)}
	}
	return id, nil
}

// parseValidUntil accepts a calendar date, meaning the end of that day in UTC,
// or a full RFC 3339 timestamp.
func parseValidUntil(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &core.ValidationError{Field: "valid_until", Reason: "validity deadline is required"}
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d.AddDate(0, 0, 1).Add(-time.Microsecond), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: "valid_until", Reason: "use YYYY-MM-DD or an RFC 3339 timestamp"}
	}
	return t, nil
}

func toLineItems(in []LineItemInput) []core.LineItem {
	items := make([]core.LineItem, len(in))
	for i, it := range in {
		items[i] = core.LineItem{Title: it.Title, Price: it.Price, DiscountPercent: it.DiscountPercent}
	}
	return items
}
