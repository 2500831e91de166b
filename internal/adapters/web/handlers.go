package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"freelance-billing/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc          app.ApplicationService
	router       chi.Router
	jwtSecret    string
	stripeSecret string
	currency     string
}

// Options configures NewHandler.
type Options struct {
	AllowedOrigins      string // comma-separated; empty disables CORS
	JWTSecret           string
	StripeWebhookSecret string // empty disables the Stripe webhook
	Currency            string // ISO code gateway payments must be in; defaults to eur
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	h := &Handler{
		svc:          svc,
		jwtSecret:    opts.JWTSecret,
		stripeSecret: opts.StripeWebhookSecret,
		currency:     strings.ToLower(opts.Currency),
	}
	if h.currency == "" {
		h.currency = "eur"
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(opts.AllowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public API) ─────────────────────────────────────────────────────
	r.With(RequestBodyLimit(1<<16)).Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Payment gateway (public, signature-verified) ──────────────────────────
	r.With(RequestBodyLimit(1<<16)).Post("/api/webhooks/stripe", h.stripeWebhook)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// ── Quotes ────────────────────────────────────────────────────────────
		r.Get("/api/quotes", h.apiListQuotes)
		r.Post("/api/quotes", h.apiCreateQuote)
		r.Post("/api/quotes/draft", h.apiDraftQuote)
		r.Get("/api/quotes/{id}", h.apiGetQuote)
		r.Put("/api/quotes/{id}", h.apiUpdateQuote)
		r.Post("/api/quotes/{id}/accept", h.apiAcceptQuote)
		r.Post("/api/quotes/{id}/reject", h.apiRejectQuote)
		r.Get("/api/quotes/{id}/payments", h.apiListPayments)
		r.Post("/api/quotes/{id}/payments", h.apiRecordPayment)

		// ── Invoices ──────────────────────────────────────────────────────────
		r.Get("/api/invoices", h.apiListInvoices)
		r.Get("/api/invoices/{number}", h.apiGetInvoice)
		r.Get("/api/invoices/{number}/pdf", h.apiInvoicePDF)

		// ── Users ─────────────────────────────────────────────────────────────
		r.Get("/api/users", h.apiListClients)
		r.Post("/api/users", h.apiCreateUser)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
