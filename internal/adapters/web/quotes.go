package web

import (
	"net/http"

	"freelance-billing/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type lineItemBody struct {
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type quoteBody struct {
	ClientID   string          `json:"client_id"`
	Items      []lineItemBody  `json:"items"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	ValidUntil string          `json:"valid_until"`
	Version    int             `json:"version"`
}

func (b quoteBody) lineItems() []app.LineItemInput {
	items := make([]app.LineItemInput, len(b.Items))
	for i, it := range b.Items {
		items[i] = app.LineItemInput{Title: it.Title, Price: it.Price, DiscountPercent: it.DiscountPercent}
	}
	return items
}

// apiListQuotes handles GET /api/quotes?status=.
func (h *Handler) apiListQuotes(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListQuotes(r.Context(), actor(r), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Quotes)
}

// apiCreateQuote handles POST /api/quotes.
func (h *Handler) apiCreateQuote(w http.ResponseWriter, r *http.Request) {
	var body quoteBody
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.CreateQuote(r.Context(), actor(r), app.QuoteRequest{
		ClientID:   body.ClientID,
		Items:      body.lineItems(),
		TaxRate:    body.TaxRate,
		ValidUntil: body.ValidUntil,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, res.Quote)
}

// apiGetQuote handles GET /api/quotes/{id}.
func (h *Handler) apiGetQuote(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetQuote(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Quote)
}

// apiUpdateQuote handles PUT /api/quotes/{id}. The body must carry the version
// the client last read.
func (h *Handler) apiUpdateQuote(w http.ResponseWriter, r *http.Request) {
	var body quoteBody
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.UpdateQuote(r.Context(), actor(r), chi.URLParam(r, "id"), app.UpdateQuoteRequest{
		Version:    body.Version,
		Items:      body.lineItems(),
		TaxRate:    body.TaxRate,
		ValidUntil: body.ValidUntil,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Quote)
}

// apiAcceptQuote handles POST /api/quotes/{id}/accept.
func (h *Handler) apiAcceptQuote(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AcceptQuote(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Quote)
}

// apiRejectQuote handles POST /api/quotes/{id}/reject.
func (h *Handler) apiRejectQuote(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RejectQuote(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Quote)
}

// apiListPayments handles GET /api/quotes/{id}/payments.
func (h *Handler) apiListPayments(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListPayments(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Payments)
}

// apiRecordPayment handles POST /api/quotes/{id}/payments.
// A repeated (method, reference) returns the original receipt with 200 instead of 201.
func (h *Handler) apiRecordPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Method    string          `json:"method"`
		Reference string          `json:"reference"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.RecordPayment(r.Context(), actor(r), app.PaymentRequest{
		QuoteID:   chi.URLParam(r, "id"),
		Method:    body.Method,
		Reference: body.Reference,
		Amount:    body.Amount,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Receipt.Duplicate {
		status = http.StatusOK
	}
	writeJSONStatus(w, status, res.Receipt)
}

// apiDraftQuote handles POST /api/quotes/draft.
func (h *Handler) apiDraftQuote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.DraftQuote(r.Context(), actor(r), body.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]lineItemBody, len(res.Items))
	for i, it := range res.Items {
		items[i] = lineItemBody{Title: it.Title, Price: it.Price, DiscountPercent: it.DiscountPercent}
	}
	writeJSON(w, struct {
		Items      []lineItemBody  `json:"items"`
		TaxRate    decimal.Decimal `json:"tax_rate"`
		Reasoning  string          `json:"reasoning"`
		Confidence float64         `json:"confidence"`
	}{items, res.TaxRate, res.Reasoning, res.Confidence})
}
