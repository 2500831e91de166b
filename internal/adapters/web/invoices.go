package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// apiListInvoices handles GET /api/invoices.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListInvoices(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Invoices)
}

// apiGetInvoice handles GET /api/invoices/{number}.
func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	number, ok := invoiceNumber(w, r)
	if !ok {
		return
	}
	res, err := h.svc.GetInvoice(r.Context(), actor(r), number)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Invoice)
}

// apiInvoicePDF handles GET /api/invoices/{number}/pdf.
func (h *Handler) apiInvoicePDF(w http.ResponseWriter, r *http.Request) {
	number, ok := invoiceNumber(w, r)
	if !ok {
		return
	}
	res, err := h.svc.RenderInvoicePDF(r.Context(), actor(r), number)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Content)))
	_, _ = w.Write(res.Content)
}

func invoiceNumber(w http.ResponseWriter, r *http.Request) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil || n <= 0 {
		writeError(w, r, "invoice number must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}
