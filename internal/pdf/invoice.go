// Package pdf renders invoice snapshots as printable documents.
package pdf

import (
	"bytes"
	"fmt"

	"freelance-billing/internal/core"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Renderer draws invoices on A4 with the built-in Helvetica font, so no font files
// need to ship with the binary.
type Renderer struct {
	Company string
}

// NewRenderer returns a Renderer that prints company in the header.
func NewRenderer(company string) *Renderer {
	return &Renderer{Company: company}
}

// Render produces the PDF bytes for inv addressed to client.
func (r *Renderer) Render(inv *core.Invoice, client *core.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Invoice %d", inv.InvoiceNumber), true)
	pdf.SetCreator(r.Company, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(r.Company))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, fmt.Sprintf("Invoice #%d", inv.InvoiceNumber))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Date: "+inv.InvoiceDate.Format("2006-01-02"))
	pdf.Ln(6)
	if client != nil {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Bill to: %s <%s>", client.Name, client.Email)))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, "Quote: "+inv.QuoteID.String())
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(100, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Discount", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range inv.Items {
		pdf.CellFormat(100, 6, tr(trim(it.Title, 55)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, it.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, discountLabel(it.DiscountPercent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, lineAmount(it).StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	totalRow(pdf, "Subtotal", inv.Subtotal, false)
	totalRow(pdf, fmt.Sprintf("Tax (%s%%)", inv.TaxRate.Mul(hundred).String()), inv.TaxAmount, false)
	totalRow(pdf, "Total", inv.Total, true)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice %d: %w", inv.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

func totalRow(pdf *gofpdf.Fpdf, label string, amount decimal.Decimal, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	pdf.CellFormat(155, 6, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, amount.StringFixed(2), "", 1, "R", false, 0, "")
}

// lineAmount is the discounted line value rounded to cents for display. The
// subtotal rounds the unrounded sum, so printed lines may differ from it by a cent.
func lineAmount(it core.LineItem) decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(1).Sub(it.DiscountPercent.Div(hundred))).Round(2)
}

func discountLabel(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	return d.String() + "%"
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
