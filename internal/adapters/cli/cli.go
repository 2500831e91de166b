package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"freelance-billing/internal/app"
	"freelance-billing/internal/core"
)

// operator is the identity CLI commands run as. Whoever can run the binary already
// holds the database credentials, so it acts with admin rights.
var operator = app.Actor{Role: core.RoleAdmin}

const usage = `Usage: app <command> [args]
  create-user <email> <name> <password> <admin|client>
  clients
  quotes [status]
  show <quote-id>
  accept <quote-id>
  reject <quote-id>
  pay <quote-id> <cash|other> [reference]
  invoices
  invoice-pdf <number> <file>`

// Run executes a one-shot CLI command, writing human-readable output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	switch args[0] {
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage)

	case "create-user":
		if len(args) != 5 {
			return fmt.Errorf("usage: app create-user <email> <name> <password> <admin|client>")
		}
		res, err := svc.CreateUser(ctx, operator, app.CreateUserRequest{
			Email: args[1], Name: args[2], Password: args[3], Role: args[4],
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created %s %s (%s)\n", res.User.Role, res.User.Email, res.User.ID)

	case "clients":
		res, err := svc.ListClients(ctx, operator)
		if err != nil {
			return err
		}
		printClients(out, res.Users)

	case "quotes", "q":
		status := ""
		if len(args) > 1 {
			status = args[1]
		}
		res, err := svc.ListQuotes(ctx, operator, status)
		if err != nil {
			return err
		}
		printQuotes(out, res.Quotes)

	case "show":
		if len(args) != 2 {
			return fmt.Errorf("usage: app show <quote-id>")
		}
		res, err := svc.GetQuote(ctx, operator, args[1])
		if err != nil {
			return err
		}
		printQuote(out, res.Quote)

	case "accept", "reject":
		if len(args) != 2 {
			return fmt.Errorf("usage: app %s <quote-id>", args[0])
		}
		transition := svc.AcceptQuote
		if args[0] == "reject" {
			transition = svc.RejectQuote
		}
		res, err := transition(ctx, operator, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Quote %s is now %s.\n", res.Quote.ID, res.Quote.Status)

	case "pay":
		if len(args) < 3 || len(args) > 4 {
			return fmt.Errorf("usage: app pay <quote-id> <cash|other> [reference]")
		}
		if strings.EqualFold(strings.TrimSpace(args[2]), string(core.PaymentMethodCard)) {
			return fmt.Errorf("card payments are recorded by the payment gateway webhook")
		}
		req := app.PaymentRequest{QuoteID: args[1], Method: args[2]}
		if len(args) == 4 {
			req.Reference = args[3]
		}
		res, err := svc.RecordPayment(ctx, operator, req)
		if err != nil {
			return err
		}
		if res.Receipt.Duplicate {
			fmt.Fprintf(out, "Payment was already recorded; invoice #%d unchanged.\n", res.Receipt.Invoice.InvoiceNumber)
			return nil
		}
		fmt.Fprintf(out, "Recorded %s payment of %s. Invoice #%d issued.\n",
			res.Receipt.Payment.Method, res.Receipt.Payment.Amount.StringFixed(2), res.Receipt.Invoice.InvoiceNumber)

	case "invoices", "inv":
		res, err := svc.ListInvoices(ctx, operator)
		if err != nil {
			return err
		}
		printInvoices(out, res.Invoices)

	case "invoice-pdf":
		if len(args) != 3 {
			return fmt.Errorf("usage: app invoice-pdf <number> <file>")
		}
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid invoice number %q", args[1])
		}
		res, err := svc.RenderInvoicePDF(ctx, operator, n)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[2], res.Content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[2], err)
		}
		fmt.Fprintf(out, "Wrote %s (%d bytes).\n", args[2], len(res.Content))

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func printClients(out io.Writer, users []core.User) {
	fmt.Fprintf(out, "%-36s  %-30s  %s\n", "ID", "EMAIL", "NAME")
	for _, u := range users {
		fmt.Fprintf(out, "%-36s  %-30s  %s\n", u.ID, u.Email, u.Name)
	}
}

func printQuotes(out io.Writer, quotes []core.Quote) {
	fmt.Fprintln(out, strings.Repeat("=", 86))
	fmt.Fprintf(out, "  %-36s  %-9s  %12s  %-10s  %s\n", "QUOTE", "STATUS", "TOTAL", "VALID", "INVOICE")
	fmt.Fprintln(out, strings.Repeat("-", 86))
	for _, q := range quotes {
		invoice := "-"
		if q.InvoiceNumber != nil {
			invoice = "#" + strconv.FormatInt(*q.InvoiceNumber, 10)
		}
		fmt.Fprintf(out, "  %-36s  %-9s  %12s  %-10s  %s\n",
			q.ID, q.Status, q.Total.StringFixed(2), q.ValidUntil.Format("2006-01-02"), invoice)
	}
	fmt.Fprintln(out, strings.Repeat("=", 86))
}

func printQuote(out io.Writer, q *core.Quote) {
	fmt.Fprintf(out, "Quote   %s (v%d)\n", q.ID, q.Version)
	fmt.Fprintf(out, "Client  %s\n", q.ClientID)
	fmt.Fprintf(out, "Status  %s, valid until %s\n", q.Status, q.ValidUntil.Format("2006-01-02"))
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, it := range q.Items {
		discount := ""
		if !it.DiscountPercent.IsZero() {
			discount = "-" + it.DiscountPercent.String() + "%"
		}
		fmt.Fprintf(out, "  %-40s %10s %8s\n", it.Title, it.Price.StringFixed(2), discount)
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-40s %10s\n", "Subtotal", q.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "  %-40s %10s\n", "Tax", q.TaxAmount.StringFixed(2))
	fmt.Fprintf(out, "  %-40s %10s\n", "Total", q.Total.StringFixed(2))
	if q.InvoiceNumber != nil {
		fmt.Fprintf(out, "Invoice #%d on %s\n", *q.InvoiceNumber, q.InvoiceDate.Format("2006-01-02"))
	}
}

func printInvoices(out io.Writer, invoices []core.Invoice) {
	fmt.Fprintf(out, "%8s  %-10s  %-36s  %12s\n", "NUMBER", "DATE", "QUOTE", "TOTAL")
	for _, inv := range invoices {
		fmt.Fprintf(out, "%8d  %-10s  %-36s  %12s\n",
			inv.InvoiceNumber, inv.InvoiceDate.Format("2006-01-02"), inv.QuoteID, inv.Total.StringFixed(2))
	}
}
