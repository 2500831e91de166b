package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"freelance-billing/internal/adapters/cli"
	"freelance-billing/internal/adapters/repl"
	"freelance-billing/internal/ai"
	"freelance-billing/internal/app"
	"freelance-billing/internal/config"
	"freelance-billing/internal/core"
	"freelance-billing/internal/db"
	"freelance-billing/internal/notify"
	"freelance-billing/internal/pdf"
)

func main() {
	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	users := core.NewUserService(pool)
	sequencer := core.NewInvoiceSequencer(pool)
	quotes := core.NewQuoteService(pool, sequencer)
	invoices := core.NewInvoiceService(pool)
	payments := core.NewPaymentRecorder(pool, quotes, invoices)

	var drafter ai.QuoteDrafter
	if cfg.OpenAIAPIKey != "" {
		drafter = ai.NewDrafter(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTP.Enabled() {
		notifier = notify.NewSMTPNotifier(cfg.SMTP, cfg.CompanyName)
	}

	svc := app.NewAppService(users, quotes, payments, invoices, drafter, notifier, pdf.NewRenderer(cfg.CompanyName))

	if len(os.Args) > 1 {
		if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := repl.Run(ctx, svc, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
