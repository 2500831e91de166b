package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "freelance-billing/internal/adapters/web"
	"freelance-billing/internal/ai"
	"freelance-billing/internal/app"
	"freelance-billing/internal/config"
	"freelance-billing/internal/core"
	"freelance-billing/internal/db"
	"freelance-billing/internal/notify"
	"freelance-billing/internal/pdf"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
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
	} else {
		log.Println("Warning: OPENAI_API_KEY is not set, quote drafting is disabled")
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTP.Enabled() {
		notifier = notify.NewSMTPNotifier(cfg.SMTP, cfg.CompanyName)
	}

	if cfg.StripeWebhookSecret == "" {
		log.Println("Warning: STRIPE_WEBHOOK_SECRET is not set, card payments cannot be recorded")
	}

	svc := app.NewAppService(users, quotes, payments, invoices, drafter, notifier, pdf.NewRenderer(cfg.CompanyName))

	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins:      cfg.AllowedOrigins,
		JWTSecret:           cfg.JWTSecret,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		Currency:            cfg.Currency,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("server starting on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Println("server stopped")
}
