// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the binaries read at startup.
type Config struct {
	HTTPAddr       string
	DatabaseURL    string
	JWTSecret      string
	AllowedOrigins string

	StripeWebhookSecret string
	// Currency is the lowercase ISO code quotes are billed in; gateway payments in
	// any other currency are refused.
	Currency string

	OpenAIAPIKey string
	OpenAIModel  string

	SMTP SMTPConfig

	CompanyName string
}

// SMTPConfig configures outbound notification mail. Host empty disables SMTP.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether a mail host is configured.
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// Load reads .env (if present) and then the process environment. Variables already
// set in the environment win over .env entries.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(true)
}

// LoadDatabase is Load for tools that only need DATABASE_URL.
func LoadDatabase() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(false)
}

// FromEnv builds a Config from the current environment. When full is false only
// DATABASE_URL is required.
func FromEnv(full bool) (Config, error) {
	port, err := strconv.Atoi(env("SMTP_PORT", "587"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg := Config{
		HTTPAddr:            env("HTTP_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AllowedOrigins:      os.Getenv("ALLOWED_ORIGINS"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToLower(strings.TrimSpace(env("BILLING_CURRENCY", "eur"))),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         env("OPENAI_MODEL", "gpt-4o"),
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
			Port:     port,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     env("SMTP_FROM", os.Getenv("SMTP_USERNAME")),
		},
		CompanyName: env("INVOICE_COMPANY_NAME", "Freelance Billing"),
	}

	missing := []string{}
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if full && cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing env %s", strings.Join(missing, ", "))
	}
	if len(cfg.Currency) != 3 {
		return Config{}, fmt.Errorf("invalid BILLING_CURRENCY %q: want a three-letter ISO code", cfg.Currency)
	}
	if cfg.SMTP.Enabled() && cfg.SMTP.From == "" {
		return Config{}, fmt.Errorf("SMTP_FROM or SMTP_USERNAME must be set when SMTP_HOST is set")
	}
	return cfg, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
