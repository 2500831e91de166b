package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"freelance-billing/internal/config"
	"freelance-billing/internal/core"
)

// SMTPNotifier sends notifications as plain-text mail. Port 465 uses implicit TLS;
// any other port upgrades with STARTTLS when the server offers it.
type SMTPNotifier struct {
	cfg     config.SMTPConfig
	company string
}

// NewSMTPNotifier constructs an SMTPNotifier signing mail with company.
func NewSMTPNotifier(cfg config.SMTPConfig, company string) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, company: company}
}

func (n *SMTPNotifier) QuoteStatusChanged(ctx context.Context, q *core.Quote, recipient *core.User) error {
	subject, body := composeStatusMail(q, recipient, n.company)
	return n.send(ctx, recipient.Email, subject, body)
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	client, err := n.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", n.cfg.Host, err)
	}
	defer client.Close()

	if n.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth failed: %w", err)
			}
		}
	}
	if err := client.Mail(parseAddress(n.cfg.From)); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(n.cfg.From, to, subject, body))); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}

func (n *SMTPNotifier) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprint(n.cfg.Port))
	tlsConfig := &tls.Config{ServerName: n.cfg.Host}

	if n.cfg.Port == 465 {
		d := tls.Dialer{Config: tlsConfig}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return newClient(conn, n.cfg.Host)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	client, err := newClient(conn, n.cfg.Host)
	if err != nil {
		return nil, err
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

// newClient reads the server greeting on conn. The connection is closed if the
// handshake fails.
func newClient(conn net.Conn, host string) (*smtp.Client, error) {
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

func buildMessage(from, to, subject, body string) string {
	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		strings.ReplaceAll(body, "\n", "\r\n"),
	}
	return strings.Join(headers, "\r\n")
}

// parseAddress extracts the bare address from "Name <addr>".
func parseAddress(from string) string {
	start := strings.Index(from, "<")
	end := strings.Index(from, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return strings.TrimSpace(from)
}
