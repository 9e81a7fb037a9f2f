package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Dosada05/pyramid-ladder/config"
)

// SMTPMailer sends mail through the configured server, retrying transient failures.
type SMTPMailer struct {
	cfg            *config.Config
	logger         *slog.Logger
	maxElapsedTime time.Duration
}

func NewSMTPMailer(cfg *config.Config, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger, maxElapsedTime: 30 * time.Second}
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = m.maxElapsedTime

	op := func() error {
		err := m.sendOnce(to, subject, htmlBody)
		if isPermanentSMTPError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		m.logger.Warn("smtp send failed, retrying",
			slog.Any("to", to), slog.Duration("retry_in", d), slog.Any("error", err))
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

// 5xx replies (bad credentials, rejected recipient) will not succeed on retry.
func isPermanentSMTPError(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code >= 500
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	return []byte("To: " + strings.Join(to, ", ") + "\r\n" +
		"From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		htmlBody + "\r\n")
}

func (m *SMTPMailer) sendOnce(to []string, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	tlsconfig := &tls.Config{ServerName: m.cfg.SMTPHost}

	var client *smtp.Client
	if m.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial: %w", err)
		}
		client, err = smtp.NewClient(conn, m.cfg.SMTPHost)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		// STARTTLS
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	defer client.Quit()

	if m.cfg.SMTPUser != "" {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt to: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err = w.Write(buildMessage(m.cfg.SMTPFrom, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return nil
}
