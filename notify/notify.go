// Package notify delivers best-effort mail to citizens and department
// contacts. Senders are injected into services so tests can record instead
// of dispatching.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"driva/apperr"
)

// ErrSend signals a delivery failure. Callers treat it as non-fatal unless
// stated otherwise (department invitations compensate on it).
var ErrSend = fmt.Errorf("notify: send failed: %w", apperr.ErrNotification)

// Message is a plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender dispatches a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender builds a sender for the relay at addr (host:port).
func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	if msg.To == "" {
		return fmt.Errorf("%w: empty recipient", ErrSend)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n\r\n", msg.Subject)
	b.WriteString(msg.Body)

	if err := smtp.SendMail(s.addr, nil, s.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	return nil
}

// LogSender records messages to the log instead of dispatching them. Used in
// development when no relay is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail suppressed (no relay configured)",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
