package auth

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ConsoleMailer writes outbound messages to the logger instead of sending
// them. Intended for development, where the confirmation link needs to be
// visible without a mail relay.
type ConsoleMailer struct {
	logger Logger
}

func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{logger: defLogger{}}
}

func (m *ConsoleMailer) WithLogger(logger Logger) *ConsoleMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *ConsoleMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("outbound email\nTo: %s\nSubject: %s\n%s", to, subject, body)
	return nil
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger Logger
}

// NewSMTPMailer configures a relay at addr (host:port) sending as from. Pass
// nil auth for an open relay.
func NewSMTPMailer(addr, from string, auth smtp.Auth) *SMTPMailer {
	return &SMTPMailer{
		addr:   addr,
		from:   from,
		auth:   auth,
		logger: defLogger{},
	}
}

func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before mail dispatch")
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "smtp delivery failed").
			WithMetadata(map[string]any{"relay": m.addr})
	}

	m.logger.Debug("email delivered", "to", to, "subject", subject)
	return nil
}
