package signup

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/go-faster/errors"
)

// SMTPConfig holds the mail relay settings for signup notifications.
type SMTPConfig struct {
	Host    string
	Port    string
	From    string
	Subject string
}

// SMTPMailer sends welcome emails through a plain SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Subject == "" {
		cfg.Subject = "You're on the list"
	}
	return &SMTPMailer{cfg: cfg}
}

var _ Mailer = (*SMTPMailer)(nil)

// SendWelcome delivers the signup confirmation to the given address.
func (m *SMTPMailer) SendWelcome(_ context.Context, email string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, email, m.cfg.Subject, welcomeBody)
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := smtp.SendMail(addr, nil, m.cfg.From, []string{email}, []byte(msg)); err != nil {
		return errors.Wrap(err, "send mail")
	}
	return nil
}

const welcomeBody = `Thanks for signing up.

You'll be the first to know when the next drop goes live.
`
