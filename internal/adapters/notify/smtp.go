package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/okian/lifespan/pkg/logger"
)

// SMTPMailer sends email through an SMTP relay with gomail.
type SMTPMailer struct {
	from string
	send func(m *gomail.Message) error
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer dials host:port for every message, authenticating when user
// is set.
func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	d := gomail.NewDialer(host, port, user, password)
	return &SMTPMailer{from: from, send: func(m *gomail.Message) error { return d.DialAndSend(m) }}
}

// NewSMTPMailerWithSender sends through s instead of dialing.
func NewSMTPMailerWithSender(s gomail.Sender, from string) *SMTPMailer {
	return &SMTPMailer{from: from, send: func(m *gomail.Message) error { return gomail.Send(s, m) }}
}

func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	if e.Name != "" {
		msg.SetAddressHeader("To", e.To, e.Name)
	} else {
		msg.SetHeader("To", e.To)
	}
	msg.SetHeader("Subject", e.Subject)
	msg.SetBody("text/plain", e.Body)
	if err := m.send(msg); err != nil {
		return fmt.Errorf("smtp: failed to send to %s: %w", e.To, err)
	}
	return nil
}

// LogMailer logs the recipient and subject of each email and sends nothing.
// It stands in for SMTP when no relay is configured.
type LogMailer struct {
	Log logger.Logger
}

var _ Mailer = LogMailer{}

func (m LogMailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	m.Log.Info(ctx, "email not sent, no smtp relay configured",
		logger.String("to", e.To),
		logger.String("subject", e.Subject),
	)
	return nil
}
