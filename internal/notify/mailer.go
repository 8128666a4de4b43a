package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	mail "github.com/go-mail/mail/v2"
)

// Sender sends a plain-text email.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

var ErrMailNotConfigured = errors.New("smtp not configured (SMTP_HOST/SMTP_FROM)")

// SMTPMailer sends over SMTP with mandatory STARTTLS.
type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, pass, from string, skipTLSVerify bool) (*SMTPMailer, error) {
	if host == "" || from == "" {
		return nil, ErrMailNotConfigured
	}
	if port == 0 {
		port = 587
	}

	d := mail.NewDialer(host, port, user, pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: skipTLSVerify,
	}
	d.Timeout = 10 * time.Second

	return &SMTPMailer{dialer: d, from: from}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
