package delivery

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPProvider sends plain-text mail directly over SMTP with PLAIN auth.
// Interchangeable with the API-backed provider for self-hosted setups.
type SMTPProvider struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPProvider(host string, port int, username, password, from string) *SMTPProvider {
	return &SMTPProvider{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (p *SMTPProvider) Type() string { return "smtp" }

func (p *SMTPProvider) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		p.from,
		to,
		subject,
		body,
	)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	auth := smtp.PlainAuth("", p.username, p.password, p.host)

	if err := smtp.SendMail(addr, auth, p.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp: failed to send to %s: %w", to, err)
	}

	return nil
}
