// Package mailer sends transactional email over SMTP. Delivery here is
// best effort; callers that must not fail on mail problems should log
// and continue.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-faster/errors"
)

// Config carries the SMTP relay settings.
type Config struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT" default:"587"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
	From     string `yaml:"from" env:"FROM"`
}

// SMTP sends mail through a single relay.
type SMTP struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTP creates an SMTP mailer from the given config.
func NewSMTP(cfg Config) *SMTP {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTP{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}
}

// Send delivers a plain-text message to a single recipient. The context is
// accepted for interface symmetry; net/smtp does not support cancellation
// mid-session.
func (s *SMTP) Send(_ context.Context, to, subject, body string) error {
	msg := buildMessage(s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
		return errors.Wrapf(err, "send mail to %q", to)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
