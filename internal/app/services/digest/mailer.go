package digest

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gigledger/gigledger/pkg/logger"
)

// LogMailer writes digests to the log instead of delivering them. Used when
// no SMTP server is configured.
type LogMailer struct {
	Log *logger.Logger
}

var _ Mailer = (*LogMailer)(nil)

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	log := m.Log
	if log == nil {
		log = logger.NewDefault("mailer")
	}
	log.WithField("to", to).WithField("subject", subject).Info("digest email (log only)")
	return nil
}

// SMTPMailer delivers digests through a plain SMTP relay.
type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

var _ Mailer = (*SMTPMailer)(nil)

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send digest to %s: %w", to, err)
	}
	return nil
}
