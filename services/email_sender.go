package services

import (
	"fmt"
	"io"

	"school-payment-service/config"
	"school-payment-service/logger"

	"gopkg.in/gomail.v2"
)

// Attachment is an in-memory file attached to an outgoing email.
type Attachment struct {
	Name    string
	Content []byte
}

// SMTPMailer sends mail through the configured SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns nil when SMTP credentials are not configured.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	if cfg.SMTP.User == "" || cfg.SMTP.Pass == "" || cfg.EmailFrom() == "" {
		logger.Info("SMTP is not configured, receipts will not be emailed")
		return nil
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass),
		from:   cfg.EmailFrom(),
	}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string, attachments ...Attachment) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	for _, a := range attachments {
		content := a.Content
		msg.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	logger.Info("Email sent to: %s", to)
	return nil
}
