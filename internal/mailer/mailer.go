package mailer

import (
	"fmt"
	"io"
	"libris/internal/config"

	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"
)

// Message is one outbound email with an optional attachment.
type Message struct {
	To             string
	Subject        string
	HTMLBody       string
	AttachmentName string
	Attachment     []byte
}

// Mailer delivers addressed messages.
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer implements Mailer over SMTP.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the SMTP server and delivers the message. Each send uses
// its own connection; there is no persistent session to manage.
func (m *SMTPMailer) Send(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}

	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", msg.To)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/html", msg.HTMLBody)

	if len(msg.Attachment) > 0 {
		mail.Attach(msg.AttachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(msg.Attachment)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(mail); err != nil {
		log.Error().
			Err(err).
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachmentSize", len(msg.Attachment)).
		Msg("Email sent")

	return nil
}
