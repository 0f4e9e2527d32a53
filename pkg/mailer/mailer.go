package mailer

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/noah-isme/sma-report-scheduler/pkg/config"
)

// Attachment is a file attached to a message.
type Attachment struct {
	Filename string
	Path     string
	Content  []byte
}

// Message is a single outgoing e-mail.
type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	dialer dialer
	from   string
}

// NewSMTPMailer builds a mailer from configuration.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers the message to all recipients in one transaction.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from := msg.From
	if from == "" {
		from = m.from
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)
	for _, att := range msg.Attachments {
		attach(gm, att)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func attach(gm *gomail.Message, att Attachment) {
	if len(att.Content) > 0 || att.Path == "" {
		content := att.Content
		gm.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
		return
	}
	gm.Attach(att.Path, gomail.Rename(att.Filename))
}
