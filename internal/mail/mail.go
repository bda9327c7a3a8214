package mail

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// Message is one outgoing mail with an optional single attachment.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Sender delivers quotation mails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail has no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := Build(s.from, msg)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

// Build converts msg into a gomail message.
func Build(from string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	if len(msg.Attachment) > 0 {
		data := msg.Attachment
		m.Attach(msg.AttachmentName,
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}
	return m
}

// NopSender is used when SMTP is not configured. It refuses to send so callers
// never report a mail as delivered.
type NopSender struct{}

func (NopSender) Send(context.Context, Message) error {
	return fmt.Errorf("mail delivery is not configured")
}
