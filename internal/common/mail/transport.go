package mail

import (
	"bytes"
	"context"
	"fmt"
	netmail "net/mail"
	"time"

	gomail "github.com/wneessen/go-mail"

	"fulfillment-workers/internal/common/config"
)

// SMTPTransport delivers over a direct SMTP connection. Used in development.
type SMTPTransport struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
}

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		useTLS:   cfg.UseTLS,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(t.port),
		gomail.WithTimeout(15 * time.Second),
	}
	if t.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.username),
			gomail.WithPassword(t.password),
		)
	}
	if t.useTLS {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(t.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// RawSender is satisfied by aws.SESClient.
type RawSender interface {
	SendRaw(ctx context.Context, raw []byte, destinations []string) (string, error)
}

// SESTransport writes the MIME message and hands it to SES SendRawEmail.
type SESTransport struct {
	client RawSender
}

func NewSESTransport(client RawSender) *SESTransport {
	return &SESTransport{client: client}
}

func (t *SESTransport) Send(ctx context.Context, msg *gomail.Msg) error {
	rcpts := envelopeRecipients(msg)
	if len(rcpts) == 0 {
		return fmt.Errorf("ses recipients: no recipients")
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("ses encode: %w", err)
	}
	if _, err := t.client.SendRaw(ctx, buf.Bytes(), rcpts); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// envelopeRecipients lists the bare To, Cc and Bcc addresses. SES rejects the
// bracketed form go-mail uses for SMTP RCPT commands.
func envelopeRecipients(msg *gomail.Msg) []string {
	var out []string
	for _, group := range [][]*netmail.Address{msg.GetTo(), msg.GetCc(), msg.GetBcc()} {
		for _, addr := range group {
			out = append(out, addr.Address)
		}
	}
	return out
}
