package mail

import (
	"bytes"
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/metrics"
)

type Attachment struct {
	Filename string
	Content  []byte
}

// Message is one templated email. When Locale is set the subject is taken from
// the localized title table and the template from customer/{lang}/.
type Message struct {
	To          string
	Subject     string
	Template    string
	Context     map[string]interface{}
	Bcc         []string
	Attachments []Attachment
	Locale      string
}

// Transport delivers a composed message.
type Transport interface {
	Send(ctx context.Context, msg *gomail.Msg) error
}

type Notifier struct {
	transport   Transport
	fromAddress string
	fromName    string
	logger      logger.Logger
}

func NewNotifier(transport Transport, fromAddress, fromName string, log logger.Logger) *Notifier {
	return &Notifier{
		transport:   transport,
		fromAddress: fromAddress,
		fromName:    fromName,
		logger:      log,
	}
}

// Send renders and delivers msg. Every failure is reported as EMAIL_SENDING_FAILED.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	err := n.send(ctx, msg)
	metrics.FulfillmentNotifications.WithLabelValues(msg.Template, metrics.ResultLabel(err)).Inc()
	if err != nil {
		n.logger.Error("email sending failed", map[string]interface{}{
			"template": msg.Template,
			"to":       msg.To,
			"error":    err,
		})
		return errors.NewEmailSendingFailedError(msg.Template, err)
	}
	n.logger.Info("email sent", map[string]interface{}{
		"template": msg.Template,
		"to":       msg.To,
	})
	return nil
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	m, err := n.compose(msg)
	if err != nil {
		return err
	}
	return n.transport.Send(ctx, m)
}

func (n *Notifier) compose(msg Message) (*gomail.Msg, error) {
	name, subject := resolve(msg)
	body, err := render(name, msg.Context)
	if err != nil {
		return nil, err
	}

	m := gomail.NewMsg()
	if err := m.FromFormat(n.fromName, n.fromAddress); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	if len(msg.Bcc) > 0 {
		if err := m.Bcc(msg.Bcc...); err != nil {
			return nil, fmt.Errorf("mail bcc: %w", err)
		}
	}
	m.Subject(subject)
	m.SetBodyString(gomail.TypeTextHTML, body)

	for _, att := range msg.Attachments {
		if err := m.AttachReader(att.Filename, bytes.NewReader(att.Content)); err != nil {
			return nil, fmt.Errorf("mail attachment %s: %w", att.Filename, err)
		}
	}
	return m, nil
}
