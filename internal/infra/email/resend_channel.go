package email

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"course_expiry_notifier/internal/domain/delivery"
	"course_expiry_notifier/internal/domain/provider"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// ResendChannel sends emails via the Resend API.
type ResendChannel struct {
	client  *resend.Client
	from    string
	replyTo string
	logger  *logrus.Entry
}

// NewResendChannel builds a channel from a settings snapshot.
// PRE: settings carry an API key and a sender address
func NewResendChannel(settings provider.Settings, logger *logrus.Entry) (*ResendChannel, error) {
	if settings.APIKey == "" || settings.FromEmail == "" {
		return nil, fmt.Errorf("resend channel requires an API key and a sender address")
	}
	client := resend.NewClient(settings.APIKey)
	if settings.Endpoint != "" {
		base, err := url.Parse(strings.TrimRight(settings.Endpoint, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid resend endpoint: %w", err)
		}
		client.BaseURL = base
	}

	return &ResendChannel{
		client:  client,
		from:    senderAddress(settings.FromName, settings.FromEmail),
		replyTo: settings.ReplyTo,
		logger:  logger,
	}, nil
}

// Factory adapts NewResendChannel to the application's channel factory.
func Factory(logger *logrus.Entry) func(provider.Settings) (delivery.Channel, error) {
	return func(s provider.Settings) (delivery.Channel, error) {
		return NewResendChannel(s, logger)
	}
}

// Send sends one email and returns the Resend message ID.
func (c *ResendChannel) Send(ctx context.Context, msg delivery.Message) (string, error) {
	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if c.replyTo != "" {
		params.ReplyTo = c.replyTo
	}

	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Error("Resend send failed")
		return "", &delivery.Error{Recipient: msg.To, Err: err}
	}
	if sent == nil || sent.Id == "" {
		return "", delivery.Errorf(msg.To, "resend returned no message id")
	}

	c.logger.WithFields(logrus.Fields{"message_id": sent.Id, "to": msg.To}).Debug("Resend accepted email")
	return sent.Id, nil
}

func senderAddress(name, address string) string {
	if strings.TrimSpace(name) == "" {
		return address
	}
	return (&mail.Address{Name: name, Address: address}).String()
}
