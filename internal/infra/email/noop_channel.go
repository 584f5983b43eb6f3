package email

import (
	"context"
	"fmt"
	"time"

	"course_expiry_notifier/internal/domain/delivery"
	"course_expiry_notifier/internal/domain/provider"

	"github.com/sirupsen/logrus"
)

// NoopChannel logs sends without delivering them. Used in development.
type NoopChannel struct {
	logger *logrus.Entry
}

func NewNoopChannel(logger *logrus.Entry) *NoopChannel {
	return &NoopChannel{logger: logger}
}

func (c *NoopChannel) Send(_ context.Context, msg delivery.Message) (string, error) {
	c.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("noop email send")
	return fmt.Sprintf("noop-%d", time.Now().UnixNano()), nil
}

// NoopFactory ignores the provider credentials and always returns a NoopChannel.
func NoopFactory(logger *logrus.Entry) func(provider.Settings) (delivery.Channel, error) {
	return func(provider.Settings) (delivery.Channel, error) {
		return NewNoopChannel(logger), nil
	}
}
