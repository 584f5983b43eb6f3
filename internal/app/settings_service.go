package app

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"course_expiry_notifier/internal/domain/delivery"
	"course_expiry_notifier/internal/domain/notification"
	"course_expiry_notifier/internal/domain/provider"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

const (
	defaultTestSubject = "Test notification"
	defaultTestMessage = "This is a **test message** from the course notification service.\n\nIf you can read it, delivery settings work."
)

// markdown renders operator-written test messages. Raw HTML is not passed through.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// TestSendRequest is a manual test message.
type TestSendRequest struct {
	To      string
	Name    string
	Subject string
	Message string // Markdown
}

// SettingsService manages the delivery channel configuration.
type SettingsService struct {
	repo      provider.Repository
	notifRepo notification.Repository
	channels  ChannelFactory
	now       func() time.Time
	logger    *logrus.Entry
}

func NewSettingsService(sr provider.Repository, nr notification.Repository, channels ChannelFactory, logger *logrus.Entry) *SettingsService {
	return &SettingsService{
		repo:      sr,
		notifRepo: nr,
		channels:  channels,
		now:       time.Now,
		logger:    logger,
	}
}

// Get returns the masked settings.
func (s *SettingsService) Get(ctx context.Context) (provider.Masked, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return provider.Masked{}, fmt.Errorf("failed to load provider settings: %w", err)
	}
	return settings.Mask(), nil
}

// Update applies the supplied fields. Last write wins.
func (s *SettingsService) Update(ctx context.Context, patch provider.Patch) (provider.Masked, error) {
	if err := patch.Validate(); err != nil {
		return provider.Masked{}, &ValidationError{Err: err}
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return provider.Masked{}, fmt.Errorf("failed to load provider settings: %w", err)
	}
	patch.Apply(settings)
	if err := s.repo.Save(ctx, settings); err != nil {
		return provider.Masked{}, fmt.Errorf("failed to save provider settings: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"configured": settings.Configured,
		"enabled":    settings.Enabled,
	}).Info("Provider settings updated")
	return settings.Mask(), nil
}

// SendTest sends a manual test message. It fails with a ConfigurationError,
// before recording or sending anything, when the channel is not ready.
func (s *SettingsService) SendTest(ctx context.Context, req TestSendRequest) (*notification.Record, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider settings: %w", err)
	}
	ch, err := channelFor(*settings, s.channels)
	if err != nil {
		return nil, err
	}

	to := strings.TrimSpace(req.To)
	if to == "" {
		to = settings.FromEmail
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("%w: %q", ErrInvalidRecipient, to)}
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = defaultTestSubject
	}
	body := strings.TrimSpace(req.Message)
	if body == "" {
		body = defaultTestMessage
	}
	var html bytes.Buffer
	if err := markdown.Convert([]byte(body), &html); err != nil {
		return nil, invalid("failed to render test message: %v", err)
	}

	rec, err := notification.NewPending(notification.TypeTest, to, strings.TrimSpace(req.Name), notification.ManualOrigin(), s.now())
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	rec.Subject = subject
	rec.TextBody = body
	rec.HTMLBody = html.String()
	if err := s.notifRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record test notification: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{"notification_id": rec.ID, "recipient": to})
	messageID, sendErr := ch.Send(ctx, delivery.Message{To: to, Subject: subject, Text: rec.TextBody, HTML: rec.HTMLBody})
	if sendErr == nil {
		sendErr = rec.MarkSent(messageID, s.now())
	}
	if sendErr != nil {
		_ = rec.MarkFailed(sendErr)
	}
	persistNotificationOutcome(ctx, s.notifRepo, rec, log)

	if sendErr != nil {
		log.WithError(sendErr).Warn("Test notification failed")
		return rec, &delivery.Error{Recipient: to, Err: sendErr}
	}
	log.Info("Test notification sent")
	return rec, nil
}

// nullString is a small helper for optional text columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
