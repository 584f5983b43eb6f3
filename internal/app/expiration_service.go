// internal/app/expiration_service.go
package app

import (
	"context"
	"time"

	"course_expiry_notifier/internal/domain/delivery"
	"course_expiry_notifier/internal/domain/provider"

	"github.com/sirupsen/logrus"
)

// ChannelFactory builds a delivery channel from a settings snapshot.
type ChannelFactory func(settings provider.Settings) (delivery.Channel, error)

// ExpirationService runs one daily expiration pass: settings snapshot, scan,
// dispatch.
type ExpirationService struct {
	settingsRepo provider.Repository
	scanner      *ExpirationScanner
	dispatcher   *Dispatcher
	channels     ChannelFactory
	logger       *logrus.Entry
}

func NewExpirationService(
	sr provider.Repository,
	scanner *ExpirationScanner,
	dispatcher *Dispatcher,
	channels ChannelFactory,
	logger *logrus.Entry,
) *ExpirationService {
	return &ExpirationService{
		settingsRepo: sr,
		scanner:      scanner,
		dispatcher:   dispatcher,
		channels:     channels,
		logger:       logger,
	}
}

// Run executes the pass for the calendar day of now. Settings are read once and
// the same snapshot serves every send of the run.
func (s *ExpirationService) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	log := s.logger.WithField("run_day", now.Format("2006-01-02"))
	log.Info("Starting expiration run")

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, &ScanError{Stage: "load settings", Err: err}
	}
	ch, err := channelFor(*settings, s.channels)
	if err != nil {
		return nil, err
	}

	jobs, err := s.scanner.Scan(ctx, now)
	if err != nil {
		return nil, &ScanError{Stage: "select courses", Err: err}
	}
	if len(jobs) == 0 {
		log.Info("No courses due for expiration warnings")
		return &RunSummary{}, nil
	}

	summary := s.dispatcher.Dispatch(ctx, ch, now, jobs)
	log.WithFields(logrus.Fields{
		"courses":    summary.Courses,
		"recipients": summary.Recipients,
		"sent":       summary.Sent,
		"failed":     summary.Failed,
		"skipped":    summary.Skipped,
		"errors":     summary.Errors,
	}).Info("Expiration run finished")
	return &summary, nil
}

// channelFor refuses snapshots that are not configured or not enabled.
func channelFor(settings provider.Settings, factory ChannelFactory) (delivery.Channel, error) {
	if !settings.Ready() {
		if !settings.Configured {
			return nil, &ConfigurationError{Reason: "provider settings are incomplete (API key and sender address are required)"}
		}
		return nil, &ConfigurationError{Reason: "delivery channel is disabled"}
	}
	ch, err := factory(settings)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	return ch, nil
}
