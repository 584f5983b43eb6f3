package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"course_expiry_notifier/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner executes one expiration pass.
type Runner interface {
	Run(ctx context.Context, now time.Time) (*app.RunSummary, error)
}

// RunLocker guards a run across instances. Optional.
type RunLocker interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// Alerter reports run outcomes to an operator. Optional.
type Alerter interface {
	RunFailed(runAt time.Time, err error)
	RunCompleted(runAt time.Time, summary *app.RunSummary)
}

type NotificationScheduler struct {
	cronEngine *cron.Cron
	runner     Runner
	locker     RunLocker
	alerter    Alerter
	logger     *logrus.Entry
	cronSpec   string // e.g., "0 9 * * *" (9:00 AM daily)
	location   *time.Location
	runTimeout time.Duration
	now        func() time.Time

	running sync.Mutex // held for the duration of a run
}

func NewNotificationScheduler(
	runner Runner,
	logger *logrus.Entry,
	cronSpec string,
	location *time.Location,
	runTimeout time.Duration,
) *NotificationScheduler {
	if location == nil {
		location = time.Local
	}
	return &NotificationScheduler{
		cronEngine: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		runner:     runner,
		logger:     logger,
		cronSpec:   cronSpec,
		location:   location,
		runTimeout: runTimeout,
		now:        time.Now,
	}
}

// WithLocker enables the cross-instance run lock.
func (s *NotificationScheduler) WithLocker(l RunLocker) *NotificationScheduler {
	s.locker = l
	return s
}

// WithAlerter enables operator alerts.
func (s *NotificationScheduler) WithAlerter(a Alerter) *NotificationScheduler {
	s.alerter = a
	return s
}

func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for daily expiration check.")
		s.scheduledRun()
	})
	if err != nil {
		return fmt.Errorf("could not add expiration check cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Notification scheduler started.")
	return nil
}

func (s *NotificationScheduler) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	summary, err := s.execute(ctx)
	runAt := s.now().In(s.location)
	var cfgErr *app.ConfigurationError
	switch {
	case errors.Is(err, app.ErrRunInProgress):
		s.logger.Warn("Expiration run skipped, another run holds the lock.")
	case errors.As(err, &cfgErr):
		s.logger.WithError(err).Warn("Expiration run skipped, delivery channel not ready.")
	case err != nil:
		s.logger.WithError(err).WithField("run_day", runAt.Format("2006-01-02")).Error("Expiration run failed.")
		if s.alerter != nil {
			s.alerter.RunFailed(runAt, err)
		}
	default:
		if s.alerter != nil {
			s.alerter.RunCompleted(runAt, summary)
		}
	}
}

// RunNow runs the expiration check immediately. It returns ErrRunInProgress
// when a scheduled or manual run is active.
func (s *NotificationScheduler) RunNow(ctx context.Context) (*app.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()
	return s.execute(ctx)
}

func (s *NotificationScheduler) execute(ctx context.Context) (*app.RunSummary, error) {
	if !s.running.TryLock() {
		return nil, app.ErrRunInProgress
	}
	defer s.running.Unlock()

	now := s.now().In(s.location)
	if s.locker != nil {
		release, acquired, err := s.locker.Acquire(ctx, "expiration-run:"+now.Format("2006-01-02"))
		if err != nil {
			return nil, &app.ScanError{Stage: "acquire run lock", Err: err}
		}
		if !acquired {
			return nil, app.ErrRunInProgress
		}
		defer release()
	}

	return s.runner.Run(ctx, now)
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	// Wait for a manual run as well.
	s.running.Lock()
	s.running.Unlock()
	s.logger.Info("Notification scheduler gracefully stopped.")
}
