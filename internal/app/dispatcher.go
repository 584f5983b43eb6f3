// internal/app/dispatcher.go
package app

import (
	"context"
	"sync"
	"time"

	"course_expiry_notifier/internal/domain/delivery"
	"course_expiry_notifier/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const outcomeWriteTimeout = 10 * time.Second

// RunSummary counts what one dispatch pass did.
type RunSummary struct {
	Courses    int
	Recipients int
	Sent       int
	Failed     int
	Skipped    int // already notified today
	Errors     int // store failures, recipient not attempted
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeSkipped
	outcomeError
)

func (s *RunSummary) add(o outcome) {
	switch o {
	case outcomeSent:
		s.Sent++
	case outcomeFailed:
		s.Failed++
	case outcomeSkipped:
		s.Skipped++
	case outcomeError:
		s.Errors++
	}
}

// Dispatcher sends warnings for scanned jobs and records every attempt.
type Dispatcher struct {
	notifRepo   notification.Repository
	limiter     *rate.Limiter
	concurrency int
	now         func() time.Time
	logger      *logrus.Entry
}

// NewDispatcher builds a dispatcher running at most concurrency sends at once
// and at most ratePerSec sends per second.
func NewDispatcher(nr notification.Repository, concurrency, ratePerSec int, logger *logrus.Entry) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	burst := 1
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
		burst = ratePerSec
	}
	return &Dispatcher{
		notifRepo:   nr,
		limiter:     rate.NewLimiter(limit, burst),
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}
}

// Dispatch delivers every job through ch. runDay is the calendar day used for
// the once-per-day guard. A recipient's failure never affects another.
func (d *Dispatcher) Dispatch(ctx context.Context, ch delivery.Channel, runDay time.Time, jobs []Job) RunSummary {
	summary := RunSummary{Courses: len(jobs)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, job := range jobs {
		recipients := ResolveRecipients(job.Course)
		if len(recipients) == 0 {
			d.logger.WithField("course_id", job.Course.ID).Warn("Course has no recipients with an email address")
			continue
		}
		mu.Lock()
		summary.Recipients += len(recipients)
		mu.Unlock()

		for _, rc := range recipients {
			g.Go(func() error {
				o := d.deliver(ctx, ch, runDay, job, rc)
				mu.Lock()
				summary.add(o)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	return summary
}

func (d *Dispatcher) deliver(ctx context.Context, ch delivery.Channel, runDay time.Time, job Job, rc Recipient) outcome {
	c := job.Course
	typ := job.Lookahead.NotificationType()
	log := d.logger.WithFields(logrus.Fields{
		"course_id": c.ID,
		"type":      typ,
		"recipient": rc.Email,
	})

	dayStart, dayEnd := DayWindow(runDay, 0)
	exists, err := d.notifRepo.HasActive(ctx, notification.DedupKey{
		CourseID:       c.ID,
		Type:           typ,
		RecipientEmail: rc.Email,
		DayStart:       dayStart,
		DayEnd:         dayEnd,
	})
	if err != nil {
		log.WithError(err).Error("Failed to check for an earlier notification, recipient skipped")
		return outcomeError
	}
	if exists {
		log.Info("Recipient already notified today, skipping")
		return outcomeSkipped
	}

	msg, err := RenderExpirationMessage(MessageParams{
		RecipientName: rc.Name,
		CourseName:    c.Name,
		ExpiresAt:     c.ExpiresAt.In(runDay.Location()),
		DaysRemaining: job.Lookahead.Days(),
		Completion:    c.Completion,
	})
	if err != nil {
		log.WithError(err).Error("Failed to render notification, recipient skipped")
		return outcomeError
	}

	rec, err := notification.NewPending(typ, rc.Email, rc.Name, notification.CourseOrigin(c.ID, c.Name), d.now())
	if err != nil {
		log.WithError(err).Error("Invalid recipient")
		return outcomeError
	}
	rec.Subject = msg.Subject
	rec.TextBody = msg.Text
	rec.HTMLBody = msg.HTML
	rec.UserID = nullString(rc.UserID)

	if err := d.notifRepo.Create(ctx, rec); err != nil {
		log.WithError(err).Error("Failed to record pending notification, recipient skipped")
		return outcomeError
	}

	sendErr := d.limiter.Wait(ctx)
	var messageID string
	if sendErr == nil {
		messageID, sendErr = ch.Send(ctx, delivery.Message{
			To:      rec.RecipientEmail,
			Subject: rec.Subject,
			Text:    rec.TextBody,
			HTML:    rec.HTMLBody,
		})
	}
	if sendErr == nil {
		sendErr = rec.MarkSent(messageID, d.now())
	}
	result := outcomeSent
	if sendErr != nil {
		_ = rec.MarkFailed(sendErr)
		result = outcomeFailed
		log.WithError(sendErr).Warn("Notification delivery failed")
	} else {
		log.WithField("message_id", messageID).Info("Notification sent")
	}

	persistNotificationOutcome(ctx, d.notifRepo, rec, log)
	return result
}

// persistNotificationOutcome writes the terminal record even when the run
// context has already expired.
func persistNotificationOutcome(ctx context.Context, repo notification.Repository, rec *notification.Record, log *logrus.Entry) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
	defer cancel()
	if err := repo.UpdateOutcome(wctx, rec); err != nil {
		log.WithError(err).WithField("notification_id", rec.ID).Error("Failed to record notification outcome")
	}
}
