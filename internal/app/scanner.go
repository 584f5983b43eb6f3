// internal/app/scanner.go
package app

import (
	"context"
	"fmt"
	"time"

	"course_expiry_notifier/internal/domain/course"
	"course_expiry_notifier/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// Lookahead is the warning threshold a selected course matched, in days.
type Lookahead int

const (
	Lookahead7Day Lookahead = 7
	Lookahead1Day Lookahead = 1
)

// scanOrder is the order in which lookahead windows are selected.
var scanOrder = []Lookahead{Lookahead7Day, Lookahead1Day}

func (l Lookahead) Days() int { return int(l) }

func (l Lookahead) NotificationType() notification.Type {
	if l == Lookahead1Day {
		return notification.TypeWarn1Day
	}
	return notification.TypeWarn7Day
}

func (l Lookahead) String() string {
	return fmt.Sprintf("%d-day", int(l))
}

// Job is one course due for a warning.
type Job struct {
	Course    *course.Course
	Lookahead Lookahead
}

// DayStart truncates t to local midnight in t's location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayWindow returns [start, end) of the calendar day offset days after t.
func DayWindow(t time.Time, offset int) (time.Time, time.Time) {
	start := DayStart(t).AddDate(0, 0, offset)
	return start, start.AddDate(0, 0, 1)
}

// ExpirationScanner selects courses that expire in exactly 7 or 1 calendar days.
type ExpirationScanner struct {
	courses course.Directory
	logger  *logrus.Entry
}

func NewExpirationScanner(courses course.Directory, logger *logrus.Entry) *ExpirationScanner {
	return &ExpirationScanner{courses: courses, logger: logger}
}

// Scan builds the job list for the calendar day of today. Completed courses are
// never selected.
func (s *ExpirationScanner) Scan(ctx context.Context, today time.Time) ([]Job, error) {
	jobs := make([]Job, 0)
	for _, la := range scanOrder {
		from, to := DayWindow(today, la.Days())
		courses, err := s.courses.ListExpiringBetween(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to list courses expiring in %s window: %w", la, err)
		}

		selected := 0
		for _, c := range courses {
			if c == nil || c.IsComplete() {
				continue
			}
			jobs = append(jobs, Job{Course: c, Lookahead: la})
			selected++
		}
		s.logger.WithFields(logrus.Fields{
			"lookahead":   la.String(),
			"window_from": from.Format(time.RFC3339),
			"window_to":   to.Format(time.RFC3339),
			"selected":    selected,
		}).Info("Selected courses for expiration warning")
	}
	return jobs, nil
}
