package telegram

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"course_expiry_notifier/internal/app"
	"course_expiry_notifier/internal/domain/notification"
	domainTelegram "course_expiry_notifier/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// RunAlerter reports expiration runs to the operator's chat.
type RunAlerter struct {
	client  domainTelegram.Notifier
	adminID int64
	logger  *logrus.Entry
}

func NewRunAlerter(client domainTelegram.Notifier, adminID int64, logger *logrus.Entry) *RunAlerter {
	return &RunAlerter{client: client, adminID: adminID, logger: logger}
}

// RunFailed alerts that a run ended early.
func (a *RunAlerter) RunFailed(runAt time.Time, err error) {
	a.send(FormatRunFailure(runAt, err))
}

// RunCompleted reports a finished run, only when some sends failed.
func (a *RunAlerter) RunCompleted(runAt time.Time, summary *app.RunSummary) {
	if summary == nil || (summary.Failed == 0 && summary.Errors == 0) {
		return
	}
	a.send(FormatRunSummary(runAt, summary))
}

func (a *RunAlerter) send(text string) {
	if err := a.client.Notify(a.adminID, text); err != nil {
		a.logger.WithError(err).WithField("admin_id", a.adminID).Error("Failed to send Telegram alert")
	}
}

func FormatRunFailure(runAt time.Time, err error) string {
	return fmt.Sprintf("⚠️ Expiration run for %s stopped early.\nError: %v", runAt.Format("2006-01-02"), err)
}

func FormatRunSummary(runAt time.Time, s *app.RunSummary) string {
	return fmt.Sprintf(
		"Expiration run for %s finished.\nCourses: %d\nRecipients: %d\nSent: %d\nFailed: %d\nSkipped (already notified): %d\nNot attempted (store errors): %d",
		runAt.Format("2006-01-02"), s.Courses, s.Recipients, s.Sent, s.Failed, s.Skipped, s.Errors,
	)
}

func FormatStats(s *notification.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Notifications: %d total\nSent: %d\nFailed: %d\nPending: %d\nLast 30 days: %d",
		s.Total, s.Sent, s.Failed, s.Pending, s.Last30Days)

	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	if len(types) > 0 {
		b.WriteString("\nBy type:")
		for _, t := range types {
			fmt.Fprintf(&b, "\n  %s: %d", t, s.ByType[notification.Type(t)])
		}
	}
	return b.String()
}
