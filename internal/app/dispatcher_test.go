package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"course_expiry_notifier/internal/domain/course"
	"course_expiry_notifier/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func safetyCourse() *course.Course {
	return &course.Course{
		ID:          "c1",
		Name:        "Fire Safety",
		Completion:  40,
		ExpiresAt:   time.Date(2025, 3, 8, 15, 0, 0, 0, time.UTC),
		Responsible: &course.UserRef{ID: "u1", Email: "a@x.com", Name: "Ann"},
		Assigned: []course.UserRef{
			{ID: "u2", Email: "b@x.com", Name: "Ben"},
			{ID: "u1", Email: "a@x.com", Name: "Ann"},
		},
	}
}

func newTestDispatcher(repo notification.Repository, now time.Time) *Dispatcher {
	d := NewDispatcher(repo, 4, 0, nullEntry())
	d.now = func() time.Time { return now }
	return d
}

func TestDispatchSendsOncePerRecipient(t *testing.T) {
	repo := &memNotificationRepo{}
	ch := &fakeChannel{}
	d := newTestDispatcher(repo, runAt)

	summary := d.Dispatch(context.Background(), ch, runAt, []Job{{Course: safetyCourse(), Lookahead: Lookahead7Day}})

	assert.Equal(t, RunSummary{Courses: 1, Recipients: 2, Sent: 2}, summary)
	records := repo.all()
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, notification.TypeWarn7Day, r.Type)
		assert.Equal(t, notification.StatusSent, r.Status)
		assert.True(t, r.ProviderMessageID.Valid)
		assert.True(t, r.SentAt.Valid)
		assert.Contains(t, r.TextBody, "60% remaining")
		id, ok := r.CourseID()
		assert.True(t, ok)
		assert.Equal(t, "c1", id)
	}
	assert.Len(t, repo.byRecipient("a@x.com"), 1)
	assert.Len(t, repo.byRecipient("b@x.com"), 1)
	assert.Equal(t, "u1", repo.byRecipient("a@x.com")[0].UserID.String)
	assert.Equal(t, 2, ch.calls())
}

func TestDispatchIsolatesRecipientFailures(t *testing.T) {
	repo := &memNotificationRepo{}
	ch := &fakeChannel{failFor: map[string]error{"b@x.com": errors.New("Throttled")}}
	d := newTestDispatcher(repo, runAt)

	summary := d.Dispatch(context.Background(), ch, runAt, []Job{{Course: safetyCourse(), Lookahead: Lookahead7Day}})

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)

	a := repo.byRecipient("a@x.com")
	require.Len(t, a, 1)
	assert.Equal(t, notification.StatusSent, a[0].Status)

	b := repo.byRecipient("b@x.com")
	require.Len(t, b, 1)
	assert.Equal(t, notification.StatusFailed, b[0].Status)
	assert.Equal(t, "Throttled", b[0].ErrorMessage.String)
	assert.False(t, b[0].SentAt.Valid)
}

func TestDispatchSkipsRecipientsAlreadyNotifiedToday(t *testing.T) {
	repo := &memNotificationRepo{}
	ch := &fakeChannel{failFor: map[string]error{"b@x.com": errors.New("Throttled")}}
	d := newTestDispatcher(repo, runAt)
	jobs := []Job{{Course: safetyCourse(), Lookahead: Lookahead7Day}}

	d.Dispatch(context.Background(), ch, runAt, jobs)

	// Same calendar day, the earlier failure is retried and the success is not repeated.
	ch.failFor = nil
	d.now = func() time.Time { return runAt.Add(2 * time.Hour) }
	summary := d.Dispatch(context.Background(), ch, runAt.Add(2*time.Hour), jobs)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Sent)
	assert.Len(t, repo.byRecipient("a@x.com"), 1)
	assert.Len(t, repo.byRecipient("b@x.com"), 2)

	// Next day both are eligible again.
	nextDay := runAt.AddDate(0, 0, 1)
	d.now = func() time.Time { return nextDay }
	summary = d.Dispatch(context.Background(), ch, nextDay, jobs)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 0, summary.Skipped)
}

func TestDispatchTreatsEmptyMessageIDAsFailure(t *testing.T) {
	repo := &memNotificationRepo{}
	d := newTestDispatcher(repo, runAt)

	summary := d.Dispatch(context.Background(), &fakeChannel{emptyID: true}, runAt, []Job{{Course: safetyCourse(), Lookahead: Lookahead1Day}})

	assert.Equal(t, 2, summary.Failed)
	for _, r := range repo.all() {
		assert.Equal(t, notification.TypeWarn1Day, r.Type)
		assert.Equal(t, notification.StatusFailed, r.Status)
		assert.Equal(t, notification.ErrEmptyMessageID.Error(), r.ErrorMessage.String)
	}
}

func TestDispatchStoreFailureSkipsSend(t *testing.T) {
	repo := &memNotificationRepo{createErr: errors.New("disk full")}
	ch := &fakeChannel{}

	summary := newTestDispatcher(repo, runAt).Dispatch(context.Background(), ch, runAt, []Job{{Course: safetyCourse(), Lookahead: Lookahead7Day}})

	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 0, ch.calls())
	assert.Empty(t, repo.all())
}

func TestDispatchCourseWithoutRecipients(t *testing.T) {
	repo := &memNotificationRepo{}
	c := &course.Course{ID: "c2", Name: "Orphan", Completion: 0, ExpiresAt: runAt.AddDate(0, 0, 7)}

	summary := newTestDispatcher(repo, runAt).Dispatch(context.Background(), &fakeChannel{}, runAt, []Job{{Course: c, Lookahead: Lookahead7Day}})

	assert.Equal(t, RunSummary{Courses: 1}, summary)
	assert.Empty(t, repo.all())
}

func TestDispatchAfterCancelStillRecordsOutcome(t *testing.T) {
	repo := &memNotificationRepo{}
	d := NewDispatcher(repo, 1, 1, nullEntry())
	d.now = func() time.Time { return runAt }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := d.Dispatch(ctx, &fakeChannel{}, runAt, []Job{{Course: safetyCourse(), Lookahead: Lookahead7Day}})

	assert.Equal(t, 2, summary.Failed)
	for _, r := range repo.all() {
		assert.Equal(t, notification.StatusFailed, r.Status, "no record stays pending")
	}
}
