package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"course_expiry_notifier/internal/domain/course"
	"course_expiry_notifier/internal/domain/delivery"
	"course_expiry_notifier/internal/domain/notification"
	"course_expiry_notifier/internal/domain/provider"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func nullEntry() *logrus.Entry {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

// memNotificationRepo is an in-memory notification.Repository.
type memNotificationRepo struct {
	mu        sync.Mutex
	records   []*notification.Record
	createErr error
	activeErr error
}

func (m *memNotificationRepo) Create(_ context.Context, r *notification.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *r
	m.records = append(m.records, &cp)
	return nil
}

func (m *memNotificationRepo) UpdateOutcome(_ context.Context, r *notification.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.records {
		if existing.ID == r.ID {
			if existing.Status != notification.StatusPending {
				return errors.New("not pending")
			}
			cp := *r
			m.records[i] = &cp
			return nil
		}
	}
	return notification.ErrNotFound
}

func (m *memNotificationRepo) GetByID(_ context.Context, id string) (*notification.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, notification.ErrNotFound
}

func (m *memNotificationRepo) List(_ context.Context, f notification.ListFilter) ([]*notification.Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*notification.Record
	for _, r := range m.records {
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.CourseID != "" {
			if id, ok := r.CourseID(); !ok || id != f.CourseID {
				continue
			}
		}
		if f.Search != "" && !matchesSearch(r, f.Search) {
			continue
		}
		cp := *r
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// matchesSearch mirrors the ILIKE over email, name, subject and course name.
func matchesSearch(r *notification.Record, search string) bool {
	_, courseName, _ := r.Origin.Course()
	needle := strings.ToLower(search)
	for _, field := range []string{r.RecipientEmail, r.RecipientName, r.Subject, courseName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (m *memNotificationRepo) Stats(_ context.Context, since time.Time) (*notification.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &notification.Stats{ByType: map[notification.Type]int{}}
	for _, r := range m.records {
		st.Total++
		st.ByType[r.Type]++
		switch r.Status {
		case notification.StatusSent:
			st.Sent++
		case notification.StatusFailed:
			st.Failed++
		case notification.StatusPending:
			st.Pending++
		}
		if !r.CreatedAt.Before(since) {
			st.Last30Days++
		}
	}
	return st, nil
}

func (m *memNotificationRepo) HasActive(_ context.Context, key notification.DedupKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeErr != nil {
		return false, m.activeErr
	}
	for _, r := range m.records {
		id, ok := r.CourseID()
		if !ok || id != key.CourseID || r.Type != key.Type || r.RecipientEmail != key.RecipientEmail {
			continue
		}
		if r.Status == notification.StatusFailed {
			continue
		}
		if !r.CreatedAt.Before(key.DayStart) && r.CreatedAt.Before(key.DayEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memNotificationRepo) all() []*notification.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*notification.Record, len(m.records))
	copy(out, m.records)
	return out
}

func (m *memNotificationRepo) byRecipient(email string) []*notification.Record {
	var out []*notification.Record
	for _, r := range m.all() {
		if r.RecipientEmail == email {
			out = append(out, r)
		}
	}
	return out
}

// memSettingsRepo is an in-memory provider.Repository.
type memSettingsRepo struct {
	mu       sync.Mutex
	settings provider.Settings
	getErr   error
	saves    int
}

func (m *memSettingsRepo) Get(context.Context) (*provider.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp := m.settings
	return &cp, nil
}

func (m *memSettingsRepo) Save(_ context.Context, s *provider.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Recompute()
	m.settings = *s
	m.saves++
	return nil
}

func readySettings() provider.Settings {
	s := provider.Settings{ID: "s1", APIKey: "re_test_key", FromEmail: "training@x.com", FromName: "Training", Enabled: true}
	s.Recompute()
	return s
}

// staticDirectory filters its courses by expiration only, like the SQL query
// minus the completion predicate.
type staticDirectory struct {
	courses []*course.Course
	err     error
	calls   int
}

func (d *staticDirectory) ListExpiringBetween(_ context.Context, from, to time.Time) ([]*course.Course, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	var out []*course.Course
	for _, c := range d.courses {
		if !c.ExpiresAt.Before(from) && c.ExpiresAt.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeChannel records every message and fails for the configured recipients.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []delivery.Message
	failFor map[string]error
	emptyID bool
}

func (c *fakeChannel) Send(_ context.Context, msg delivery.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	if err, ok := c.failFor[msg.To]; ok {
		return "", err
	}
	if c.emptyID {
		return "", nil
	}
	return fmt.Sprintf("msg-%d", len(c.sent)), nil
}

func (c *fakeChannel) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func channelFactory(ch delivery.Channel) ChannelFactory {
	return func(provider.Settings) (delivery.Channel, error) { return ch, nil }
}
