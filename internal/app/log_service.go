package app

import (
	"context"
	"fmt"
	"time"

	"course_expiry_notifier/internal/domain/notification"
)

// statsWindowDays is the trailing window of the "last 30 days" counter.
const statsWindowDays = 30

// Page is one page of the delivery log.
type Page struct {
	Records    []*notification.Record
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// LogService is the read side of the delivery log.
type LogService struct {
	notifRepo notification.Repository
	now       func() time.Time
}

func NewLogService(nr notification.Repository) *LogService {
	return &LogService{notifRepo: nr, now: time.Now}
}

// List returns records newest first.
func (s *LogService) List(ctx context.Context, filter notification.ListFilter) (*Page, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("unknown notification type %q", filter.Type)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown notification status %q", filter.Status)
	}
	filter = filter.Normalize()

	records, total, err := s.notifRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return &Page{
		Records:    records,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

// Get returns one record; a missing record yields notification.ErrNotFound.
func (s *LogService) Get(ctx context.Context, id string) (*notification.Record, error) {
	return s.notifRepo.GetByID(ctx, id)
}

// Stats aggregates the whole log, with a trailing 30-day counter.
func (s *LogService) Stats(ctx context.Context) (*notification.Stats, error) {
	stats, err := s.notifRepo.Stats(ctx, s.now().AddDate(0, 0, -statsWindowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to compute notification stats: %w", err)
	}
	if stats.ByType == nil {
		stats.ByType = make(map[notification.Type]int, len(notification.AllTypes))
	}
	for _, t := range notification.AllTypes {
		if _, ok := stats.ByType[t]; !ok {
			stats.ByType[t] = 0
		}
	}
	return stats, nil
}
