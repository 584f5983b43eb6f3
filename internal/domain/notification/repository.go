// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListFilter selects records for the delivery log listing. Zero values mean
// "no filter".
type ListFilter struct {
	Type     Type
	Status   Status
	CourseID string
	Search   string
	Page     int
	Limit    int
}

// Normalize applies pagination defaults and caps.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Stats aggregates the whole delivery log.
type Stats struct {
	Total      int
	Sent       int
	Failed     int
	Pending    int
	ByType     map[Type]int
	Last30Days int
}

// DedupKey identifies a notification that must be sent at most once per
// calendar day.
type DedupKey struct {
	CourseID       string
	Type           Type
	RecipientEmail string
	DayStart       time.Time
	DayEnd         time.Time
}

// Repository is the delivery log store.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	// UpdateOutcome persists a terminal record. Only pending rows are updated.
	UpdateOutcome(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, filter ListFilter) ([]*Record, int, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
	// HasActive reports whether a pending or sent record matches key.
	HasActive(ctx context.Context, key DedupKey) (bool, error)
}
