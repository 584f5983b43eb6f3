package course

import (
	"context"
	"time"
)

// Directory is the read-only view of the course catalogue used by the scanner.
type Directory interface {
	// ListExpiringBetween returns courses with from <= expires_at < to and
	// completion below 100, including responsible and assigned users.
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*Course, error)
}
