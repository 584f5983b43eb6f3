package provider

import "context"

// Repository persists the singleton settings record.
type Repository interface {
	// Get returns the settings, creating a disabled record on first access.
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}
