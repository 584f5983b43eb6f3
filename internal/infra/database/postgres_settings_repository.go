package database

import (
	"context"
	"database/sql"
	"fmt"

	"course_expiry_notifier/internal/domain/provider"

	"github.com/google/uuid"
)

var ErrSettingsNotFound = fmt.Errorf("provider settings not found")

type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// Get returns the singleton settings row, inserting a disabled default on
// first access. Concurrent first reads converge on the same row.
func (r *PostgresSettingsRepository) Get(ctx context.Context) (*provider.Settings, error) {
	s, err := r.selectSettings(ctx)
	if err == nil {
		return s, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("error getting provider settings: %w", err)
	}

	insert := `INSERT INTO notification_settings (id, enabled, configured)
               VALUES ($1, FALSE, FALSE)
               ON CONFLICT (singleton) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString()); err != nil {
		return nil, fmt.Errorf("error creating default provider settings: %w", err)
	}

	s, err = r.selectSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading provider settings after create: %w", err)
	}
	return s, nil
}

func (r *PostgresSettingsRepository) selectSettings(ctx context.Context) (*provider.Settings, error) {
	query := `SELECT id, api_key, endpoint, from_email, from_name, reply_to, enabled, configured, updated_at
               FROM notification_settings WHERE singleton = 1`
	s := &provider.Settings{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.ID, &s.APIKey, &s.Endpoint, &s.FromEmail, &s.FromName, &s.ReplyTo, &s.Enabled, &s.Configured, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Recompute()
	return s, nil
}

// Save writes every field of s. Configured is recomputed from its inputs first.
func (r *PostgresSettingsRepository) Save(ctx context.Context, s *provider.Settings) error {
	s.Recompute()
	query := `UPDATE notification_settings
               SET api_key = $1, endpoint = $2, from_email = $3, from_name = $4, reply_to = $5,
                   enabled = $6, configured = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		s.APIKey, s.Endpoint, s.FromEmail, s.FromName, s.ReplyTo, s.Enabled, s.Configured, s.ID,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrSettingsNotFound
		}
		return fmt.Errorf("error saving provider settings: %w", err)
	}
	return nil
}
