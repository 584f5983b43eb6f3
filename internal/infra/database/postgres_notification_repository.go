// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"course_expiry_notifier/internal/domain/notification"

	"github.com/google/uuid"
)

// Custom errors specific to notification repository
var ErrNotificationNotFound = notification.ErrNotFound
var ErrNotificationNotPending = fmt.Errorf("notification not found or already in a terminal status")

const notificationColumns = `id, type, status, recipient_email, recipient_name, subject, text_body, html_body,
       error_message, provider_message_id, origin_kind, course_id, course_name, user_id, created_at, sent_at`

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, rec *notification.Record) error {
	query := `INSERT INTO notifications (` + notificationColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	courseID, courseName := originColumns(rec.Origin)
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Type, rec.Status, rec.RecipientEmail, rec.RecipientName, rec.Subject, rec.TextBody, rec.HTMLBody,
		rec.ErrorMessage, rec.ProviderMessageID, rec.Origin.Kind(), courseID, courseName, rec.UserID, rec.CreatedAt, rec.SentAt,
	)
	if err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) UpdateOutcome(ctx context.Context, rec *notification.Record) error {
	if !rec.Status.Terminal() {
		return notification.ErrInvalidTransition
	}
	query := `UPDATE notifications
               SET status = $1, error_message = $2, provider_message_id = $3, sent_at = $4
               WHERE id = $5 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, rec.Status, rec.ErrorMessage, rec.ProviderMessageID, rec.SentAt, rec.ID)
	if err != nil {
		return fmt.Errorf("error updating notification outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotificationNotPending
	}
	return nil
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id string) (*notification.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotificationNotFound
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("error getting notification by ID: %w", err)
	}
	return rec, nil
}

func (r *PostgresNotificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Record, int, error) {
	filter = filter.Normalize()
	where, args := buildListWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting notifications: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset())
	query := fmt.Sprintf(`SELECT %s FROM notifications%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		notificationColumns, where, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	records := make([]*notification.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning notification row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return records, total, nil
}

func (r *PostgresNotificationRepository) Stats(ctx context.Context, since time.Time) (*notification.Stats, error) {
	// One snapshot so the per-status counts always add up to the total.
	txn, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin stats transaction: %w", err)
	}
	defer txn.Rollback()

	stats := &notification.Stats{ByType: make(map[notification.Type]int)}
	query := `SELECT COUNT(*),
                     COUNT(*) FILTER (WHERE status = 'sent'),
                     COUNT(*) FILTER (WHERE status = 'failed'),
                     COUNT(*) FILTER (WHERE status = 'pending'),
                     COUNT(*) FILTER (WHERE created_at >= $1)
               FROM notifications`
	if err := txn.QueryRowContext(ctx, query, since).Scan(&stats.Total, &stats.Sent, &stats.Failed, &stats.Pending, &stats.Last30Days); err != nil {
		return nil, fmt.Errorf("error computing notification stats: %w", err)
	}

	rows, err := txn.QueryContext(ctx, `SELECT type, COUNT(*) FROM notifications GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("error grouping notifications by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t notification.Type
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("error scanning type count row: %w", err)
		}
		stats.ByType[t] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating type count rows: %w", err)
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stats transaction: %w", err)
	}
	return stats, nil
}

func (r *PostgresNotificationRepository) HasActive(ctx context.Context, key notification.DedupKey) (bool, error) {
	query := `SELECT EXISTS (
                   SELECT 1 FROM notifications
                   WHERE course_id = $1 AND type = $2 AND recipient_email = $3
                     AND status <> 'failed'
                     AND created_at >= $4 AND created_at < $5)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, key.CourseID, key.Type, key.RecipientEmail, key.DayStart, key.DayEnd).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking for existing notification: %w", err)
	}
	return exists, nil
}

func buildListWhere(f notification.ListFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.CourseID != "" {
		add("course_id = $%d", f.CourseID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(recipient_email ILIKE $%[1]d OR recipient_name ILIKE $%[1]d OR subject ILIKE $%[1]d OR course_name ILIKE $%[1]d)",
			"%"+escapeLike(s)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func originColumns(o notification.Origin) (sql.NullString, string) {
	id, name, ok := o.Course()
	if !ok {
		return sql.NullString{}, ""
	}
	return sql.NullString{String: id, Valid: true}, name
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*notification.Record, error) {
	rec := &notification.Record{}
	var originKind notification.OriginKind
	var courseID sql.NullString
	var courseName string
	err := row.Scan(
		&rec.ID, &rec.Type, &rec.Status, &rec.RecipientEmail, &rec.RecipientName, &rec.Subject, &rec.TextBody, &rec.HTMLBody,
		&rec.ErrorMessage, &rec.ProviderMessageID, &originKind, &courseID, &courseName, &rec.UserID, &rec.CreatedAt, &rec.SentAt,
	)
	if err != nil {
		return nil, err
	}
	if originKind == notification.OriginCourse && courseID.Valid {
		rec.Origin = notification.CourseOrigin(courseID.String, courseName)
	} else {
		rec.Origin = notification.ManualOrigin()
	}
	return rec, nil
}
