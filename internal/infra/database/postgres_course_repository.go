// internal/infra/database/postgres_course_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"course_expiry_notifier/internal/domain/course"

	"github.com/lib/pq" // For pq.Array
)

// PostgresCourseDirectory reads the course catalogue owned by the CRUD service.
type PostgresCourseDirectory struct {
	db *sql.DB
}

func NewPostgresCourseDirectory(db *sql.DB) *PostgresCourseDirectory {
	return &PostgresCourseDirectory{db: db}
}

func (r *PostgresCourseDirectory) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*course.Course, error) {
	query := `SELECT c.id::text, c.name, c.completion, c.expires_at,
                     u.id::text, COALESCE(u.email, ''), COALESCE(u.name, '')
               FROM courses c
               LEFT JOIN users u ON u.id = c.responsible_id
               WHERE c.expires_at >= $1 AND c.expires_at < $2 AND c.completion < 100
               ORDER BY c.expires_at, c.id`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying expiring courses: %w", err)
	}
	defer rows.Close()

	courses := make([]*course.Course, 0)
	byID := make(map[string]*course.Course)
	for rows.Next() {
		c := &course.Course{}
		var respID sql.NullString
		var respEmail, respName string
		if err := rows.Scan(&c.ID, &c.Name, &c.Completion, &c.ExpiresAt, &respID, &respEmail, &respName); err != nil {
			return nil, fmt.Errorf("error scanning course row: %w", err)
		}
		if respID.Valid {
			c.Responsible = &course.UserRef{ID: respID.String, Email: respEmail, Name: respName}
		}
		courses = append(courses, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}

	if len(courses) == 0 {
		return courses, nil
	}
	if err := r.loadAssignments(ctx, byID); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *PostgresCourseDirectory) loadAssignments(ctx context.Context, byID map[string]*course.Course) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query := `SELECT ca.course_id::text, u.id::text, COALESCE(u.email, ''), COALESCE(u.name, '')
               FROM course_assignments ca
               JOIN users u ON u.id = ca.user_id
               WHERE ca.course_id::text = ANY($1::text[])
               ORDER BY ca.course_id, ca.position`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error querying course assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var courseID string
		var u course.UserRef
		if err := rows.Scan(&courseID, &u.ID, &u.Email, &u.Name); err != nil {
			return fmt.Errorf("error scanning course assignment row: %w", err)
		}
		if c, ok := byID[courseID]; ok {
			c.Assigned = append(c.Assigned, u)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating course assignment rows: %w", err)
	}
	return nil
}
