package notification

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyRecipient    = errors.New("recipient email is required")
	ErrInvalidTransition = errors.New("notification is not pending")
	ErrEmptyMessageID    = errors.New("delivery channel returned an empty message id")
	ErrNotFound          = errors.New("notification not found")
)

const unknownDeliveryError = "unknown delivery error"

// Record is one delivery attempt to one recipient.
// Corresponds to the 'notifications' table.
type Record struct {
	ID                string
	Type              Type
	Status            Status
	RecipientEmail    string
	RecipientName     string
	Subject           string
	TextBody          string
	HTMLBody          string
	ErrorMessage      sql.NullString
	ProviderMessageID sql.NullString
	Origin            Origin
	UserID            sql.NullString // set when the recipient is a known user
	CreatedAt         time.Time
	SentAt            sql.NullTime
}

// NewPending builds a pending record with a fresh identifier.
func NewPending(t Type, recipientEmail, recipientName string, origin Origin, createdAt time.Time) (*Record, error) {
	if strings.TrimSpace(recipientEmail) == "" {
		return nil, ErrEmptyRecipient
	}
	return &Record{
		ID:             uuid.NewString(),
		Type:           t,
		Status:         StatusPending,
		RecipientEmail: recipientEmail,
		RecipientName:  recipientName,
		Origin:         origin,
		CreatedAt:      createdAt,
	}, nil
}

// MarkSent moves a pending record to sent.
func (r *Record) MarkSent(messageID string, sentAt time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidTransition
	}
	if messageID == "" {
		return ErrEmptyMessageID
	}
	r.Status = StatusSent
	r.ProviderMessageID = sql.NullString{String: messageID, Valid: true}
	r.SentAt = sql.NullTime{Time: sentAt, Valid: true}
	r.ErrorMessage = sql.NullString{}
	return nil
}

// MarkFailed moves a pending record to failed, keeping the error text.
func (r *Record) MarkFailed(cause error) error {
	if r.Status != StatusPending {
		return ErrInvalidTransition
	}
	msg := unknownDeliveryError
	if cause != nil && strings.TrimSpace(cause.Error()) != "" {
		msg = cause.Error()
	}
	r.Status = StatusFailed
	r.ErrorMessage = sql.NullString{String: msg, Valid: true}
	return nil
}

// CourseID is a shortcut for the origin course identifier.
func (r *Record) CourseID() (string, bool) {
	id, _, ok := r.Origin.Course()
	return id, ok
}
