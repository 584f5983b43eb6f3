package httpapi

import (
	"time"

	"course_expiry_notifier/internal/app"
	"course_expiry_notifier/internal/domain/notification"
)

type notificationResponse struct {
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	Status            string     `json:"status"`
	RecipientEmail    string     `json:"recipientEmail"`
	RecipientName     string     `json:"recipientName"`
	Subject           string     `json:"subject"`
	TextBody          string     `json:"textBody"`
	HTMLBody          string     `json:"htmlBody"`
	ErrorMessage      *string    `json:"errorMessage,omitempty"`
	ProviderMessageID *string    `json:"messageId,omitempty"`
	OriginKind        string     `json:"originKind"`
	CourseID          *string    `json:"courseId,omitempty"`
	CourseName        *string    `json:"courseName,omitempty"`
	UserID            *string    `json:"userId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
}

func toNotificationResponse(r *notification.Record) notificationResponse {
	out := notificationResponse{
		ID:             r.ID,
		Type:           string(r.Type),
		Status:         string(r.Status),
		RecipientEmail: r.RecipientEmail,
		RecipientName:  r.RecipientName,
		Subject:        r.Subject,
		TextBody:       r.TextBody,
		HTMLBody:       r.HTMLBody,
		OriginKind:     string(r.Origin.Kind()),
		CreatedAt:      r.CreatedAt,
	}
	if r.ErrorMessage.Valid {
		out.ErrorMessage = &r.ErrorMessage.String
	}
	if r.ProviderMessageID.Valid {
		out.ProviderMessageID = &r.ProviderMessageID.String
	}
	if id, name, ok := r.Origin.Course(); ok {
		out.CourseID = &id
		out.CourseName = &name
	}
	if r.UserID.Valid {
		out.UserID = &r.UserID.String
	}
	if r.SentAt.Valid {
		sentAt := r.SentAt.Time
		out.SentAt = &sentAt
	}
	return out
}

type paginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type listResponse struct {
	Data       []notificationResponse `json:"data"`
	Pagination paginationResponse     `json:"pagination"`
}

func toListResponse(p *app.Page) listResponse {
	data := make([]notificationResponse, 0, len(p.Records))
	for _, r := range p.Records {
		data = append(data, toNotificationResponse(r))
	}
	return listResponse{
		Data: data,
		Pagination: paginationResponse{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		},
	}
}

type statsResponse struct {
	Total      int            `json:"total"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Pending    int            `json:"pending"`
	ByType     map[string]int `json:"byType"`
	Last30Days int            `json:"last30Days"`
}

func toStatsResponse(s *notification.Stats) statsResponse {
	byType := make(map[string]int, len(s.ByType))
	for t, n := range s.ByType {
		byType[string(t)] = n
	}
	return statsResponse{
		Total:      s.Total,
		Sent:       s.Sent,
		Failed:     s.Failed,
		Pending:    s.Pending,
		ByType:     byType,
		Last30Days: s.Last30Days,
	}
}

type runResponse struct {
	Courses    int `json:"courses"`
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

func toRunResponse(s *app.RunSummary) runResponse {
	if s == nil {
		return runResponse{}
	}
	return runResponse{
		Courses:    s.Courses,
		Recipients: s.Recipients,
		Sent:       s.Sent,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Errors:     s.Errors,
	}
}

type updateSettingsRequest struct {
	APIKey    *string `json:"apiKey"`
	Endpoint  *string `json:"endpoint"`
	FromEmail *string `json:"fromEmail"`
	FromName  *string `json:"fromName"`
	ReplyTo   *string `json:"replyTo"`
	Enabled   *bool   `json:"enabled"`
}

type testSendRequest struct {
	To      string `json:"to"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
