package app

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"course_expiry_notifier/internal/domain/course"
)

// ExpiryDateLayout is how expiration dates appear in messages.
const ExpiryDateLayout = "January 2, 2006"

// MessageParams are the inputs of an expiration warning.
type MessageParams struct {
	RecipientName string
	CourseName    string
	ExpiresAt     time.Time
	DaysRemaining int
	Completion    int
}

// RenderedMessage is a ready-to-send warning.
type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

type palette struct {
	Accent     string
	Background string
	Banner     string
}

var (
	urgentPalette   = palette{Accent: "#c0392b", Background: "#fdecea", Banner: "URGENT: expires tomorrow"}
	reminderPalette = palette{Accent: "#d68910", Background: "#fef5e7", Banner: "Reminder: expires soon"}
)

type messageView struct {
	Greeting    string
	CourseName  string
	ExpiresOn   string
	DaysPhrase  string
	Completion  int
	Remaining   int
	NeedsAction bool
	Palette     palette
}

var textBodyTmpl = texttemplate.Must(texttemplate.New("text").Parse(
	`Hello {{.Greeting}},

Your course "{{.CourseName}}" expires on {{.ExpiresOn}} ({{.DaysPhrase}}).
Progress: {{.Completion}}% complete, {{.Remaining}}% remaining.
{{- if .NeedsAction}}

Please complete the remaining {{.Remaining}}% of "{{.CourseName}}" before {{.ExpiresOn}}.
{{- end}}

This is an automated reminder.
`))

var htmlBodyTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(
	`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;font-family:Arial,sans-serif;color:#333333;">
<table width="100%" cellpadding="0" cellspacing="0" style="background:{{.Palette.Background}};">
<tr><td style="padding:16px 24px;border-left:6px solid {{.Palette.Accent}};">
<p style="margin:0;font-size:13px;font-weight:bold;text-transform:uppercase;color:{{.Palette.Accent}};">{{.Palette.Banner}}</p>
<h2 style="margin:8px 0;color:{{.Palette.Accent}};">{{.CourseName}}</h2>
<p>Hello {{.Greeting}},</p>
<p>Your course <strong>{{.CourseName}}</strong> expires on <strong>{{.ExpiresOn}}</strong> ({{.DaysPhrase}}).</p>
<p>Progress: {{.Completion}}% complete, <strong style="color:{{.Palette.Accent}};">{{.Remaining}}% remaining</strong>.</p>
{{- if .NeedsAction}}
<p style="padding:12px;background:#ffffff;border:1px solid {{.Palette.Accent}};">Please complete the remaining {{.Remaining}}% before {{.ExpiresOn}}.</p>
{{- end}}
<p style="font-size:12px;color:#777777;">This is an automated reminder.</p>
</td></tr>
</table>
</body>
</html>
`))

// RenderExpirationMessage builds the subject and both bodies of a warning.
// The output depends only on p.
func RenderExpirationMessage(p MessageParams) (RenderedMessage, error) {
	view := messageView{
		Greeting:    greeting(p.RecipientName),
		CourseName:  p.CourseName,
		ExpiresOn:   p.ExpiresAt.Format(ExpiryDateLayout),
		DaysPhrase:  daysPhrase(p.DaysRemaining),
		Completion:  clampPercent(p.Completion),
		Remaining:   course.RemainingPercent(p.Completion),
		NeedsAction: p.Completion < 100,
		Palette:     reminderPalette,
	}
	if p.DaysRemaining <= 1 {
		view.Palette = urgentPalette
	}

	var text bytes.Buffer
	if err := textBodyTmpl.Execute(&text, view); err != nil {
		return RenderedMessage{}, fmt.Errorf("failed to render text body: %w", err)
	}
	var html bytes.Buffer
	if err := htmlBodyTmpl.Execute(&html, view); err != nil {
		return RenderedMessage{}, fmt.Errorf("failed to render html body: %w", err)
	}

	return RenderedMessage{
		Subject: expirationSubject(p.CourseName, p.DaysRemaining),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func expirationSubject(courseName string, days int) string {
	if days <= 1 {
		return fmt.Sprintf("Urgent: \"%s\" expires tomorrow", courseName)
	}
	return fmt.Sprintf("Reminder: \"%s\" expires in %d days", courseName, days)
}

func greeting(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return "there"
}

func daysPhrase(days int) string {
	if days == 1 {
		return "in 1 day"
	}
	return fmt.Sprintf("in %d days", days)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
