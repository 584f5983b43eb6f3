package provider

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

// MaskToken replaces the hidden part of a secret in masked views.
const MaskToken = "****"

var (
	ErrInvalidFromEmail = errors.New("invalid sender email address")
	ErrInvalidReplyTo   = errors.New("invalid reply-to email address")
	ErrInvalidEndpoint  = errors.New("endpoint must be an absolute http(s) URL")
)

// Settings is the singleton delivery channel configuration.
// Corresponds to the 'notification_settings' table.
type Settings struct {
	ID         string
	APIKey     string
	Endpoint   string // optional API base URL override
	FromEmail  string
	FromName   string
	ReplyTo    string
	Enabled    bool
	Configured bool // derived, see Recompute
	UpdatedAt  time.Time
}

// Recompute derives Configured from the credential and sender fields.
func (s *Settings) Recompute() {
	s.Configured = strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.FromEmail) != ""
}

// Ready reports whether a send may be attempted.
func (s *Settings) Ready() bool {
	return s.Configured && s.Enabled
}

// Patch carries a partial settings update; nil fields are left untouched.
type Patch struct {
	APIKey    *string
	Endpoint  *string
	FromEmail *string
	FromName  *string
	ReplyTo   *string
	Enabled   *bool
}

// Validate checks the supplied fields only.
func (p Patch) Validate() error {
	if p.FromEmail != nil && *p.FromEmail != "" {
		if _, err := mail.ParseAddress(*p.FromEmail); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFromEmail, err)
		}
	}
	if p.ReplyTo != nil && *p.ReplyTo != "" {
		if _, err := mail.ParseAddress(*p.ReplyTo); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidReplyTo, err)
		}
	}
	if p.Endpoint != nil && *p.Endpoint != "" {
		u, err := url.Parse(*p.Endpoint)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidEndpoint
		}
	}
	return nil
}

// Apply copies the supplied fields onto s and recomputes Configured.
func (p Patch) Apply(s *Settings) {
	if p.APIKey != nil {
		s.APIKey = strings.TrimSpace(*p.APIKey)
	}
	if p.Endpoint != nil {
		s.Endpoint = strings.TrimSpace(*p.Endpoint)
	}
	if p.FromEmail != nil {
		s.FromEmail = strings.TrimSpace(*p.FromEmail)
	}
	if p.FromName != nil {
		s.FromName = strings.TrimSpace(*p.FromName)
	}
	if p.ReplyTo != nil {
		s.ReplyTo = strings.TrimSpace(*p.ReplyTo)
	}
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	s.Recompute()
}

// Masked is the read view handed to administrators.
type Masked struct {
	APIKey     *string `json:"apiKey,omitempty"`
	Endpoint   string  `json:"endpoint,omitempty"`
	FromEmail  string  `json:"fromEmail"`
	FromName   string  `json:"fromName"`
	ReplyTo    string  `json:"replyTo,omitempty"`
	Enabled    bool    `json:"enabled"`
	Configured bool    `json:"configured"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
}

// Mask builds the masked view of s.
func (s *Settings) Mask() Masked {
	m := Masked{
		APIKey:     MaskSecret(s.APIKey),
		Endpoint:   s.Endpoint,
		FromEmail:  s.FromEmail,
		FromName:   s.FromName,
		ReplyTo:    s.ReplyTo,
		Enabled:    s.Enabled,
		Configured: s.Configured,
	}
	if !s.UpdatedAt.IsZero() {
		m.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return m
}

// MaskSecret keeps at most the last four characters of secret. Secrets of four
// characters or fewer are masked entirely; an empty secret yields nil.
func MaskSecret(secret string) *string {
	if secret == "" {
		return nil
	}
	r := []rune(secret)
	masked := MaskToken
	if len(r) > 4 {
		masked += string(r[len(r)-4:])
	}
	return &masked
}
