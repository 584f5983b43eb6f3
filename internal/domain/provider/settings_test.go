package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   *string
	}{
		{name: "unset", secret: "", want: nil},
		{name: "short", secret: "abc", want: strPtr("****")},
		{name: "exactly four", secret: "abcd", want: strPtr("****")},
		{name: "long", secret: "re_123456789", want: strPtr("****6789")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskSecret(tt.secret))
		})
	}
}

func TestMaskNeverLeaksSecret(t *testing.T) {
	s := &Settings{APIKey: "re_supersecret", FromEmail: "ops@x.com", Enabled: true}
	s.Recompute()

	m := s.Mask()
	require.NotNil(t, m.APIKey)
	assert.Equal(t, "****cret", *m.APIKey)
	assert.NotContains(t, *m.APIKey, "supersecret")
	assert.True(t, m.Configured)
	assert.Empty(t, m.UpdatedAt)

	s.UpdatedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-01T09:00:00Z", s.Mask().UpdatedAt)
}

func TestRecomputeAndReady(t *testing.T) {
	s := &Settings{Enabled: true}
	s.Recompute()
	assert.False(t, s.Configured)
	assert.False(t, s.Ready())

	s.APIKey = "key"
	s.Recompute()
	assert.False(t, s.Configured, "sender address is still missing")

	s.FromEmail = "ops@x.com"
	s.Recompute()
	assert.True(t, s.Configured)
	assert.True(t, s.Ready())

	s.Enabled = false
	assert.False(t, s.Ready())
}

func TestPatchApply(t *testing.T) {
	s := &Settings{APIKey: "old-key", FromEmail: "ops@x.com", FromName: "Ops", Enabled: true}
	s.Recompute()

	Patch{FromName: strPtr("  Training Team "), Enabled: boolPtr(false)}.Apply(s)
	assert.Equal(t, "old-key", s.APIKey)
	assert.Equal(t, "Training Team", s.FromName)
	assert.False(t, s.Enabled)
	assert.True(t, s.Configured)

	Patch{APIKey: strPtr("")}.Apply(s)
	assert.False(t, s.Configured)
}

func TestPatchValidate(t *testing.T) {
	assert.NoError(t, Patch{}.Validate())
	assert.NoError(t, Patch{FromEmail: strPtr("ops@x.com"), Endpoint: strPtr("https://api.example.com")}.Validate())
	assert.NoError(t, Patch{FromEmail: strPtr("")}.Validate(), "clearing a field is allowed")

	assert.ErrorIs(t, Patch{FromEmail: strPtr("not-an-email")}.Validate(), ErrInvalidFromEmail)
	assert.ErrorIs(t, Patch{ReplyTo: strPtr("@@")}.Validate(), ErrInvalidReplyTo)
	assert.ErrorIs(t, Patch{Endpoint: strPtr("/relative")}.Validate(), ErrInvalidEndpoint)
	assert.ErrorIs(t, Patch{Endpoint: strPtr("ftp://files.example.com")}.Validate(), ErrInvalidEndpoint)
}
