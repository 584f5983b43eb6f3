package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"course_expiry_notifier/internal/domain/delivery"
	"course_expiry_notifier/internal/domain/provider"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nullEntry() *logrus.Entry {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

func settingsFor(endpoint string) provider.Settings {
	return provider.Settings{
		APIKey:    "re_test",
		Endpoint:  endpoint,
		FromEmail: "training@x.com",
		FromName:  "Training Team",
		ReplyTo:   "help@x.com",
		Enabled:   true,
	}
}

func TestResendChannelSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/emails"))
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"4ef9a417-02e9-4d39-ad75-9611e0fcc33c"}`))
	}))
	defer srv.Close()

	ch, err := NewResendChannel(settingsFor(srv.URL), nullEntry())
	require.NoError(t, err)

	id, err := ch.Send(context.Background(), delivery.Message{To: "a@x.com", Subject: "Hi", Text: "text", HTML: "<p>html</p>"})
	require.NoError(t, err)
	assert.Equal(t, "4ef9a417-02e9-4d39-ad75-9611e0fcc33c", id)

	assert.Equal(t, `"Training Team" <training@x.com>`, got["from"])
	assert.Equal(t, []any{"a@x.com"}, got["to"])
	assert.Equal(t, "<p>html</p>", got["html"])
	assert.Equal(t, "text", got["text"])
}

func TestResendChannelProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Throttled"}`))
	}))
	defer srv.Close()

	ch, err := NewResendChannel(settingsFor(srv.URL), nullEntry())
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), delivery.Message{To: "b@x.com", Subject: "Hi", Text: "text"})
	var delErr *delivery.Error
	require.ErrorAs(t, err, &delErr)
	assert.Equal(t, "b@x.com", delErr.Recipient)
}

func TestResendChannelEmptyMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ch, err := NewResendChannel(settingsFor(srv.URL), nullEntry())
	require.NoError(t, err)

	_, err = ch.Send(context.Background(), delivery.Message{To: "a@x.com", Subject: "Hi", Text: "text"})
	var delErr *delivery.Error
	assert.ErrorAs(t, err, &delErr)
}

func TestNewResendChannelRequiresCredentials(t *testing.T) {
	_, err := NewResendChannel(provider.Settings{FromEmail: "training@x.com"}, nullEntry())
	assert.Error(t, err)

	_, err = Factory(nullEntry())(provider.Settings{APIKey: "re_test"})
	assert.Error(t, err)
}

func TestSenderAddress(t *testing.T) {
	assert.Equal(t, "training@x.com", senderAddress(" ", "training@x.com"))
	assert.Equal(t, `"Training Team" <training@x.com>`, senderAddress("Training Team", "training@x.com"))
}

func TestNoopChannel(t *testing.T) {
	ch, err := NoopFactory(nullEntry())(provider.Settings{})
	require.NoError(t, err)

	id, err := ch.Send(context.Background(), delivery.Message{To: "a@x.com", Subject: "Hi"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "noop-"))
}
