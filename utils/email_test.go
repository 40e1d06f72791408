package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailerDisabledWithoutConfig(t *testing.T) {
	m := NewMailer(MailDriverZepto, "", "key", "from@example.com", zerolog.Nop())
	assert.Nil(t, m)
	assert.False(t, m.Enabled())
	assert.Error(t, m.SendEmail(context.Background(), "a@b.c", "A", "s", "b"))
}

func TestSendEmail(t *testing.T) {
	var got emailRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewMailer(MailDriverZepto, srv.URL, "Zoho-enczapikey abc", "noreply@church.local", zerolog.Nop())
	require.True(t, m.Enabled())

	err := m.SendEmail(context.Background(), "jane@example.com", "Jane", "Hello", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "Zoho-enczapikey abc", auth)
	assert.Equal(t, "noreply@church.local", got.From.Address)
	require.Len(t, got.To, 1)
	assert.Equal(t, "jane@example.com", got.To[0].Email.Address)
	assert.Equal(t, "Hello", got.Subject)
}

func TestSendEmailRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMailer(MailDriverZepto, srv.URL, "bad", "noreply@church.local", zerolog.Nop())
	err := m.SendEmail(context.Background(), "jane@example.com", "Jane", "Hello", "x")
	assert.ErrorContains(t, err, "401")
}

func TestSendEmailViaResend(t *testing.T) {
	var got resend.SendEmailRequest
	var path, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "mock-id"})
	}))
	defer srv.Close()

	m := NewMailer(MailDriverResend, srv.URL, "re_test", "noreply@church.local", zerolog.Nop())
	require.True(t, m.Enabled())

	require.NoError(t, m.SendEmail(context.Background(), "jane@example.com", "Jane", "Hello", "<p>hi</p>"))
	assert.Equal(t, "/emails", path)
	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, []string{"jane@example.com"}, got.To)
	assert.Equal(t, "<p>hi</p>", got.Html)
}

func TestNewMailerResendNeedsNoURL(t *testing.T) {
	assert.NotNil(t, NewMailer(MailDriverResend, "", "re_test", "noreply@church.local", zerolog.Nop()))
	assert.Nil(t, NewMailer(MailDriverResend, "", "", "noreply@church.local", zerolog.Nop()))
}

func TestRegistrationEmailEscapes(t *testing.T) {
	subject, body := RegistrationEmail("<b>Jane</b>", "Youth Night", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), "18:30", "Main Hall")
	assert.Equal(t, "Registration confirmed: Youth Night", subject)
	assert.Contains(t, body, "&lt;b&gt;Jane&lt;/b&gt;")
	assert.Contains(t, body, "Saturday, 14 March 2026")
}
