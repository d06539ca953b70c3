package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/provider"
)

func newBrevo(serverURL string) *provider.BrevoProvider {
	return &provider.BrevoProvider{
		APIKey:    "xkeysib-test",
		FromEmail: "hello@acme.test",
		FromName:  "Acme",
		BaseURL:   serverURL,
		Client:    http.DefaultClient,
	}
}

func TestBrevoSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "xkeysib-test", r.Header.Get("api-key"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		sender := payload["sender"].(map[string]interface{})
		assert.Equal(t, "hello@acme.test", sender["email"])
		assert.Equal(t, "Your order shipped", payload["subject"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"messageId": "<202506010001.12345@smtp-relay.brevo.com>"}`))
	}))
	defer server.Close()

	p := newBrevo(server.URL)
	res, err := p.Send(context.Background(), provider.SendRequest{
		To:       "alice@example.com",
		Subject:  "Your order shipped",
		HTMLBody: "<p>On the way!</p>",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "<202506010001.12345@smtp-relay.brevo.com>", res.ProviderMessageID)
	assert.Equal(t, model.StatusSent, res.Status)
}

func TestBrevoSendVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": "invalid_parameter", "message": "email is not valid in to"}`))
	}))
	defer server.Close()

	p := newBrevo(server.URL)
	res, err := p.Send(context.Background(), provider.SendRequest{To: "not-an-email"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "email is not valid")
}

func TestBrevoParseWebhook(t *testing.T) {
	p := &provider.BrevoProvider{}

	cases := []struct {
		event string
		want  string
	}{
		{"delivered", model.StatusDelivered},
		{"opened", model.StatusRead},
		{"hard_bounce", model.StatusFailed},
		{"spam", model.StatusFailed},
		{"request", model.StatusQueued},
	}
	for _, tc := range cases {
		body := []byte(`{"event": "` + tc.event + `", "message-id": "<m1@smtp>", "ts": 1717243200}`)
		got, err := p.ParseWebhook(body, "")
		require.NoError(t, err)
		assert.Equal(t, "<m1@smtp>", got.ProviderMessageID)
		assert.Equal(t, tc.want, got.Status, "event: %s", tc.event)
	}
}

func TestBrevoVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/account", r.URL.Path)
		if r.Header.Get("api-key") != "xkeysib-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"email": "owner@acme.test"}`))
	}))
	defer server.Close()

	p := newBrevo(server.URL)
	assert.NoError(t, p.Verify(context.Background()))

	p.APIKey = "wrong"
	assert.Error(t, p.Verify(context.Background()))
}
