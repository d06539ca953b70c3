package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/provider"
)

func newTwilio(serverURL string, channel model.Channel) *provider.TwilioProvider {
	return &provider.TwilioProvider{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15550000001",
		Channel:    channel,
		BaseURL:    serverURL,
		Client:     http.DefaultClient,
	}
}

func TestTwilioSendSMS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551234567", r.PostFormValue("To"))
		assert.Equal(t, "+15550000001", r.PostFormValue("From"))
		assert.Equal(t, "hello", r.PostFormValue("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM900", "status": "queued"}`))
	}))
	defer server.Close()

	p := newTwilio(server.URL, model.ChannelSMS)
	res, err := p.Send(context.Background(), provider.SendRequest{To: "+15551234567", Body: "hello"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "SM900", res.ProviderMessageID)
	assert.Equal(t, model.StatusQueued, res.Status)
}

func TestTwilioSendWhatsAppPrefixesAddresses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+15551234567", r.PostFormValue("To"))
		assert.Equal(t, "whatsapp:+15550000001", r.PostFormValue("From"))
		w.Write([]byte(`{"sid": "SM901", "status": "accepted"}`))
	}))
	defer server.Close()

	p := newTwilio(server.URL, model.ChannelWhatsApp)
	res, err := p.Send(context.Background(), provider.SendRequest{To: "+15551234567", Body: "hi"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.StatusQueued, res.Status)
}

func TestTwilioSendUsesMessagingServiceForSMS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "MG42", r.PostFormValue("MessagingServiceSid"))
		assert.Empty(t, r.PostFormValue("From"))
		w.Write([]byte(`{"sid": "SM902", "status": "queued"}`))
	}))
	defer server.Close()

	p := newTwilio(server.URL, model.ChannelSMS)
	p.MessagingServiceSID = "MG42"
	res, err := p.Send(context.Background(), provider.SendRequest{To: "+15551234567", Body: "hi"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

// A vendor-level rejection is a failed SendResult, not a Go error.
func TestTwilioSendVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": 21211, "message": "The 'To' number is not a valid phone number."}`))
	}))
	defer server.Close()

	p := newTwilio(server.URL, model.ChannelSMS)
	res, err := p.Send(context.Background(), provider.SendRequest{To: "bogus", Body: "hi"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not a valid phone number")
}

func TestTwilioVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123.json", r.URL.Path)
		w.Write([]byte(`{"sid": "AC123", "status": "active"}`))
	}))
	defer server.Close()

	p := newTwilio(server.URL, model.ChannelSMS)
	assert.NoError(t, p.Verify(context.Background()))
}

func TestTwilioVerifyRejectsBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := newTwilio(server.URL, model.ChannelSMS)
	assert.Error(t, p.Verify(context.Background()))
}

func TestTwilioParseWebhook(t *testing.T) {
	p := &provider.TwilioProvider{}

	cases := []struct {
		body string
		sid  string
		want string
	}{
		{"MessageSid=SM1&MessageStatus=delivered", "SM1", model.StatusDelivered},
		{"MessageSid=SM2&MessageStatus=undelivered", "SM2", model.StatusFailed},
		{"SmsSid=SM3&SmsStatus=sent", "SM3", model.StatusSent},
		{"MessageSid=SM4&MessageStatus=sending", "SM4", model.StatusQueued},
		// Unknown statuses pass through lower-cased.
		{"MessageSid=SM5&MessageStatus=Frobnicated", "SM5", "frobnicated"},
	}
	for _, tc := range cases {
		event, err := p.ParseWebhook([]byte(tc.body), "")
		require.NoError(t, err)
		assert.Equal(t, tc.sid, event.ProviderMessageID)
		assert.Equal(t, tc.want, event.Status, "body: %s", tc.body)
	}
}

func TestTwilioGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Balance.json", r.URL.Path)
		w.Write([]byte(`{"balance": "42.50", "currency": "USD"}`))
	}))
	defer server.Close()

	p := newTwilio(server.URL, model.ChannelSMS)
	status, err := p.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "active", status.Status)
	assert.Equal(t, "42.50 USD", status.Balance)
}
