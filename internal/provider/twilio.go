// internal/provider/twilio.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jkimani/textflow-backend/internal/model"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioProvider sends SMS and WhatsApp messages through the Twilio
// Messages API. The same adapter serves both channels; WhatsApp only
// changes the address prefix.
type TwilioProvider struct {
	AccountSID          string
	AuthToken           string
	FromNumber          string
	MessagingServiceSID string
	Channel             model.Channel

	BaseURL string
	Client  *http.Client
}

var twilioStatuses = map[string]string{
	"queued":      model.StatusQueued,
	"accepted":    model.StatusQueued,
	"scheduled":   model.StatusQueued,
	"sending":     model.StatusQueued,
	"sent":        model.StatusSent,
	"delivered":   model.StatusDelivered,
	"read":        model.StatusRead,
	"failed":      model.StatusFailed,
	"undelivered": model.StatusFailed,
	"canceled":    model.StatusFailed,
}

func (p *TwilioProvider) base() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return twilioAPIBase
}

func (p *TwilioProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	to := req.To
	from := p.FromNumber
	if req.From != "" {
		from = req.From
	}
	if p.Channel == model.ChannelWhatsApp {
		to = "whatsapp:" + to
		from = "whatsapp:" + from
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", req.Body)
	if p.MessagingServiceSID != "" && p.Channel == model.ChannelSMS {
		form.Set("MessagingServiceSid", p.MessagingServiceSID)
	} else {
		form.Set("From", from)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.base(), p.AccountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(p.AccountSID, p.AuthToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("twilio returned HTTP %d", resp.StatusCode)
		}
		return &SendResult{Success: false, Error: msg}, nil
	}

	var out struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode twilio response: %w", err)
	}
	return &SendResult{
		Success:           true,
		ProviderMessageID: out.SID,
		Status:            normalizeStatus(twilioStatuses, out.Status),
	}, nil
}

// Verify round-trips the credentials by fetching the account resource.
func (p *TwilioProvider) Verify(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", p.base(), p.AccountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	httpReq.SetBasicAuth(p.AccountSID, p.AuthToken)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twilio credential check failed: HTTP %d", resp.StatusCode)
	}
	return nil
}

// ParseWebhook handles Twilio's form-encoded status callbacks.
func (p *TwilioProvider) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse twilio callback: %w", err)
	}
	sid := values.Get("MessageSid")
	if sid == "" {
		sid = values.Get("SmsSid")
	}
	status := values.Get("MessageStatus")
	if status == "" {
		status = values.Get("SmsStatus")
	}
	event := &WebhookEvent{
		ProviderMessageID: sid,
		Status:            normalizeStatus(twilioStatuses, status),
		Timestamp:         nowUTC(),
		Raw:               body,
	}
	return event, nil
}

func (p *TwilioProvider) GetStatus(ctx context.Context) (*AccountStatus, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Balance.json", p.base(), p.AccountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(p.AccountSID, p.AuthToken)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &AccountStatus{Status: "error", Detail: fmt.Sprintf("HTTP %d", resp.StatusCode)}, nil
	}

	var out struct {
		Balance  string `json:"balance"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &AccountStatus{
		Status:  "active",
		Balance: strings.TrimSpace(out.Balance + " " + out.Currency),
	}, nil
}

var _ Provider = (*TwilioProvider)(nil)
