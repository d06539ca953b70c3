// internal/provider/brevo.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jkimani/textflow-backend/internal/model"
)

const brevoAPIBase = "https://api.brevo.com"

// BrevoProvider sends transactional email through the Brevo REST API.
type BrevoProvider struct {
	APIKey    string
	FromEmail string
	FromName  string

	BaseURL string
	Client  *http.Client
}

var brevoEvents = map[string]string{
	"request":       model.StatusQueued,
	"delivered":     model.StatusDelivered,
	"opened":        model.StatusRead,
	"unique_opened": model.StatusRead,
	"hard_bounce":   model.StatusFailed,
	"soft_bounce":   model.StatusFailed,
	"blocked":       model.StatusFailed,
	"spam":          model.StatusFailed,
	"invalid_email": model.StatusFailed,
	"error":         model.StatusFailed,
}

func (p *BrevoProvider) base() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return brevoAPIBase
}

func (p *BrevoProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	from := p.FromEmail
	if req.From != "" {
		from = req.From
	}
	payload := map[string]interface{}{
		"sender":      map[string]string{"email": from, "name": p.FromName},
		"to":          []map[string]string{{"email": req.To}},
		"subject":     req.Subject,
		"htmlContent": req.HTMLBody,
	}
	if req.TextBody != "" {
		payload["textContent"] = req.TextBody
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base()+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("api-key", p.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("brevo returned HTTP %d", resp.StatusCode)
		}
		return &SendResult{Success: false, Error: msg}, nil
	}

	var out struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode brevo response: %w", err)
	}
	return &SendResult{
		Success:           true,
		ProviderMessageID: out.MessageID,
		Status:            model.StatusSent,
	}, nil
}

func (p *BrevoProvider) Verify(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base()+"/v3/account", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("api-key", p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("brevo credential check failed: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (p *BrevoProvider) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	var payload struct {
		Event     string `json:"event"`
		MessageID string `json:"message-id"`
		TS        int64  `json:"ts"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse brevo callback: %w", err)
	}
	ts := nowUTC()
	if payload.TS > 0 {
		ts = unixUTC(payload.TS)
	}
	return &WebhookEvent{
		ProviderMessageID: payload.MessageID,
		Status:            normalizeStatus(brevoEvents, payload.Event),
		Timestamp:         ts,
		Raw:               body,
	}, nil
}

func (p *BrevoProvider) GetStatus(ctx context.Context) (*AccountStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base()+"/v3/account", nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("api-key", p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &AccountStatus{Status: "error", Detail: fmt.Sprintf("HTTP %d", resp.StatusCode)}, nil
	}

	var out struct {
		Plan []struct {
			Type    string  `json:"type"`
			Credits float64 `json:"credits"`
		} `json:"plan"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	status := &AccountStatus{Status: "active"}
	if len(out.Plan) > 0 {
		status.Balance = fmt.Sprintf("%.0f credits (%s)", out.Plan[0].Credits, out.Plan[0].Type)
	}
	return status, nil
}

var _ Provider = (*BrevoProvider)(nil)
