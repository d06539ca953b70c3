// internal/provider/whatsapp_cloud.go
package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jkimani/textflow-backend/internal/model"
)

const whatsAppCloudAPIBase = "https://graph.facebook.com/v19.0"

// WhatsAppCloudProvider talks to Meta's WhatsApp Cloud API directly.
type WhatsAppCloudProvider struct {
	AccessToken   string
	PhoneNumberID string
	AppSecret     string

	BaseURL string
	Client  *http.Client
}

var whatsAppStatuses = map[string]string{
	"accepted":  model.StatusQueued,
	"sent":      model.StatusSent,
	"delivered": model.StatusDelivered,
	"read":      model.StatusRead,
	"failed":    model.StatusFailed,
	"deleted":   model.StatusFailed,
}

func (p *WhatsAppCloudProvider) base() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return whatsAppCloudAPIBase
}

func (p *WhatsAppCloudProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(req.To, "+"),
	}
	if req.TemplateName != "" {
		lang := req.TemplateLanguage
		if lang == "" {
			lang = "en"
		}
		payload["type"] = "template"
		payload["template"] = map[string]interface{}{
			"name":       req.TemplateName,
			"language":   map[string]string{"code": lang},
			"components": templateComponents(req.Variables),
		}
	} else {
		payload["type"] = "text"
		payload["text"] = map[string]string{"body": req.Body}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s/messages", p.base(), p.PhoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.AccessToken)
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
			Error struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("whatsapp cloud api returned HTTP %d", resp.StatusCode)
		}
		return &SendResult{Success: false, Error: msg}, nil
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode whatsapp cloud response: %w", err)
	}
	if len(out.Messages) == 0 {
		return &SendResult{Success: false, Error: "whatsapp cloud api accepted the request but returned no message id"}, nil
	}
	return &SendResult{
		Success:           true,
		ProviderMessageID: out.Messages[0].ID,
		Status:            model.StatusSent,
	}, nil
}

// templateComponents renders the variables map into body parameters in a
// stable (sorted-key) order, since template slots are positional.
func templateComponents(variables map[string]string) []map[string]interface{} {
	if len(variables) == 0 {
		return []map[string]interface{}{}
	}
	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		params = append(params, map[string]string{"type": "text", "text": variables[k]})
	}
	return []map[string]interface{}{
		{"type": "body", "parameters": params},
	}
}

func (p *WhatsAppCloudProvider) Verify(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s?fields=verified_name", p.base(), p.PhoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.AccessToken)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whatsapp cloud credential check failed: HTTP %d", resp.StatusCode)
	}
	return nil
}

// ParseWebhook handles the statuses array of a Cloud API callback. When an
// app secret is configured the X-Hub-Signature-256 header is verified.
func (p *WhatsAppCloudProvider) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	if p.AppSecret != "" && signature != "" {
		if err := p.verifySignature(body, signature); err != nil {
			return nil, err
		}
	}

	var payload struct {
		Entry []struct {
			Changes []struct {
				Value struct {
					Statuses []struct {
						ID        string `json:"id"`
						Status    string `json:"status"`
						Timestamp string `json:"timestamp"`
					} `json:"statuses"`
				} `json:"value"`
			} `json:"changes"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse whatsapp cloud callback: %w", err)
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, st := range change.Value.Statuses {
				ts := nowUTC()
				if unix, err := strconv.ParseInt(st.Timestamp, 10, 64); err == nil {
					ts = time.Unix(unix, 0).UTC()
				}
				return &WebhookEvent{
					ProviderMessageID: st.ID,
					Status:            normalizeStatus(whatsAppStatuses, st.Status),
					Timestamp:         ts,
					Raw:               body,
				}, nil
			}
		}
	}
	// Non-status callbacks (inbound messages etc.) are not ours to handle.
	return &WebhookEvent{Timestamp: nowUTC(), Raw: body}, nil
}

func (p *WhatsAppCloudProvider) verifySignature(body []byte, signature string) error {
	expected := strings.TrimPrefix(signature, "sha256=")
	mac := hmac.New(sha256.New, []byte(p.AppSecret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(computed), []byte(expected)) {
		return errors.New("whatsapp cloud webhook signature mismatch")
	}
	return nil
}

func (p *WhatsAppCloudProvider) GetStatus(ctx context.Context) (*AccountStatus, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=verified_name,quality_rating", p.base(), p.PhoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.AccessToken)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &AccountStatus{Status: "error", Detail: fmt.Sprintf("HTTP %d", resp.StatusCode)}, nil
	}

	var out struct {
		VerifiedName  string `json:"verified_name"`
		QualityRating string `json:"quality_rating"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &AccountStatus{
		Status: "active",
		Detail: fmt.Sprintf("%s (quality: %s)", out.VerifiedName, out.QualityRating),
	}, nil
}

var _ Provider = (*WhatsAppCloudProvider)(nil)
