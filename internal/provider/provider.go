// Package provider contains the vendor adapters behind the outbound
// messaging pipeline. Each adapter maps one vendor API onto the common
// send/verify/webhook/status contract and normalizes vendor status strings
// into the canonical vocabulary shared with the queue processor and
// webhook ingestion.
package provider

import (
	"context"
	"strings"
	"time"
)

// SendRequest is the channel-specific payload for one outbound message.
// Phone/body fields apply to SMS and WhatsApp; template fields to WhatsApp
// template sends; subject/body fields to email.
type SendRequest struct {
	MessageID int
	To        string
	From      string

	Body             string
	TemplateName     string
	TemplateLanguage string
	Variables        map[string]string

	Subject  string
	HTMLBody string
	TextBody string
}

// SendResult reports the outcome of a send. Ordinary vendor-level failures
// come back as Success=false with the vendor's error text; adapters reserve
// Go errors for transport and programming failures.
type SendResult struct {
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Status            string `json:"status,omitempty"`
	Error             string `json:"error,omitempty"`
}

// WebhookEvent is a vendor delivery callback normalized into the canonical
// status vocabulary. Raw keeps the original payload for diagnosis.
type WebhookEvent struct {
	ProviderMessageID string    `json:"provider_message_id"`
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
	Raw               []byte    `json:"-"`
}

// AccountStatus is vendor account health, used for monitoring only.
type AccountStatus struct {
	Status    string `json:"status"`
	Balance   string `json:"balance,omitempty"`
	RateLimit string `json:"rate_limit,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type Provider interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
	Verify(ctx context.Context) error
	ParseWebhook(body []byte, signature string) (*WebhookEvent, error)
	GetStatus(ctx context.Context) (*AccountStatus, error)
}

func nowUTC() time.Time { return time.Now().UTC() }

func unixUTC(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// normalizeStatus maps a vendor status string through the adapter's lookup
// table. Unrecognized values pass through lower-cased unchanged; callers
// treat an unknown status as a log-worthy anomaly, never a crash.
func normalizeStatus(table map[string]string, vendorStatus string) string {
	key := strings.ToLower(strings.TrimSpace(vendorStatus))
	if canonical, ok := table[key]; ok {
		return canonical
	}
	return key
}
