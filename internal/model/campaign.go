// internal/model/campaign.go
package model

import (
	"encoding/json"
	"time"
)

// Campaign statuses.
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignSending   = "sending"
	CampaignSent      = "sent"
)

type Campaign struct {
	ID             int        `db:"id" json:"id"`
	TenantID       int        `db:"tenant_id" json:"tenant_id"`
	Name           string     `db:"name" json:"name"`
	Channel        Channel    `db:"channel" json:"channel"`
	Status         string     `db:"status" json:"status"`
	MessageContent string     `db:"message_content" json:"message_content"`
	FromNumber     string     `db:"from_number" json:"from_number,omitempty"`
	FromEmail      string     `db:"from_email" json:"from_email,omitempty"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// MessageContent is the channel-specific content blob stored on a campaign:
// template name + variables for WhatsApp, a body for SMS, and
// subject/htmlBody/textBody for email.
type MessageContent struct {
	TemplateName     string            `json:"template_name,omitempty"`
	TemplateLanguage string            `json:"template_language,omitempty"`
	Variables        map[string]string `json:"variables,omitempty"`
	Body             string            `json:"body,omitempty"`
	Subject          string            `json:"subject,omitempty"`
	HTMLBody         string            `json:"htmlBody,omitempty"`
	TextBody         string            `json:"textBody,omitempty"`
}

// ParseContent decodes the campaign's message_content JSON.
func (c *Campaign) ParseContent() (*MessageContent, error) {
	var content MessageContent
	if err := json.Unmarshal([]byte(c.MessageContent), &content); err != nil {
		return nil, err
	}
	return &content, nil
}
