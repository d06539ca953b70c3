// internal/model/tenant.go
package model

import "time"

type Tenant struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsDemo    bool      `db:"is_demo" json:"is_demo"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChannelSettings holds a tenant's provider configuration for one channel.
// CredentialsEncrypted is ciphertext; the column-level fields override the
// same keys inside ProviderConfigJSON when both are present.
type ChannelSettings struct {
	ID                   int     `db:"id" json:"id"`
	TenantID             int     `db:"tenant_id" json:"tenant_id"`
	Channel              Channel `db:"channel" json:"channel"`
	ProviderName         string  `db:"provider_name" json:"provider_name"`
	CredentialsEncrypted string  `db:"credentials_encrypted" json:"-"`
	ProviderConfigJSON   string  `db:"provider_config_json" json:"provider_config_json,omitempty"`
	WebhookURL           string  `db:"webhook_url" json:"webhook_url,omitempty"`
	PhoneNumber          string  `db:"phone_number" json:"phone_number,omitempty"`
	MessagingServiceSID  string  `db:"messaging_service_sid" json:"messaging_service_sid,omitempty"`
	IsConnected          bool    `db:"is_connected" json:"is_connected"`
	IsEnabled            bool    `db:"is_enabled" json:"is_enabled"`
}
