// internal/apperrors/errors.go
package apperrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrTenantNotFound: the provider factory was asked about a tenant that
// does not exist.
type ErrTenantNotFound struct {
	TenantID int
}

func (e *ErrTenantNotFound) Error() string {
	return fmt.Sprintf("tenant with ID %d not found", e.TenantID)
}

func NewTenantNotFound(id int) error {
	return &ErrTenantNotFound{TenantID: id}
}

// ErrChannelNotConfigured: the tenant has no settings row for the channel.
type ErrChannelNotConfigured struct {
	TenantID int
	Channel  string
}

func (e *ErrChannelNotConfigured) Error() string {
	return fmt.Sprintf("tenant %d has no %s provider configured", e.TenantID, e.Channel)
}

func NewChannelNotConfigured(tenantID int, channel string) error {
	return &ErrChannelNotConfigured{TenantID: tenantID, Channel: channel}
}

// ErrInvalidCredentials: the stored credential blob could not be decrypted
// or decoded. Never carries partially decrypted data.
type ErrInvalidCredentials struct {
	Err error
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid provider credentials: %v", e.Err)
}

func (e *ErrInvalidCredentials) Unwrap() error { return e.Err }

func NewInvalidCredentials(err error) error {
	return &ErrInvalidCredentials{Err: err}
}

// ErrUnsupportedChannel: the configured provider cannot serve the requested
// channel (e.g. asking an aws_ses row for whatsapp).
type ErrUnsupportedChannel struct {
	Provider string
	Channel  string
}

func (e *ErrUnsupportedChannel) Error() string {
	return fmt.Sprintf("provider %s does not support channel %s", e.Provider, e.Channel)
}

func NewUnsupportedChannel(provider, channel string) error {
	return &ErrUnsupportedChannel{Provider: provider, Channel: channel}
}
