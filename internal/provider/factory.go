// internal/provider/factory.go
package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jkimani/textflow-backend/internal/apperrors"
	"github.com/jkimani/textflow-backend/internal/crypto"
	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/repository"
)

// Factory resolves the concrete provider for a (tenant, channel) pair. It
// decrypts credentials and constructs a fresh instance on every call; no
// caching means a settings update takes effect on the next send.
type Factory struct {
	Tenants repository.TenantRepositoryInterface
	Secret  string
	Client  *http.Client
}

func NewFactory(tenants repository.TenantRepositoryInterface, secret string, client *http.Client) *Factory {
	if client == nil {
		// Vendor calls always carry a timeout so a hung vendor cannot
		// stall a message forever.
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Factory{Tenants: tenants, Secret: secret, Client: client}
}

func (f *Factory) GetProvider(tenantID int, channel model.Channel) (Provider, error) {
	tenant, err := f.Tenants.GetByID(tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperrors.NewTenantNotFound(tenantID)
	}
	// Demo tenants bypass credential lookup entirely.
	if tenant.IsDemo {
		return NewDemoProvider(), nil
	}

	settings, err := f.Tenants.GetChannelSettings(tenantID, channel)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, apperrors.NewChannelNotConfigured(tenantID, string(channel))
	}
	return f.build(settings, channel)
}

// GetAllProviders returns a provider per configured channel. Demo tenants
// get a demo provider for every channel.
func (f *Factory) GetAllProviders(tenantID int) (map[model.Channel]Provider, error) {
	tenant, err := f.Tenants.GetByID(tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperrors.NewTenantNotFound(tenantID)
	}

	providers := map[model.Channel]Provider{}
	if tenant.IsDemo {
		for _, ch := range []model.Channel{model.ChannelWhatsApp, model.ChannelSMS, model.ChannelEmail} {
			providers[ch] = NewDemoProvider()
		}
		return providers, nil
	}

	settings, err := f.Tenants.ListChannelSettings(tenantID)
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		p, err := f.build(s, s.Channel)
		if err != nil {
			return nil, err
		}
		providers[s.Channel] = p
	}
	return providers, nil
}

// VerifyProvider resolves a provider and round-trips its credentials
// against the vendor. Used by settings flows before persisting a change.
func (f *Factory) VerifyProvider(ctx context.Context, tenantID int, channel model.Channel) error {
	p, err := f.GetProvider(tenantID, channel)
	if err != nil {
		return err
	}
	return p.Verify(ctx)
}

func (f *Factory) build(settings *model.ChannelSettings, channel model.Channel) (Provider, error) {
	plaintext, err := crypto.Decrypt(settings.CredentialsEncrypted, f.Secret)
	if err != nil {
		return nil, apperrors.NewInvalidCredentials(err)
	}
	creds := map[string]string{}
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, apperrors.NewInvalidCredentials(err)
	}

	cfg := mergeConfig(settings)

	switch settings.ProviderName {
	case "twilio":
		if channel != model.ChannelSMS && channel != model.ChannelWhatsApp {
			return nil, apperrors.NewUnsupportedChannel(settings.ProviderName, string(channel))
		}
		return &TwilioProvider{
			AccountSID:          creds["account_sid"],
			AuthToken:           creds["auth_token"],
			FromNumber:          cfg["phone_number"],
			MessagingServiceSID: cfg["messaging_service_sid"],
			Channel:             channel,
			Client:              f.Client,
		}, nil

	case "whatsapp_cloud":
		if channel != model.ChannelWhatsApp {
			return nil, apperrors.NewUnsupportedChannel(settings.ProviderName, string(channel))
		}
		return &WhatsAppCloudProvider{
			AccessToken:   creds["access_token"],
			PhoneNumberID: cfg["phone_number_id"],
			AppSecret:     creds["app_secret"],
			Client:        f.Client,
		}, nil

	case "aws_ses":
		if channel != model.ChannelEmail {
			return nil, apperrors.NewUnsupportedChannel(settings.ProviderName, string(channel))
		}
		return NewSESProvider(
			creds["access_key_id"],
			creds["secret_access_key"],
			cfg["region"],
			cfg["from_email"],
		)

	case "brevo":
		if channel != model.ChannelEmail {
			return nil, apperrors.NewUnsupportedChannel(settings.ProviderName, string(channel))
		}
		return &BrevoProvider{
			APIKey:    creds["api_key"],
			FromEmail: cfg["from_email"],
			FromName:  cfg["from_name"],
			Client:    f.Client,
		}, nil
	}
	return nil, apperrors.NewUnsupportedChannel(settings.ProviderName, string(channel))
}

// mergeConfig flattens provider_config_json and applies the column-level
// overrides, which win over the JSON-embedded values.
func mergeConfig(settings *model.ChannelSettings) map[string]string {
	cfg := map[string]string{}
	if settings.ProviderConfigJSON != "" {
		// A malformed blob just means no JSON-level config; the column
		// overrides below still apply.
		_ = json.Unmarshal([]byte(settings.ProviderConfigJSON), &cfg)
	}
	if settings.WebhookURL != "" {
		cfg["webhook_url"] = settings.WebhookURL
	}
	if settings.PhoneNumber != "" {
		cfg["phone_number"] = settings.PhoneNumber
	}
	if settings.MessagingServiceSID != "" {
		cfg["messaging_service_sid"] = settings.MessagingServiceSID
	}
	return cfg
}
