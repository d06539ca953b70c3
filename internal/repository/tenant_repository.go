package repository

import (
	"database/sql"

	"github.com/jkimani/textflow-backend/internal/model"
)

type TenantRepositoryInterface interface {
	GetByID(id int) (*model.Tenant, error)
	GetChannelSettings(tenantID int, channel model.Channel) (*model.ChannelSettings, error)
	ListChannelSettings(tenantID int) ([]*model.ChannelSettings, error)
}

type TenantRepository struct {
	DB *sql.DB
}

func (r *TenantRepository) GetByID(id int) (*model.Tenant, error) {
	query := `SELECT id, name, is_demo, created_at FROM tenants WHERE id=$1`
	var t model.Tenant
	err := r.DB.QueryRow(query, id).Scan(&t.ID, &t.Name, &t.IsDemo, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

const channelSettingsColumns = `id, tenant_id, channel, provider_name, credentials_encrypted,
        COALESCE(provider_config_json, ''), COALESCE(webhook_url, ''),
        COALESCE(phone_number, ''), COALESCE(messaging_service_sid, ''),
        is_connected, is_enabled`

func (r *TenantRepository) GetChannelSettings(tenantID int, channel model.Channel) (*model.ChannelSettings, error) {
	query := `
        SELECT ` + channelSettingsColumns + `
        FROM tenant_channel_settings
        WHERE tenant_id=$1 AND channel=$2
    `
	return scanChannelSettings(r.DB.QueryRow(query, tenantID, channel))
}

func (r *TenantRepository) ListChannelSettings(tenantID int) ([]*model.ChannelSettings, error) {
	query := `
        SELECT ` + channelSettingsColumns + `
        FROM tenant_channel_settings
        WHERE tenant_id=$1
        ORDER BY channel
    `
	rows, err := r.DB.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []*model.ChannelSettings{}
	for rows.Next() {
		s, err := scanChannelSettings(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func scanChannelSettings(row rowScanner) (*model.ChannelSettings, error) {
	var s model.ChannelSettings
	err := row.Scan(
		&s.ID, &s.TenantID, &s.Channel, &s.ProviderName, &s.CredentialsEncrypted,
		&s.ProviderConfigJSON, &s.WebhookURL, &s.PhoneNumber, &s.MessagingServiceSID,
		&s.IsConnected, &s.IsEnabled,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

var _ TenantRepositoryInterface = (*TenantRepository)(nil)
