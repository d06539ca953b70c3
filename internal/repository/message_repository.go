package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jkimani/textflow-backend/internal/model"
)

type MessageRepositoryInterface interface {
	Create(msg *model.Message) error
	GetByID(id int) (*model.Message, error)
	GetByProviderMessageID(providerMessageID string) (*model.Message, error)
	GetQueued(limit int) ([]*model.Message, error)
	Claim(id int) (bool, error)
	MarkSent(id int, providerMessageID string) error
	MarkFailed(id int, attempts int, reason string) error
	Release(id int, attempts int, reason string) error
	UpdateDeliveryStatus(id int, fromStatus, toStatus string, at time.Time) (bool, error)
	CountQueued(campaignID int) (int, error)
	CountByStatus(campaignID int) (map[string]int, error)
	Exists(campaignID, contactID int) (bool, error)
}

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `id, tenant_id, campaign_id, contact_id, channel, status,
        COALESCE(provider_message_id, ''), attempts, COALESCE(status_reason, ''),
        sent_at, delivered_at, read_at, failed_at, created_at, updated_at`

func (r *MessageRepository) Create(msg *model.Message) error {
	if msg.Status == "" {
		msg.Status = model.StatusQueued
	}
	query := `
        INSERT INTO messages (tenant_id, campaign_id, contact_id, channel, status, attempts, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	return r.DB.QueryRow(query, msg.TenantID, msg.CampaignID, msg.ContactID, msg.Channel, msg.Status).
		Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)
}

func (r *MessageRepository) GetByID(id int) (*model.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE id=$1`, messageColumns)
	return scanMessage(r.DB.QueryRow(query, id))
}

func (r *MessageRepository) GetByProviderMessageID(providerMessageID string) (*model.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE provider_message_id=$1`, messageColumns)
	return scanMessage(r.DB.QueryRow(query, providerMessageID))
}

// GetQueued returns up to limit queued messages, oldest first.
func (r *MessageRepository) GetQueued(limit int) ([]*model.Message, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM messages
        WHERE status='queued'
        ORDER BY created_at ASC
        LIMIT $1
    `, messageColumns)

	rows, err := r.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Claim atomically moves a message from queued to processing. It returns
// false when another worker got there first; the conditional UPDATE on a
// single row is the only cross-process coordination in the system.
func (r *MessageRepository) Claim(id int) (bool, error) {
	res, err := r.DB.Exec(
		`UPDATE messages SET status='processing', updated_at=NOW() WHERE id=$1 AND status='queued'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *MessageRepository) MarkSent(id int, providerMessageID string) error {
	query := `
        UPDATE messages
        SET status='sent', provider_message_id=$2, status_reason=NULL, sent_at=NOW(), updated_at=NOW()
        WHERE id=$1
    `
	_, err := r.DB.Exec(query, id, providerMessageID)
	return err
}

func (r *MessageRepository) MarkFailed(id int, attempts int, reason string) error {
	query := `
        UPDATE messages
        SET status='failed', attempts=$2, status_reason=$3, failed_at=NOW(), updated_at=NOW()
        WHERE id=$1
    `
	_, err := r.DB.Exec(query, id, attempts, reason)
	return err
}

// Release puts a claimed message back in the queue for a later cycle.
func (r *MessageRepository) Release(id int, attempts int, reason string) error {
	query := `
        UPDATE messages
        SET status='queued', attempts=$2, status_reason=$3, updated_at=NOW()
        WHERE id=$1
    `
	_, err := r.DB.Exec(query, id, attempts, reason)
	return err
}

// UpdateDeliveryStatus applies a webhook-driven transition, conditioned on
// the status the caller observed so a stale callback can never regress the
// row. Returns false when the row moved on in the meantime.
func (r *MessageRepository) UpdateDeliveryStatus(id int, fromStatus, toStatus string, at time.Time) (bool, error) {
	var tsColumn string
	switch toStatus {
	case model.StatusSent:
		tsColumn = "sent_at"
	case model.StatusDelivered:
		tsColumn = "delivered_at"
	case model.StatusRead:
		tsColumn = "read_at"
	case model.StatusFailed:
		tsColumn = "failed_at"
	default:
		return false, fmt.Errorf("no timestamp column for status %q", toStatus)
	}

	query := fmt.Sprintf(`
        UPDATE messages
        SET status=$1, %s=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4
    `, tsColumn)
	res, err := r.DB.Exec(query, toStatus, at, id, fromStatus)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CountQueued is the campaign-completion probe.
func (r *MessageRepository) CountQueued(campaignID int) (int, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE campaign_id=$1 AND status='queued'`, campaignID).Scan(&count)
	return count, err
}

func (r *MessageRepository) CountByStatus(campaignID int) (map[string]int, error) {
	rows, err := r.DB.Query(
		`SELECT status, COUNT(*) FROM messages WHERE campaign_id=$1 GROUP BY status`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.StatusQueued:     0,
		model.StatusProcessing: 0,
		model.StatusSent:       0,
		model.StatusDelivered:  0,
		model.StatusRead:       0,
		model.StatusFailed:     0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (r *MessageRepository) Exists(campaignID, contactID int) (bool, error) {
	var tmp int
	err := r.DB.QueryRow(
		`SELECT 1 FROM messages WHERE campaign_id=$1 AND contact_id=$2 LIMIT 1`,
		campaignID, contactID).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var msg model.Message
	var sentAt, deliveredAt, readAt, failedAt sql.NullTime
	err := row.Scan(
		&msg.ID, &msg.TenantID, &msg.CampaignID, &msg.ContactID, &msg.Channel, &msg.Status,
		&msg.ProviderMessageID, &msg.Attempts, &msg.StatusReason,
		&sentAt, &deliveredAt, &readAt, &failedAt, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	msg.SentAt = nullTime(sentAt)
	msg.DeliveredAt = nullTime(deliveredAt)
	msg.ReadAt = nullTime(readAt)
	msg.FailedAt = nullTime(failedAt)
	return &msg, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
