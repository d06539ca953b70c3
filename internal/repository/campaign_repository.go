package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jkimani/textflow-backend/internal/apperrors"
	"github.com/jkimani/textflow-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error)
	UpdateStatus(campaignID int, status string) error
	MarkCompleted(campaignID int) (bool, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, tenant_id, name, channel, status, message_content,
        COALESCE(from_number, ''), COALESCE(from_email, ''),
        scheduled_at, completed_at, created_at, updated_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns (tenant_id, name, channel, status, message_content, from_number, from_email, scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		c.TenantID, c.Name, c.Channel, c.Status, c.MessageContent,
		c.FromNumber, c.FromEmail, c.ScheduledAt, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id=$1`, campaignColumns)
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE 1=1`, campaignColumns)
	args := []interface{}{}
	argPos := 1

	if channel != "" {
		query += fmt.Sprintf(" AND channel=$%d", argPos)
		args = append(args, channel)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	countArgs := []interface{}{}
	countPos := 1
	if channel != "" {
		countQuery += fmt.Sprintf(" AND channel=$%d", countPos)
		countArgs = append(countArgs, channel)
		countPos++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", countPos)
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, campaignID)
	return err
}

// MarkCompleted flips a campaign from sending to sent. The condition makes
// the flip idempotent when two workers finish a campaign's last messages at
// the same time; at most one update takes effect.
func (r *CampaignRepository) MarkCompleted(campaignID int) (bool, error) {
	res, err := r.DB.Exec(
		`UPDATE campaigns SET status='sent', completed_at=NOW(), updated_at=NOW() WHERE id=$1 AND status='sending'`,
		campaignID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var scheduledAt, completedAt, updatedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Channel, &c.Status, &c.MessageContent,
		&c.FromNumber, &c.FromEmail, &scheduledAt, &completedAt, &c.CreatedAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.ScheduledAt = nullTime(scheduledAt)
	c.CompletedAt = nullTime(completedAt)
	c.UpdatedAt = nullTime(updatedAt)
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
