// internal/service/campaign_service.go
package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/queue"
	"github.com/jkimani/textflow-backend/internal/repository"
)

type CampaignService struct {
	Campaigns repository.CampaignRepositoryInterface
	Contacts  repository.ContactRepositoryInterface
	Messages  repository.MessageRepositoryInterface
	Queue     queue.Publisher
}

// DispatchResult summarizes what a dispatch call enqueued.
type DispatchResult struct {
	CampaignID     int    `json:"campaign_id"`
	MessagesQueued int    `json:"messages_queued"`
	Status         string `json:"status"`
	MessageIDs     []int  `json:"message_ids"`
}

type CampaignDetails struct {
	ID             int            `json:"id"`
	TenantID       int            `json:"tenant_id"`
	Name           string         `json:"name"`
	Channel        model.Channel  `json:"channel"`
	Status         string         `json:"status"`
	MessageContent string         `json:"message_content"`
	ScheduledAt    *time.Time     `json:"scheduled_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
	Stats          map[string]int `json:"stats"`
}

// Dispatch creates queued message rows for the campaign's recipients and
// flips the campaign to sending. Creation is idempotent per
// (campaign, contact), so re-dispatching never duplicates sends. The queue
// processor picks the rows up on its next cycle; ids are also announced on
// the broker for the external queue-backed path.
func (s *CampaignService) Dispatch(campaignID int, contactIDs []int) (*DispatchResult, error) {
	campaign, err := s.Campaigns.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	switch campaign.Status {
	case model.CampaignDraft, model.CampaignScheduled, model.CampaignSending:
	default:
		return nil, fmt.Errorf("campaign cannot be sent in status: %s", campaign.Status)
	}

	if len(contactIDs) == 0 {
		contacts, err := s.Contacts.ListByTenant(campaign.TenantID)
		if err != nil {
			return nil, err
		}
		for _, c := range contacts {
			contactIDs = append(contactIDs, c.ID)
		}
	}

	result := &DispatchResult{
		CampaignID: campaignID,
		Status:     model.CampaignSending,
		MessageIDs: []int{},
	}

	for _, contactID := range contactIDs {
		exists, err := s.Messages.Exists(campaignID, contactID)
		if err != nil {
			log.Println("⚠️ failed to check existing message:", err)
			continue
		}
		if exists {
			continue
		}

		msg := &model.Message{
			TenantID:   campaign.TenantID,
			CampaignID: campaignID,
			ContactID:  contactID,
			Channel:    campaign.Channel,
			Status:     model.StatusQueued,
		}
		if err := s.Messages.Create(msg); err != nil {
			log.Println("⚠️ failed to create message for contact", contactID, ":", err)
			continue
		}
		result.MessageIDs = append(result.MessageIDs, msg.ID)
		result.MessagesQueued++
	}

	if campaign.Status != model.CampaignSending {
		if err := s.Campaigns.UpdateStatus(campaignID, model.CampaignSending); err != nil {
			return result, err
		}
	}

	if err := s.Queue.PublishMessageIDs(campaignID, result.MessageIDs); err != nil {
		// The rows are already queued; the poll loop will still send them.
		log.Println("⚠️ failed to announce dispatched messages:", err)
	}

	return result, nil
}

// Preview renders the campaign's content for one contact without sending.
func (s *CampaignService) Preview(campaignID, contactID int, overrideBody *string) (string, error) {
	campaign, err := s.Campaigns.GetByID(campaignID)
	if err != nil {
		return "", err
	}
	contact, err := s.Contacts.GetByID(contactID)
	if err != nil {
		return "", err
	}
	if contact == nil {
		return "", fmt.Errorf("contact not found")
	}

	content, err := campaign.ParseContent()
	if err != nil {
		return "", err
	}

	body := content.Body
	if campaign.Channel == model.ChannelEmail {
		body = content.TextBody
	}
	if overrideBody != nil && strings.TrimSpace(*overrideBody) != "" {
		body = *overrideBody
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("template cannot be empty")
	}

	return RenderTemplate(body, ContactData(contact, content.Variables)), nil
}

func (s *CampaignService) CreateCampaign(c *model.Campaign) error {
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	if c.MessageContent == "" {
		c.MessageContent = "{}"
	}
	if _, err := c.ParseContent(); err != nil {
		return fmt.Errorf("invalid message content: %w", err)
	}
	return s.Campaigns.Create(c)
}

// ListCampaigns fetches campaigns with pagination.
func (s *CampaignService) ListCampaigns(page, pageSize int, channel, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.Campaigns.ListCampaigns(offset, pageSize, channel, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

// DetailsWithStats returns a campaign plus its per-status message counts.
func (s *CampaignService) DetailsWithStats(campaignID int) (*CampaignDetails, error) {
	campaign, err := s.Campaigns.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Messages.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, count := range stats {
		total += count
	}
	stats["total"] = total

	return &CampaignDetails{
		ID:             campaign.ID,
		TenantID:       campaign.TenantID,
		Name:           campaign.Name,
		Channel:        campaign.Channel,
		Status:         campaign.Status,
		MessageContent: campaign.MessageContent,
		ScheduledAt:    campaign.ScheduledAt,
		CompletedAt:    campaign.CompletedAt,
		CreatedAt:      campaign.CreatedAt,
		UpdatedAt:      campaign.UpdatedAt,
		Stats:          stats,
	}, nil
}
