package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkimani/textflow-backend/internal/apperrors"
	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/queue"
	"github.com/jkimani/textflow-backend/internal/service"
)

// --- in-memory repositories ---

type fakeCampaignRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[int]*model.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{rows: map[int]*model.Campaign{}}
}

func (r *fakeCampaignRepo) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = r.seq
	clone := *c
	r.rows[c.ID] = &clone
	return nil
}

func (r *fakeCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, apperrors.NewCampaignNotFound(id)
	}
	clone := *row
	return &clone, nil
}

func (r *fakeCampaignRepo) ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	filtered := []*model.Campaign{}
	for id := r.seq; id >= 1; id-- {
		c, ok := r.rows[id]
		if !ok {
			continue
		}
		if channel != "" && string(c.Channel) != channel {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		clone := *c
		filtered = append(filtered, &clone)
	}
	total := len(filtered)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (r *fakeCampaignRepo) UpdateStatus(campaignID int, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[campaignID]; ok {
		row.Status = status
	}
	return nil
}

func (r *fakeCampaignRepo) MarkCompleted(campaignID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[campaignID]
	if !ok || row.Status != model.CampaignSending {
		return false, nil
	}
	now := time.Now()
	row.Status = model.CampaignSent
	row.CompletedAt = &now
	return true, nil
}

type fakeContactRepo struct {
	rows map[int]*model.Contact
}

func (r *fakeContactRepo) GetByID(id int) (*model.Contact, error) {
	if c, ok := r.rows[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeContactRepo) ListByTenant(tenantID int) ([]model.Contact, error) {
	out := []model.Contact{}
	for id := 1; id <= len(r.rows); id++ {
		if c, ok := r.rows[id]; ok && c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[int]*model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{rows: map[int]*model.Message{}}
}

func (r *fakeMessageRepo) Create(msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	msg.ID = r.seq
	clone := *msg
	r.rows[msg.ID] = &clone
	return nil
}

func (r *fakeMessageRepo) GetByID(id int) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.rows[id]; ok {
		clone := *m
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeMessageRepo) GetByProviderMessageID(pmid string) (*model.Message, error) { return nil, nil }
func (r *fakeMessageRepo) GetQueued(limit int) ([]*model.Message, error)             { return nil, nil }
func (r *fakeMessageRepo) Claim(id int) (bool, error)                                { return false, nil }
func (r *fakeMessageRepo) MarkSent(id int, pmid string) error                        { return nil }
func (r *fakeMessageRepo) MarkFailed(id int, attempts int, reason string) error      { return nil }
func (r *fakeMessageRepo) Release(id int, attempts int, reason string) error         { return nil }

func (r *fakeMessageRepo) UpdateDeliveryStatus(id int, fromStatus, toStatus string, at time.Time) (bool, error) {
	return false, nil
}

func (r *fakeMessageRepo) CountQueued(campaignID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.rows {
		if m.CampaignID == campaignID && m.Status == model.StatusQueued {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) CountByStatus(campaignID int) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := map[string]int{}
	for _, m := range r.rows {
		if m.CampaignID == campaignID {
			stats[m.Status]++
		}
	}
	return stats, nil
}

func (r *fakeMessageRepo) Exists(campaignID, contactID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.CampaignID == campaignID && m.ContactID == contactID {
			return true, nil
		}
	}
	return false, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published map[int][]int
}

func (p *recordingPublisher) PublishMessageIDs(campaignID int, ids []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published == nil {
		p.published = map[int][]int{}
	}
	p.published[campaignID] = append(p.published[campaignID], ids...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

var _ queue.Publisher = (*recordingPublisher)(nil)

// --- fixtures ---

func newService() (*service.CampaignService, *fakeCampaignRepo, *fakeMessageRepo, *recordingPublisher) {
	campaigns := newFakeCampaignRepo()
	messages := newFakeMessageRepo()
	contacts := &fakeContactRepo{rows: map[int]*model.Contact{
		1: {ID: 1, TenantID: 1, Phone: "+15551230001", Email: "a@example.com", FirstName: "Alice"},
		2: {ID: 2, TenantID: 1, Phone: "+15551230002", Email: "b@example.com", FirstName: "Bob"},
		3: {ID: 3, TenantID: 2, Phone: "+15551230003", Email: "c@example.com", FirstName: "Carol"},
	}}
	publisher := &recordingPublisher{}
	svc := &service.CampaignService{
		Campaigns: campaigns,
		Contacts:  contacts,
		Messages:  messages,
		Queue:     publisher,
	}
	return svc, campaigns, messages, publisher
}

func seedCampaign(t *testing.T, repo *fakeCampaignRepo, status string) *model.Campaign {
	t.Helper()
	c := &model.Campaign{
		TenantID:       1,
		Name:           "Spring sale",
		Channel:        model.ChannelSMS,
		Status:         status,
		MessageContent: `{"body": "Hi {first_name}!"}`,
	}
	require.NoError(t, repo.Create(c))
	return c
}

// --- tests ---

func TestDispatchQueuesTenantContacts(t *testing.T) {
	svc, campaigns, messages, publisher := newService()
	c := seedCampaign(t, campaigns, model.CampaignDraft)

	result, err := svc.Dispatch(c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.MessagesQueued, "only tenant 1's contacts are targeted")
	assert.Equal(t, model.CampaignSending, result.Status)
	assert.Len(t, result.MessageIDs, 2)

	updated, err := campaigns.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignSending, updated.Status)

	queued, err := messages.CountQueued(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, queued)

	assert.ElementsMatch(t, result.MessageIDs, publisher.published[c.ID])
}

func TestDispatchIsIdempotentPerContact(t *testing.T) {
	svc, campaigns, messages, _ := newService()
	c := seedCampaign(t, campaigns, model.CampaignDraft)

	_, err := svc.Dispatch(c.ID, nil)
	require.NoError(t, err)

	again, err := svc.Dispatch(c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, again.MessagesQueued, "re-dispatch must not duplicate sends")

	queued, err := messages.CountQueued(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
}

func TestDispatchExplicitContactList(t *testing.T) {
	svc, campaigns, _, _ := newService()
	c := seedCampaign(t, campaigns, model.CampaignScheduled)

	result, err := svc.Dispatch(c.ID, []int{2})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MessagesQueued)
}

func TestDispatchRejectsCompletedCampaign(t *testing.T) {
	svc, campaigns, _, _ := newService()
	c := seedCampaign(t, campaigns, model.CampaignSent)

	_, err := svc.Dispatch(c.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be sent in status")
}

func TestDispatchUnknownCampaign(t *testing.T) {
	svc, _, _, _ := newService()
	_, err := svc.Dispatch(404, nil)
	assert.Error(t, err)
}

func TestCreateCampaignValidatesContent(t *testing.T) {
	svc, _, _, _ := newService()

	err := svc.CreateCampaign(&model.Campaign{
		TenantID:       1,
		Name:           "Bad content",
		Channel:        model.ChannelSMS,
		MessageContent: "{not json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid message content")

	c := &model.Campaign{TenantID: 1, Name: "Defaults", Channel: model.ChannelSMS}
	require.NoError(t, svc.CreateCampaign(c))
	assert.Equal(t, model.CampaignDraft, c.Status)
	assert.Equal(t, "{}", c.MessageContent)
}

func TestListCampaignsPagination(t *testing.T) {
	svc, campaigns, _, _ := newService()
	for i := 0; i < 25; i++ {
		seedCampaign(t, campaigns, model.CampaignDraft)
	}

	page1, pagination, err := svc.ListCampaigns(1, 10, "", "")
	require.NoError(t, err)
	assert.Len(t, page1, 10)
	assert.Equal(t, 25, pagination["total_count"])
	assert.Equal(t, 3, pagination["total_pages"])

	page3, _, err := svc.ListCampaigns(3, 10, "", "")
	require.NoError(t, err)
	assert.Len(t, page3, 5)

	// Out-of-range values are clamped, not rejected.
	_, pagination, err = svc.ListCampaigns(0, 1000, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, pagination["page"])
	assert.Equal(t, 100, pagination["page_size"])
}

func TestPreviewRendersForContact(t *testing.T) {
	svc, campaigns, _, _ := newService()
	c := seedCampaign(t, campaigns, model.CampaignDraft)

	got, err := svc.Preview(c.ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi Alice!", got)

	override := "Yo {first_name}"
	got, err = svc.Preview(c.ID, 2, &override)
	require.NoError(t, err)
	assert.Equal(t, "Yo Bob", got)
}

func TestPreviewRejectsEmptyTemplate(t *testing.T) {
	svc, campaigns, _, _ := newService()
	c := &model.Campaign{
		TenantID:       1,
		Name:           "Empty",
		Channel:        model.ChannelSMS,
		Status:         model.CampaignDraft,
		MessageContent: `{}`,
	}
	require.NoError(t, campaigns.Create(c))

	_, err := svc.Preview(c.ID, 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template cannot be empty")
}

func TestDetailsWithStats(t *testing.T) {
	svc, campaigns, messages, _ := newService()
	c := seedCampaign(t, campaigns, model.CampaignSending)

	for i, status := range []string{model.StatusSent, model.StatusSent, model.StatusFailed, model.StatusQueued} {
		require.NoError(t, messages.Create(&model.Message{
			TenantID: 1, CampaignID: c.ID, ContactID: i + 1,
			Channel: model.ChannelSMS, Status: status,
		}))
	}

	details, err := svc.DetailsWithStats(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, details.Stats[model.StatusSent])
	assert.Equal(t, 1, details.Stats[model.StatusFailed])
	assert.Equal(t, 1, details.Stats[model.StatusQueued])
	assert.Equal(t, 4, details.Stats["total"])
}
