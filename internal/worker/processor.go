// Package worker contains the queue processor: the polling loop that moves
// campaign messages from queued to sent/failed against the vendor APIs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jkimani/textflow-backend/internal/apperrors"
	"github.com/jkimani/textflow-backend/internal/metrics"
	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/provider"
	"github.com/jkimani/textflow-backend/internal/ratelimit"
	"github.com/jkimani/textflow-backend/internal/repository"
	"github.com/jkimani/textflow-backend/internal/service"
)

// ProviderFactory is the slice of the provider factory the processor needs.
type ProviderFactory interface {
	GetProvider(tenantID int, channel model.Channel) (provider.Provider, error)
}

// Processor claims queued messages, dispatches them to the right channel
// handler, and applies the retry/failure policy. Multiple replicas may run
// concurrently; the atomic claim in the message repository keeps any row
// from being sent twice.
type Processor struct {
	Messages  repository.MessageRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
	Contacts  repository.ContactRepositoryInterface
	Providers ProviderFactory
	Limiter   *ratelimit.Limiter

	BatchSize    int
	MaxRetries   int
	MessageDelay time.Duration
}

func NewProcessor(
	messages repository.MessageRepositoryInterface,
	campaigns repository.CampaignRepositoryInterface,
	contacts repository.ContactRepositoryInterface,
	providers ProviderFactory,
	limiter *ratelimit.Limiter,
) *Processor {
	return &Processor{
		Messages:     messages,
		Campaigns:    campaigns,
		Contacts:     contacts,
		Providers:    providers,
		Limiter:      limiter,
		BatchSize:    50,
		MaxRetries:   3,
		MessageDelay: 50 * time.Millisecond,
	}
}

// terminalError marks a failure that retrying cannot fix: missing foreign
// keys, missing address fields, configuration problems. The message fails
// immediately and its attempts counter is left untouched.
type terminalError struct {
	reason string
}

func (e *terminalError) Error() string { return e.reason }

// Run polls ProcessQueuedMessages on a fixed interval until the context
// ends. A failed cycle is logged and retried on the next tick; it never
// takes the process down.
func (p *Processor) Run(ctx context.Context, interval time.Duration) {
	log.Println("📩 queue processor running, polling every", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("queue processor stopped:", ctx.Err())
			return
		case <-ticker.C:
			if _, err := p.ProcessQueuedMessages(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Println("⚠️ queue cycle failed:", err)
			}
		}
	}
}

// ProcessQueuedMessages runs one cycle: claim up to BatchSize of the oldest
// queued messages and handle each in turn. It returns how many messages
// this process claimed. Failures of individual messages never escape into
// the batch loop.
func (p *Processor) ProcessQueuedMessages(ctx context.Context) (int, error) {
	batch, err := p.Messages.GetQueued(p.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("select queued messages: %w", err)
	}

	processed := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		claimed, err := p.Messages.Claim(msg.ID)
		if err != nil {
			log.Println("⚠️ failed to claim message", msg.ID, ":", err)
			continue
		}
		if !claimed {
			// Another worker got there first.
			continue
		}

		if err := p.processMessage(ctx, msg); err != nil {
			p.handleFailure(msg, err)
		}
		processed++

		// Crude inter-message throttle on top of the per-channel limiter.
		if p.MessageDelay > 0 {
			time.Sleep(p.MessageDelay)
		}
	}
	return processed, nil
}

func (p *Processor) processMessage(ctx context.Context, msg *model.Message) error {
	contact, err := p.Contacts.GetByID(msg.ContactID)
	if err != nil {
		return err
	}
	if contact == nil {
		return &terminalError{fmt.Sprintf("Contact not found: %d", msg.ContactID)}
	}

	campaign, err := p.Campaigns.GetByID(msg.CampaignID)
	if err != nil {
		var notFound *apperrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			return &terminalError{fmt.Sprintf("Campaign not found: %d", msg.CampaignID)}
		}
		return err
	}

	content, err := campaign.ParseContent()
	if err != nil {
		return &terminalError{fmt.Sprintf("invalid campaign content: %v", err)}
	}

	switch msg.Channel {
	case model.ChannelWhatsApp:
		return p.sendWhatsApp(ctx, msg, campaign, contact, content)
	case model.ChannelSMS:
		return p.sendSMS(ctx, msg, campaign, contact, content)
	case model.ChannelEmail:
		return p.sendEmail(ctx, msg, campaign, contact, content)
	default:
		return &terminalError{fmt.Sprintf("unsupported channel: %s", msg.Channel)}
	}
}

func (p *Processor) sendWhatsApp(ctx context.Context, msg *model.Message, campaign *model.Campaign, contact *model.Contact, content *model.MessageContent) error {
	if contact.Phone == "" {
		return &terminalError{"Contact has no phone number"}
	}
	req := provider.SendRequest{
		MessageID:        msg.ID,
		To:               contact.Phone,
		From:             campaign.FromNumber,
		TemplateName:     content.TemplateName,
		TemplateLanguage: content.TemplateLanguage,
		Variables:        content.Variables,
		Body:             service.RenderTemplate(content.Body, service.ContactData(contact, content.Variables)),
	}
	return p.deliver(ctx, msg, req)
}

func (p *Processor) sendSMS(ctx context.Context, msg *model.Message, campaign *model.Campaign, contact *model.Contact, content *model.MessageContent) error {
	if contact.Phone == "" {
		return &terminalError{"Contact has no phone number"}
	}
	req := provider.SendRequest{
		MessageID: msg.ID,
		To:        contact.Phone,
		From:      campaign.FromNumber,
		Body:      service.RenderTemplate(content.Body, service.ContactData(contact, content.Variables)),
	}
	return p.deliver(ctx, msg, req)
}

func (p *Processor) sendEmail(ctx context.Context, msg *model.Message, campaign *model.Campaign, contact *model.Contact, content *model.MessageContent) error {
	if contact.Email == "" {
		return &terminalError{"Contact has no email address"}
	}
	data := service.ContactData(contact, content.Variables)
	req := provider.SendRequest{
		MessageID: msg.ID,
		To:        contact.Email,
		From:      campaign.FromEmail,
		Subject:   service.RenderTemplate(content.Subject, data),
		HTMLBody:  service.RenderTemplate(content.HTMLBody, data),
		TextBody:  service.RenderTemplate(content.TextBody, data),
	}
	return p.deliver(ctx, msg, req)
}

func (p *Processor) deliver(ctx context.Context, msg *model.Message, req provider.SendRequest) error {
	if err := p.Limiter.Wait(ctx, msg.Channel); err != nil {
		return err
	}

	prov, err := p.Providers.GetProvider(msg.TenantID, msg.Channel)
	if err != nil {
		if isConfigError(err) {
			return &terminalError{err.Error()}
		}
		return err
	}

	start := time.Now()
	res, err := prov.Send(ctx, req)
	metrics.SendDuration.WithLabelValues(string(msg.Channel)).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	if !res.Success {
		// Vendor-level failures join the same retry path as exceptions,
		// with the vendor's error text preserved for diagnosis.
		return fmt.Errorf("provider send failed: %s", res.Error)
	}

	p.Limiter.RecordSend(msg.Channel)
	if err := p.Messages.MarkSent(msg.ID, res.ProviderMessageID); err != nil {
		return err
	}
	metrics.MessagesProcessed.WithLabelValues(string(msg.Channel), "sent").Inc()
	p.checkCampaignCompletion(msg.CampaignID)
	return nil
}

// handleFailure records a failed handling attempt. Structural failures and
// non-retriable vendor errors are terminal immediately; everything else is
// released back to the queue until the retry budget runs out.
func (p *Processor) handleFailure(msg *model.Message, err error) {
	var term *terminalError
	if errors.As(err, &term) {
		if updErr := p.Messages.MarkFailed(msg.ID, msg.Attempts, term.reason); updErr != nil {
			log.Println("⚠️ failed to mark message", msg.ID, "failed:", updErr)
			return
		}
		log.Println("❌ message", msg.ID, "failed permanently:", term.reason)
		metrics.MessagesProcessed.WithLabelValues(string(msg.Channel), "failed").Inc()
		p.checkCampaignCompletion(msg.CampaignID)
		return
	}

	attempts := msg.Attempts + 1
	if attempts >= p.MaxRetries || isNonRetriable(err) {
		if updErr := p.Messages.MarkFailed(msg.ID, attempts, err.Error()); updErr != nil {
			log.Println("⚠️ failed to mark message", msg.ID, "failed:", updErr)
			return
		}
		log.Printf("❌ message %d failed after %d attempts: %v\n", msg.ID, attempts, err)
		metrics.MessagesProcessed.WithLabelValues(string(msg.Channel), "failed").Inc()
		p.checkCampaignCompletion(msg.CampaignID)
		return
	}

	if updErr := p.Messages.Release(msg.ID, attempts, err.Error()); updErr != nil {
		log.Println("⚠️ failed to release message", msg.ID, ":", updErr)
		return
	}
	log.Printf("🔁 message %d failed (attempt %d/%d), will retry: %v\n", msg.ID, attempts, p.MaxRetries, err)
	metrics.MessagesProcessed.WithLabelValues(string(msg.Channel), "retried").Inc()
}

// checkCampaignCompletion flips a campaign to sent once no queued messages
// remain. Two workers finishing the last two messages can both probe; the
// conditional flip makes that harmless.
func (p *Processor) checkCampaignCompletion(campaignID int) {
	remaining, err := p.Messages.CountQueued(campaignID)
	if err != nil {
		log.Println("⚠️ completion check failed for campaign", campaignID, ":", err)
		return
	}
	if remaining > 0 {
		return
	}
	flipped, err := p.Campaigns.MarkCompleted(campaignID)
	if err != nil {
		log.Println("⚠️ failed to complete campaign", campaignID, ":", err)
		return
	}
	if flipped {
		metrics.CampaignsCompleted.Inc()
		log.Println("✅ campaign", campaignID, "completed")
	}
}

func isConfigError(err error) bool {
	var tenantNotFound *apperrors.ErrTenantNotFound
	var notConfigured *apperrors.ErrChannelNotConfigured
	var invalidCreds *apperrors.ErrInvalidCredentials
	var unsupported *apperrors.ErrUnsupportedChannel
	return errors.As(err, &tenantNotFound) ||
		errors.As(err, &notConfigured) ||
		errors.As(err, &invalidCreds) ||
		errors.As(err, &unsupported)
}

// Vendor errors that retrying cannot fix: template/parameter mismatches and
// permission problems fail the same way every time, so they skip the rest
// of the retry budget.
var nonRetriablePatterns = []string{
	"parameter mismatch",
	"number of parameters does not match",
	"template does not exist",
	"permission",
	"not authorized",
	"invalid oauth access token",
	"recipient phone number not in allowed list",
}

func isNonRetriable(err error) bool {
	text := strings.ToLower(err.Error())
	for _, pattern := range nonRetriablePatterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}
