// internal/provider/ses.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/jkimani/textflow-backend/internal/model"
)

// SESProvider sends email through Amazon SES and normalizes the event
// notifications SES publishes via SNS.
type SESProvider struct {
	FromEmail string

	client *sesv2.Client
}

var sesEventTypes = map[string]string{
	"send":             model.StatusSent,
	"delivery":         model.StatusDelivered,
	"open":             model.StatusRead,
	"bounce":           model.StatusFailed,
	"complaint":        model.StatusFailed,
	"reject":           model.StatusFailed,
	"renderingfailure": model.StatusFailed,
}

func NewSESProvider(accessKeyID, secretAccessKey, region, fromEmail string) (*SESProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load ses config: %w", err)
	}
	return &SESProvider{
		FromEmail: fromEmail,
		client:    sesv2.NewFromConfig(cfg),
	}, nil
}

func (p *SESProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	from := p.FromEmail
	if req.From != "" {
		from = req.From
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{req.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(req.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(req.HTMLBody)},
					Text: &types.Content{Data: aws.String(req.TextBody)},
				},
			},
		},
	}
	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		// SES rejections arrive as SDK errors; report them as vendor
		// failures so the retry policy owns the decision.
		return &SendResult{Success: false, Error: err.Error()}, nil
	}
	return &SendResult{
		Success:           true,
		ProviderMessageID: aws.ToString(out.MessageId),
		Status:            model.StatusSent,
	}, nil
}

func (p *SESProvider) Verify(ctx context.Context) error {
	out, err := p.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return fmt.Errorf("ses credential check failed: %w", err)
	}
	if !out.SendingEnabled {
		return fmt.Errorf("ses account sending is disabled")
	}
	return nil
}

// ParseWebhook handles SES event notifications wrapped in an SNS envelope.
// Subscription-confirmation messages yield an event with no message id.
func (p *SESProvider) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	var envelope struct {
		Type    string `json:"Type"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse sns envelope: %w", err)
	}
	if envelope.Type != "Notification" {
		return &WebhookEvent{Timestamp: nowUTC(), Raw: body}, nil
	}

	var event struct {
		EventType        string `json:"eventType"`
		NotificationType string `json:"notificationType"`
		Mail             struct {
			MessageID string `json:"messageId"`
		} `json:"mail"`
	}
	if err := json.Unmarshal([]byte(envelope.Message), &event); err != nil {
		return nil, fmt.Errorf("parse ses event: %w", err)
	}
	eventType := event.EventType
	if eventType == "" {
		eventType = event.NotificationType
	}
	return &WebhookEvent{
		ProviderMessageID: event.Mail.MessageID,
		Status:            normalizeStatus(sesEventTypes, eventType),
		Timestamp:         nowUTC(),
		Raw:               body,
	}, nil
}

func (p *SESProvider) GetStatus(ctx context.Context) (*AccountStatus, error) {
	out, err := p.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return nil, err
	}
	status := "enabled"
	if !out.SendingEnabled {
		status = "paused"
	}
	result := &AccountStatus{Status: status}
	if out.SendQuota != nil {
		result.RateLimit = fmt.Sprintf("%.0f/s", out.SendQuota.MaxSendRate)
		result.Detail = fmt.Sprintf("sent %.0f of %.0f in last 24h",
			out.SendQuota.SentLast24Hours, out.SendQuota.Max24HourSend)
	}
	return result, nil
}

var _ Provider = (*SESProvider)(nil)
