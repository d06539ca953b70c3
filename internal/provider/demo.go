// internal/provider/demo.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DemoProvider succeeds deterministically without any network I/O. Demo
// tenants get it from the factory regardless of channel, so sandbox
// accounts work with zero provider configuration.
type DemoProvider struct{}

// demoClock hands out strictly increasing millisecond timestamps so two
// sends of the same message inside one wall-clock millisecond still get
// distinct provider message ids.
var demoClock = struct {
	mu     sync.Mutex
	lastMS int64
}{}

func nextDemoMillis() int64 {
	demoClock.mu.Lock()
	defer demoClock.mu.Unlock()
	ms := time.Now().UnixMilli()
	if ms <= demoClock.lastMS {
		ms = demoClock.lastMS + 1
	}
	demoClock.lastMS = ms
	return ms
}

func NewDemoProvider() *DemoProvider { return &DemoProvider{} }

func (p *DemoProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	return &SendResult{
		Success:           true,
		ProviderMessageID: fmt.Sprintf("demo-%d-%d", req.MessageID, nextDemoMillis()),
		Status:            "sent",
	}, nil
}

func (p *DemoProvider) Verify(ctx context.Context) error { return nil }

// ParseWebhook accepts the simulated callbacks the demo environment posts.
func (p *DemoProvider) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	var payload struct {
		ProviderMessageID string `json:"provider_message_id"`
		Status            string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse demo callback: %w", err)
	}
	return &WebhookEvent{
		ProviderMessageID: payload.ProviderMessageID,
		Status:            normalizeStatus(map[string]string{}, payload.Status),
		Timestamp:         nowUTC(),
		Raw:               body,
	}, nil
}

func (p *DemoProvider) GetStatus(ctx context.Context) (*AccountStatus, error) {
	return &AccountStatus{Status: "active", Balance: "unlimited"}, nil
}

var _ Provider = (*DemoProvider)(nil)
