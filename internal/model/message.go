// internal/model/message.go
package model

import "time"

// Channel identifies which provider and rate-limit bucket a message uses.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
)

// Canonical message statuses. Webhook ingestion and the queue processor
// share this vocabulary and never move a message backwards through it.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusSent       = "sent"
	StatusDelivered  = "delivered"
	StatusRead       = "read"
	StatusFailed     = "failed"
)

var statusRank = map[string]int{
	StatusQueued:     0,
	StatusProcessing: 1,
	StatusSent:       2,
	StatusDelivered:  3,
	StatusRead:       4,
}

// IsCanonicalStatus reports whether s belongs to the shared vocabulary.
func IsCanonicalStatus(s string) bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a message may move from one status to
// another. Transitions are forward-only: failed and read are terminal,
// and failed is reachable from anything up to and including sent (a vendor
// may report a delivery failure after accepting the message).
func CanTransition(from, to string) bool {
	if from == to || from == StatusFailed || from == StatusRead {
		return false
	}
	if to == StatusFailed {
		return statusRank[from] <= statusRank[StatusSent]
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

type Message struct {
	ID                int        `db:"id" json:"id"`
	TenantID          int        `db:"tenant_id" json:"tenant_id"`
	CampaignID        int        `db:"campaign_id" json:"campaign_id"`
	ContactID         int        `db:"contact_id" json:"contact_id"`
	Channel           Channel    `db:"channel" json:"channel"`
	Status            string     `db:"status" json:"status"`
	ProviderMessageID string     `db:"provider_message_id" json:"provider_message_id,omitempty"`
	Attempts          int        `db:"attempts" json:"attempts"`
	StatusReason      string     `db:"status_reason" json:"status_reason,omitempty"`
	SentAt            *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt       *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt            *time.Time `db:"read_at" json:"read_at,omitempty"`
	FailedAt          *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
