// internal/handler/webhook_handler.go
package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jkimani/textflow-backend/internal/metrics"
	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/provider"
	"github.com/jkimani/textflow-backend/internal/repository"
)

// WebhookFactory is the slice of the provider factory webhook ingestion
// needs.
type WebhookFactory interface {
	GetProvider(tenantID int, channel model.Channel) (provider.Provider, error)
}

// WebhookHandler normalizes vendor delivery callbacks into status
// transitions on the same message rows the queue processor writes.
// Transitions are forward-only; a late or duplicate callback never moves a
// message backwards through its lifecycle.
type WebhookHandler struct {
	Factory  WebhookFactory
	Messages repository.MessageRepositoryInterface
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	tenantID, channel, ok := tenantChannelParams(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get("X-Hub-Signature-256")
	if signature == "" {
		signature = r.Header.Get("X-Twilio-Signature")
	}

	p, err := h.Factory.GetProvider(tenantID, channel)
	if err != nil {
		http.Error(w, err.Error(), factoryErrorStatus(err))
		return
	}

	eventID := uuid.NewString()
	event, err := p.ParseWebhook(body, signature)
	if err != nil {
		log.Println("⚠️ webhook", eventID, "rejected:", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.applyEvent(eventID, channel, event)

	// Vendors retry on non-2xx; once parsed, the callback is always
	// acknowledged even when we had nothing to update.
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "event_id": eventID})
}

func (h *WebhookHandler) applyEvent(eventID string, channel model.Channel, event *provider.WebhookEvent) {
	if event.ProviderMessageID == "" || event.Status == "" {
		return
	}
	metrics.WebhookEvents.WithLabelValues(string(channel), event.Status).Inc()

	if !model.IsCanonicalStatus(event.Status) {
		// Intentionally lossy normalization: unknown vendor statuses pass
		// through lower-cased. Worth a log line, never a crash.
		log.Printf("⚠️ webhook %s carries unknown status %q for %s\n", eventID, event.Status, event.ProviderMessageID)
		return
	}

	msg, err := h.Messages.GetByProviderMessageID(event.ProviderMessageID)
	if err != nil {
		log.Println("⚠️ webhook", eventID, "lookup failed:", err)
		return
	}
	if msg == nil {
		log.Println("⚠️ webhook", eventID, "references unknown message", event.ProviderMessageID)
		return
	}

	if !model.CanTransition(msg.Status, event.Status) {
		log.Printf("webhook %s ignored: %s -> %s is not a forward transition for message %d\n",
			eventID, msg.Status, event.Status, msg.ID)
		return
	}

	updated, err := h.Messages.UpdateDeliveryStatus(msg.ID, msg.Status, event.Status, event.Timestamp)
	if err != nil {
		log.Println("⚠️ webhook", eventID, "update failed:", err)
		return
	}
	if updated {
		log.Printf("📬 message %d: %s -> %s\n", msg.ID, msg.Status, event.Status)
	}
}
