// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "textflow_messages_processed_total",
		Help: "Outbound messages handled by the queue processor, by channel and outcome.",
	}, []string{"channel", "result"})

	CampaignsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "textflow_campaigns_completed_total",
		Help: "Campaigns flipped from sending to sent.",
	})

	SendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "textflow_provider_send_duration_seconds",
		Help:    "Latency of provider send calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "textflow_webhook_events_total",
		Help: "Provider delivery callbacks ingested, by channel and normalized status.",
	}, []string{"channel", "status"})
)
