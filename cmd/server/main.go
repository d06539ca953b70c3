// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jkimani/textflow-backend/internal/config"
	"github.com/jkimani/textflow-backend/internal/db"
	"github.com/jkimani/textflow-backend/internal/handler"
	"github.com/jkimani/textflow-backend/internal/provider"
	"github.com/jkimani/textflow-backend/internal/queue"
	"github.com/jkimani/textflow-backend/internal/ratelimit"
	"github.com/jkimani/textflow-backend/internal/repository"
	"github.com/jkimani/textflow-backend/internal/service"
	"github.com/jkimani/textflow-backend/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	defer conn.Close()
	log.Println("✅ Connected to database")

	tenantRepo := &repository.TenantRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	messageRepo := &repository.MessageRepository{DB: conn}

	var publisher queue.Publisher = queue.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := queue.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	factory := provider.NewFactory(tenantRepo, cfg.CredentialSecret, &http.Client{Timeout: cfg.HTTPTimeout})
	limiter := ratelimit.New(cfg.RateLimits)

	processor := worker.NewProcessor(messageRepo, campaignRepo, contactRepo, factory, limiter)
	processor.BatchSize = cfg.BatchSize
	processor.MaxRetries = cfg.MaxRetries
	processor.MessageDelay = cfg.MessageDelay

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go processor.Run(ctx, cfg.PollInterval)

	campaignService := &service.CampaignService{
		Campaigns: campaignRepo,
		Contacts:  contactRepo,
		Messages:  messageRepo,
		Queue:     publisher,
	}

	campaignHandler := &handler.CampaignHandler{Service: campaignService}
	providerHandler := &handler.ProviderHandler{Factory: factory}
	webhookHandler := &handler.WebhookHandler{Factory: factory, Messages: messageRepo}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignHandler.CreateCampaign)
	r.Get("/campaigns", campaignHandler.ListCampaigns)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignWithStats)
	r.Post("/campaigns/{id}/dispatch", campaignHandler.DispatchCampaign)
	r.Post("/campaigns/{id}/personalized-preview", campaignHandler.PersonalizedPreview)

	// Provider settings routes
	r.Post("/tenants/{tenantID}/channels/{channel}/verify", providerHandler.VerifyProvider)
	r.Get("/tenants/{tenantID}/channels/{channel}/status", providerHandler.ProviderStatus)

	// Vendor delivery callbacks
	r.Post("/webhooks/{tenantID}/{channel}", webhookHandler.HandleWebhook)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Println("🚀 Server running on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
