// cmd/worker/main.go
//
// Standalone queue-processor replica. Runs the same poll loop as the
// server; the atomic claim on message rows makes it safe to run next to
// any number of other replicas.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jkimani/textflow-backend/internal/config"
	"github.com/jkimani/textflow-backend/internal/db"
	"github.com/jkimani/textflow-backend/internal/provider"
	"github.com/jkimani/textflow-backend/internal/ratelimit"
	"github.com/jkimani/textflow-backend/internal/repository"
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

	factory := provider.NewFactory(tenantRepo, cfg.CredentialSecret, &http.Client{Timeout: cfg.HTTPTimeout})
	limiter := ratelimit.New(cfg.RateLimits)

	processor := worker.NewProcessor(messageRepo, campaignRepo, contactRepo, factory, limiter)
	processor.BatchSize = cfg.BatchSize
	processor.MaxRetries = cfg.MaxRetries
	processor.MessageDelay = cfg.MessageDelay

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down...")
		cancel()
	}()

	processor.Run(ctx, cfg.PollInterval)
}
