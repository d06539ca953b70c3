// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jkimani/textflow-backend/internal/model"
)

// Config carries everything the binaries read from the environment.
// Defaults match the reference deployment; rate limits are policy, not
// architecture, so all of them are overridable.
type Config struct {
	DatabaseURL      string
	HTTPAddr         string
	AMQPURL          string
	CredentialSecret string

	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	MessageDelay time.Duration
	HTTPTimeout  time.Duration

	RateLimits map[model.Channel]int
}

func Load() *Config {
	return &Config{
		DatabaseURL:      databaseURL(),
		HTTPAddr:         envString("HTTP_ADDR", ":8080"),
		AMQPURL:          os.Getenv("AMQP_URL"),
		CredentialSecret: envString("CREDENTIAL_SECRET", "dev-only-credential-secret"),

		PollInterval: envDuration("POLL_INTERVAL_MS", 100),
		BatchSize:    envInt("BATCH_SIZE", 50),
		MaxRetries:   envInt("MAX_RETRIES", 3),
		MessageDelay: envDuration("MESSAGE_DELAY_MS", 50),
		HTTPTimeout:  envDuration("HTTP_TIMEOUT_MS", 15000),

		RateLimits: map[model.Channel]int{
			model.ChannelWhatsApp: envInt("RATE_LIMIT_WHATSAPP", 30),
			model.ChannelSMS:      envInt("RATE_LIMIT_SMS", 30),
			model.ChannelEmail:    envInt("RATE_LIMIT_EMAIL", 14),
		},
	}
}

// databaseURL prefers a full DATABASE_URL and otherwise assembles one from
// the individual DB_* variables.
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		envString("DB_USER", "postgres"),
		envString("DB_PASSWORD", "postgres"),
		envString("DB_HOST", "localhost"),
		envString("DB_PORT", "5432"),
		envString("DB_NAME", "textflow"),
	)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallbackMS int) time.Duration {
	return time.Duration(envInt(key, fallbackMS)) * time.Millisecond
}
