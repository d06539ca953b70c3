//cmd/seeder/main.go
//
// Applies the schema and seeds a demo tenant plus one regular tenant with
// an encrypted Twilio credential row, so both the demo short-circuit and
// the real factory path have data to work against.
package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/jkimani/textflow-backend/internal/config"
	"github.com/jkimani/textflow-backend/internal/crypto"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	schema, err := os.ReadFile("seed/schema.sql")
	if err != nil {
		log.Fatalf("failed to read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	fmt.Println("Applied: seed/schema.sql")

	var demoID int
	err = db.QueryRow(
		`INSERT INTO tenants (name, is_demo) VALUES ('Demo Workspace', TRUE) RETURNING id`).Scan(&demoID)
	if err != nil {
		log.Fatalf("failed to seed demo tenant: %v", err)
	}

	var tenantID int
	err = db.QueryRow(
		`INSERT INTO tenants (name, is_demo) VALUES ('Acme Retail', FALSE) RETURNING id`).Scan(&tenantID)
	if err != nil {
		log.Fatalf("failed to seed tenant: %v", err)
	}

	contacts := []struct {
		phone, email, first, last string
	}{
		{"+15551234567", "alice@example.com", "Alice", "Smith"},
		{"+15557654321", "bob@example.com", "Bob", "Jones"},
		{"", "carol@example.com", "Carol", "Mwangi"},
	}
	for _, tid := range []int{demoID, tenantID} {
		for _, c := range contacts {
			_, err := db.Exec(
				`INSERT INTO contacts (tenant_id, phone, email, first_name, last_name) VALUES ($1, $2, $3, $4, $5)`,
				tid, c.phone, c.email, c.first, c.last)
			if err != nil {
				log.Fatalf("failed to seed contact: %v", err)
			}
		}
	}

	content, _ := json.Marshal(map[string]interface{}{
		"template_name":     "order_confirmation",
		"template_language": "en",
		"variables":         map[string]string{"order_id": "A100"},
		"body":              "Hi {first_name}, your order {order_id} has shipped!",
	})
	_, err = db.Exec(
		`INSERT INTO campaigns (tenant_id, name, channel, status, message_content, from_number)
         VALUES ($1, 'Order confirmations', 'whatsapp', 'draft', $2, '+15550000001')`,
		demoID, string(content))
	if err != nil {
		log.Fatalf("failed to seed campaign: %v", err)
	}

	creds, _ := json.Marshal(map[string]string{
		"account_sid": "ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
		"auth_token":  "replace-me",
	})
	encrypted, err := crypto.Encrypt(creds, cfg.CredentialSecret)
	if err != nil {
		log.Fatalf("failed to encrypt credentials: %v", err)
	}
	_, err = db.Exec(
		`INSERT INTO tenant_channel_settings (tenant_id, channel, provider_name, credentials_encrypted, phone_number, is_connected)
         VALUES ($1, 'sms', 'twilio', $2, '+15550000002', TRUE)`,
		tenantID, encrypted)
	if err != nil {
		log.Fatalf("failed to seed channel settings: %v", err)
	}

	fmt.Println("Database seeding completed successfully!")
}
