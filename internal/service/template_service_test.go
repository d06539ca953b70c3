package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jkimani/textflow-backend/internal/model"
	"github.com/jkimani/textflow-backend/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	data := map[string]string{"first_name": "Alice", "order_id": "A100"}
	got := service.RenderTemplate("Hi {first_name}, order {order_id} shipped!", data)
	assert.Equal(t, "Hi Alice, order A100 shipped!", got)
}

func TestRenderTemplateEmptyValueBecomesNA(t *testing.T) {
	got := service.RenderTemplate("Hi {first_name}!", map[string]string{"first_name": ""})
	assert.Equal(t, "Hi N/A!", got)
}

func TestRenderTemplateLeavesUnknownTokens(t *testing.T) {
	got := service.RenderTemplate("Hi {first_name}, ref {unknown}", map[string]string{"first_name": "Bob"})
	assert.Equal(t, "Hi Bob, ref {unknown}", got)
}

func TestContactDataCampaignVariablesWin(t *testing.T) {
	contact := &model.Contact{FirstName: "Alice", LastName: "Smith", Phone: "+1555", Email: "a@x"}
	data := service.ContactData(contact, map[string]string{"first_name": "Override", "order_id": "A100"})

	assert.Equal(t, "Override", data["first_name"])
	assert.Equal(t, "Smith", data["last_name"])
	assert.Equal(t, "A100", data["order_id"])
}
