// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/jkimani/textflow-backend/internal/model"
)

// RenderTemplate substitutes {placeholder} tokens with the given data.
// Empty values render as N/A rather than leaving the token in the output.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "N/A"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// ContactData is the placeholder set every template can reference, merged
// with any campaign-level variables (campaign variables win).
func ContactData(contact *model.Contact, variables map[string]string) map[string]string {
	data := map[string]string{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"phone":      contact.Phone,
		"email":      contact.Email,
	}
	for k, v := range variables {
		data[k] = v
	}
	return data
}
