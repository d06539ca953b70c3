// internal/model/contact.go
package model

type Contact struct {
	ID        int    `db:"id" json:"id"`
	TenantID  int    `db:"tenant_id" json:"tenant_id"`
	Phone     string `db:"phone" json:"phone"`
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}
