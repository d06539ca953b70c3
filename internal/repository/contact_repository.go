package repository

import (
	"database/sql"

	"github.com/jkimani/textflow-backend/internal/model"
)

type ContactRepositoryInterface interface {
	GetByID(id int) (*model.Contact, error)
	ListByTenant(tenantID int) ([]model.Contact, error)
}

type ContactRepository struct {
	DB *sql.DB
}

// GetByID fetches a contact; a missing row is (nil, nil), not an error.
func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `
        SELECT id, tenant_id, COALESCE(phone, ''), COALESCE(email, ''), first_name, last_name
        FROM contacts
        WHERE id = $1
    `
	var c model.Contact
	err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.TenantID, &c.Phone, &c.Email, &c.FirstName, &c.LastName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) ListByTenant(tenantID int) ([]model.Contact, error) {
	query := `
        SELECT id, tenant_id, COALESCE(phone, ''), COALESCE(email, ''), first_name, last_name
        FROM contacts
        WHERE tenant_id = $1
        ORDER BY id
    `
	rows, err := r.DB.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Phone, &c.Email, &c.FirstName, &c.LastName); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
