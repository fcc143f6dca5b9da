package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ContactVariables holds per-contact template substitution values
type ContactVariables map[string]string

// Value implements the driver.Valuer interface for ContactVariables
func (v ContactVariables) Value() (driver.Value, error) {
	if v == nil {
		return json.Marshal(ContactVariables{})
	}
	return json.Marshal(v)
}

// Scan implements the sql.Scanner interface for ContactVariables
func (v *ContactVariables) Scan(value any) error {
	if value == nil {
		*v = ContactVariables{}
		return nil
	}

	var bytes []byte
	switch t := value.(type) {
	case []byte:
		bytes = t
	case string:
		bytes = []byte(t)
	default:
		return fmt.Errorf("cannot scan %T into ContactVariables", value)
	}

	return json.Unmarshal(bytes, v)
}

// Contact represents a campaign recipient. Group membership expansion happens
// before contacts reach the dispatcher; the engine only ever sees a flat,
// deduplicated list.
type Contact struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber string           `gorm:"type:varchar(32);not null;index:idx_contacts_phone" json:"phone_number"`
	Variables   ContactVariables `gorm:"type:jsonb" json:"variables,omitempty"`

	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Contact) TableName() string {
	return "contacts"
}

// TemplateVars builds the substitution map for this contact. The nome and
// telefone keys are always present; explicit variables may override them.
func (c *Contact) TemplateVars() map[string]string {
	vars := map[string]string{
		"nome":     c.Name,
		"telefone": c.PhoneNumber,
	}
	for k, v := range c.Variables {
		vars[k] = v
	}
	return vars
}

// ContactFilter represents filter criteria for contacts
type ContactFilter struct {
	ID            *uint      `json:"id,omitempty"`
	Name          *string    `json:"name,omitempty"`
	PhoneNumber   *string    `json:"phone_number,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
