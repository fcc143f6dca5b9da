package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CampaignStatus represents the status of a marketing campaign
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusScheduled  CampaignStatus = "scheduled"
	CampaignStatusInProgress CampaignStatus = "in_progress"
	CampaignStatusCompleted  CampaignStatus = "completed"
	CampaignStatusCanceled   CampaignStatus = "canceled"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusInProgress,
		CampaignStatusCompleted, CampaignStatusCanceled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// Campaign represents a batch send of one template to many contacts through
// one connection, with randomized pacing between sends.
type Campaign struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	TemplateID   uint           `gorm:"not null;index:idx_campaigns_template_id" json:"template_id"`
	ConnectionID uint           `gorm:"not null;index:idx_campaigns_connection_id" json:"connection_id"`
	Status       CampaignStatus `gorm:"type:varchar(20);not null;default:'draft';index:idx_campaigns_status" json:"status"`

	// Pacing bounds in seconds. Zero values fall back to the configured
	// defaults at run time.
	MinIntervalSeconds int `gorm:"not null;default:0" json:"min_interval_seconds"`
	MaxIntervalSeconds int `gorm:"not null;default:0" json:"max_interval_seconds"`

	// Resolved recipient IDs, persisted when the campaign is started.
	ContactIDs pq.Int64Array `gorm:"type:bigint[]" json:"contact_ids,omitempty"`

	// Aggregate delivery counters, driven by message status events.
	TotalMessages     int `gorm:"not null;default:0" json:"total_messages"`
	SentMessages      int `gorm:"not null;default:0" json:"sent_messages"`
	DeliveredMessages int `gorm:"not null;default:0" json:"delivered_messages"`
	ReadMessages      int `gorm:"not null;default:0" json:"read_messages"`
	FailedMessages    int `gorm:"not null;default:0" json:"failed_messages"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	// Relations
	Template   *Template   `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`
	Connection *Connection `gorm:"foreignKey:ConnectionID;references:ID" json:"connection,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate() error {
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate() error {
	now := time.Now().UTC()
	c.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled || newStatus == CampaignStatusInProgress ||
			newStatus == CampaignStatusCanceled
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusInProgress || newStatus == CampaignStatusCanceled
	case CampaignStatusInProgress:
		return newStatus == CampaignStatusCompleted || newStatus == CampaignStatusCanceled
	default:
		return false
	}
}

// CountersConsistent verifies the aggregate counter invariants:
// sent <= total, delivered <= sent, read <= delivered.
func (c *Campaign) CountersConsistent() bool {
	return c.SentMessages <= c.TotalMessages &&
		c.DeliveredMessages <= c.SentMessages &&
		c.ReadMessages <= c.DeliveredMessages
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID              *uint           `json:"id,omitempty"`
	Name            *string         `json:"name,omitempty"`
	ConnectionID    *uint           `json:"connection_id,omitempty"`
	TemplateID      *uint           `json:"template_id,omitempty"`
	Status          *CampaignStatus `json:"status,omitempty"`
	ScheduledBefore *time.Time      `json:"scheduled_before,omitempty"`
	CreatedAfter    *time.Time      `json:"created_after,omitempty"`
	CreatedBefore   *time.Time      `json:"created_before,omitempty"`
}
