package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// MessageStatus represents the delivery progress of an outbound message
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// String returns the string representation of the status
func (s MessageStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusPending, MessageStatusSent, MessageStatusDelivered,
		MessageStatusRead, MessageStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for MessageStatus
func (s *MessageStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = MessageStatus(v)
	case []byte:
		*s = MessageStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MessageStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MessageStatus
func (s MessageStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid MessageStatus: %s", s)
	}
	return string(s), nil
}

// Rank orders statuses along the delivery progression. Failed does not take
// part in the ordering; it can be reached from any state.
func (s MessageStatus) Rank() int {
	switch s {
	case MessageStatusPending:
		return 0
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	default:
		return -1
	}
}

// MapAckCode maps the network's numeric acknowledgment code onto the message
// status vocabulary. Codes 0..3 follow the delivery progression; -1 is a
// terminal failure.
func MapAckCode(code int) MessageStatus {
	switch code {
	case 0:
		return MessageStatusPending
	case 1:
		return MessageStatusSent
	case 2:
		return MessageStatusDelivered
	case 3:
		return MessageStatusRead
	default:
		return MessageStatusFailed
	}
}

// SentMessage represents one outbound message and its delivery progress.
// TrackingID is the transport-assigned message id (or the synthetic queued id
// while the connection is offline).
type SentMessage struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	ConnectionID uint          `gorm:"not null;index:idx_sent_messages_connection_id" json:"connection_id"`
	CampaignID   *uint         `gorm:"index:idx_sent_messages_campaign_id" json:"campaign_id,omitempty"`
	ContactID    *uint         `json:"contact_id,omitempty"`
	Recipient    string        `gorm:"type:varchar(64);not null" json:"recipient"`
	Kind         MediaType     `gorm:"type:varchar(20);not null;default:'text'" json:"kind"`
	Body         string        `gorm:"type:text" json:"body"`
	TrackingID   string        `gorm:"type:varchar(128);not null;uniqueIndex:uk_sent_messages_tracking_id" json:"tracking_id"`
	Status       MessageStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_sent_messages_status" json:"status"`
	FailReason   *string       `gorm:"type:text" json:"fail_reason,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (SentMessage) TableName() string {
	return "sent_messages"
}

// BeforeCreate is called before creating a new record
func (m *SentMessage) BeforeCreate() error {
	if m.Status == "" {
		m.Status = MessageStatusPending
	}
	if m.Kind == "" {
		m.Kind = MediaTypeText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// SentMessageFilter represents filter criteria for sent messages
type SentMessageFilter struct {
	ID            *uint          `json:"id,omitempty"`
	ConnectionID  *uint          `json:"connection_id,omitempty"`
	CampaignID    *uint          `json:"campaign_id,omitempty"`
	ContactID     *uint          `json:"contact_id,omitempty"`
	TrackingID    *string        `json:"tracking_id,omitempty"`
	Status        *MessageStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time     `json:"created_after,omitempty"`
	CreatedBefore *time.Time     `json:"created_before,omitempty"`
}
