package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ConnectionStatus represents the lifecycle status of a WhatsApp connection
type ConnectionStatus string

const (
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusConnecting   ConnectionStatus = "connecting"
	ConnectionStatusConnected    ConnectionStatus = "connected"
)

// String returns the string representation of the status
func (s ConnectionStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionStatusDisconnected, ConnectionStatusConnecting, ConnectionStatusConnected:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ConnectionStatus
func (s *ConnectionStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ConnectionStatus(v)
	case []byte:
		*s = ConnectionStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ConnectionStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ConnectionStatus
func (s ConnectionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ConnectionStatus: %s", s)
	}
	return string(s), nil
}

// Connection represents one WhatsApp messaging account
type Connection struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber string           `gorm:"type:varchar(32);not null;uniqueIndex:uk_connections_phone" json:"phone_number"`
	Status      ConnectionStatus `gorm:"type:varchar(20);not null;default:'disconnected';index:idx_connections_status" json:"status"`
	QRCode      *string          `gorm:"type:text" json:"qr_code,omitempty"`

	// Daily send quota. A zero DailyLimit means unlimited.
	DailyLimit     int        `gorm:"not null;default:0" json:"daily_limit"`
	SentToday      int        `gorm:"not null;default:0" json:"sent_today"`
	LastQuotaReset *time.Time `json:"last_quota_reset,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Connection) TableName() string {
	return "connections"
}

// BeforeCreate is called before creating a new record
func (c *Connection) BeforeCreate() error {
	if c.Status == "" {
		c.Status = ConnectionStatusDisconnected
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Connection) BeforeUpdate() error {
	now := time.Now().UTC()
	c.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the status can transition to the given status.
// Valid transitions are disconnected -> connecting -> connected, and any
// non-disconnected state back to disconnected.
func (s ConnectionStatus) CanTransitionTo(newStatus ConnectionStatus) bool {
	switch s {
	case ConnectionStatusDisconnected:
		return newStatus == ConnectionStatusConnecting
	case ConnectionStatusConnecting:
		return newStatus == ConnectionStatusConnected || newStatus == ConnectionStatusDisconnected
	case ConnectionStatusConnected:
		return newStatus == ConnectionStatusDisconnected
	default:
		return false
	}
}

// CanTransitionTo checks if the connection can transition to the given status.
func (c *Connection) CanTransitionTo(newStatus ConnectionStatus) bool {
	return c.Status.CanTransitionTo(newStatus)
}

// ConnectionFilter represents filter criteria for connections
type ConnectionFilter struct {
	ID            *uint             `json:"id,omitempty"`
	Name          *string           `json:"name,omitempty"`
	PhoneNumber   *string           `json:"phone_number,omitempty"`
	Status        *ConnectionStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time        `json:"created_after,omitempty"`
	CreatedBefore *time.Time        `json:"created_before,omitempty"`
}
