package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// MediaType represents the kind of media attached to a template or message
type MediaType string

const (
	MediaTypeText     MediaType = "text"
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
	MediaTypeAudio    MediaType = "audio"
)

// String returns the string representation of the media type
func (m MediaType) String() string {
	return string(m)
}

// Valid checks if the media type is valid
func (m MediaType) Valid() bool {
	switch m {
	case MediaTypeText, MediaTypeImage, MediaTypeVideo, MediaTypeDocument, MediaTypeAudio:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for MediaType
func (m *MediaType) Scan(value any) error {
	if value == nil {
		*m = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*m = MediaType(v)
	case []byte:
		*m = MediaType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MediaType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MediaType
func (m MediaType) Value() (driver.Value, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid MediaType: %s", m)
	}
	return string(m), nil
}

// Template represents a reusable message template. Content may contain
// {{variable}} placeholders resolved per contact at campaign time.
type Template struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"type:varchar(255);not null" json:"name"`
	Content string `gorm:"type:text;not null" json:"content"`

	// Optional media attachment. MediaRef is a base64 payload or a URL the
	// transport resolves; MediaType text means no attachment.
	MediaType *MediaType `gorm:"type:varchar(20)" json:"media_type,omitempty"`
	MediaRef  *string    `gorm:"type:text" json:"media_ref,omitempty"`
	MediaMime *string    `gorm:"type:varchar(100)" json:"media_mime,omitempty"`
	FileName  *string    `gorm:"type:varchar(255)" json:"file_name,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Template) TableName() string {
	return "templates"
}

// HasMedia reports whether the template declares a media attachment. A
// template typed text but carrying a media reference still counts: the
// attachment wins over the inconsistent type.
func (t *Template) HasMedia() bool {
	return t.MediaType != nil && t.MediaRef != nil && *t.MediaRef != ""
}

// TemplateFilter represents filter criteria for templates
type TemplateFilter struct {
	ID            *uint      `json:"id,omitempty"`
	Name          *string    `json:"name,omitempty"`
	MediaType     *MediaType `json:"media_type,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
