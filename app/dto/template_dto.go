package dto

import "time"

// CreateTemplateRequest represents the request to create a message template
type CreateTemplateRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=255"`
	Content   string  `json:"content" validate:"required,min=1,max=65536"`
	MediaType *string `json:"media_type,omitempty" validate:"omitempty,oneof=text image video document audio"`
	MediaRef  *string `json:"media_ref,omitempty"`
	MediaMime *string `json:"media_mime,omitempty" validate:"omitempty,max=100"`
	FileName  *string `json:"file_name,omitempty" validate:"omitempty,max=255"`
}

// UpdateTemplateRequest represents the request to update a template
type UpdateTemplateRequest struct {
	ID        uint    `json:"-"`
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Content   *string `json:"content,omitempty" validate:"omitempty,min=1,max=65536"`
	MediaType *string `json:"media_type,omitempty" validate:"omitempty,oneof=text image video document audio"`
	MediaRef  *string `json:"media_ref,omitempty"`
	MediaMime *string `json:"media_mime,omitempty" validate:"omitempty,max=100"`
	FileName  *string `json:"file_name,omitempty" validate:"omitempty,max=255"`
}

// TemplateResponse represents one template in responses
type TemplateResponse struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Content   string     `json:"content"`
	MediaType *string    `json:"media_type,omitempty"`
	MediaRef  *string    `json:"media_ref,omitempty"`
	MediaMime *string    `json:"media_mime,omitempty"`
	FileName  *string    `json:"file_name,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ListTemplatesRequest represents the request to list templates
type ListTemplatesRequest struct {
	Limit  int `json:"limit" validate:"omitempty,min=1,max=200"`
	Offset int `json:"offset" validate:"omitempty,min=0"`
}

// ListTemplatesResponse represents the response to list templates
type ListTemplatesResponse struct {
	Templates []TemplateResponse `json:"templates"`
	Total     int64              `json:"total"`
}
