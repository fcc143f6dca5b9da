package dto

import "time"

// CreateContactRequest represents the request to create a contact
type CreateContactRequest struct {
	Name        string            `json:"name" validate:"required,min=1,max=255"`
	PhoneNumber string            `json:"phone_number" validate:"required,min=8,max=32"`
	Variables   map[string]string `json:"variables,omitempty"`
}

// UpdateContactRequest represents the request to update a contact
type UpdateContactRequest struct {
	ID          uint              `json:"-"`
	Name        *string           `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	PhoneNumber *string           `json:"phone_number,omitempty" validate:"omitempty,min=8,max=32"`
	Variables   map[string]string `json:"variables,omitempty"`
}

// ContactResponse represents one contact in responses
type ContactResponse struct {
	ID            uint              `json:"id"`
	Name          string            `json:"name"`
	PhoneNumber   string            `json:"phone_number"`
	Variables     map[string]string `json:"variables,omitempty"`
	LastMessageAt *time.Time        `json:"last_message_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ListContactsRequest represents the request to list contacts
type ListContactsRequest struct {
	Limit  int `json:"limit" validate:"omitempty,min=1,max=500"`
	Offset int `json:"offset" validate:"omitempty,min=0"`
}

// ListContactsResponse represents the response to list contacts
type ListContactsResponse struct {
	Contacts []ContactResponse `json:"contacts"`
	Total    int64             `json:"total"`
}

// MessageResponse represents one sent message in responses
type MessageResponse struct {
	ID           uint       `json:"id"`
	ConnectionID uint       `json:"connection_id"`
	CampaignID   *uint      `json:"campaign_id,omitempty"`
	Recipient    string     `json:"recipient"`
	Kind         string     `json:"kind"`
	Body         string     `json:"body"`
	TrackingID   string     `json:"tracking_id"`
	Status       string     `json:"status"`
	FailReason   *string    `json:"fail_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// ListMessagesRequest represents the request to list sent messages
type ListMessagesRequest struct {
	ConnectionID *uint   `json:"connection_id,omitempty"`
	CampaignID   *uint   `json:"campaign_id,omitempty"`
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=pending sent delivered read failed"`
	Limit        int     `json:"limit" validate:"omitempty,min=1,max=500"`
	Offset       int     `json:"offset" validate:"omitempty,min=0"`
}

// ListMessagesResponse represents the response to list sent messages
type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
}
