package dto

import "time"

// CreateConnectionRequest represents the request to register a new connection
type CreateConnectionRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	PhoneNumber string `json:"phone_number" validate:"required,min=8,max=32"`
	DailyLimit  int    `json:"daily_limit" validate:"omitempty,min=0"`
}

// UpdateConnectionRequest represents the request to update a connection
type UpdateConnectionRequest struct {
	ID         uint    `json:"-"`
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	DailyLimit *int    `json:"daily_limit,omitempty" validate:"omitempty,min=0"`
}

// ConnectionResponse represents one connection in responses
type ConnectionResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	PhoneNumber string     `json:"phone_number"`
	Status      string     `json:"status"`
	QRCode      *string    `json:"qr_code,omitempty"`
	DailyLimit  int        `json:"daily_limit"`
	SentToday   int        `json:"sent_today"`
	QueueLen    int        `json:"queue_len"`
	LastMode    string     `json:"last_mode,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ListConnectionsRequest represents the request to list connections
type ListConnectionsRequest struct {
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=disconnected connecting connected"`
	Limit  int     `json:"limit" validate:"omitempty,min=1,max=200"`
	Offset int     `json:"offset" validate:"omitempty,min=0"`
}

// ListConnectionsResponse represents the response to list connections
type ListConnectionsResponse struct {
	Connections []ConnectionResponse `json:"connections"`
	Total       int64                `json:"total"`
}

// SendMessageRequest represents a single direct message send
type SendMessageRequest struct {
	ConnectionID uint   `json:"-"`
	To           string `json:"to" validate:"required,min=8,max=32"`
	Kind         string `json:"kind" validate:"omitempty,oneof=text image video document audio"`
	Body         string `json:"body" validate:"omitempty,max=65536"`
	MediaRef     string `json:"media_ref,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileName     string `json:"file_name,omitempty"`
}

// SendMessageResponse carries the tracking id assigned to the message
type SendMessageResponse struct {
	TrackingID string `json:"tracking_id"`
	Queued     bool   `json:"queued"`
}

// CheckNumberRequest represents the request to verify a phone number
type CheckNumberRequest struct {
	ConnectionID uint   `json:"-"`
	PhoneNumber  string `json:"phone_number" validate:"required,min=8,max=32"`
}

// CheckNumberResponse reports whether the number has a WhatsApp account
type CheckNumberResponse struct {
	PhoneNumber string `json:"phone_number"`
	Exists      bool   `json:"exists"`
}
