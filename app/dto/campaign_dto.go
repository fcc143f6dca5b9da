package dto

import "time"

// CreateCampaignRequest represents the request to create a campaign
type CreateCampaignRequest struct {
	Name               string     `json:"name" validate:"required,min=1,max=255"`
	TemplateID         uint       `json:"template_id" validate:"required"`
	ConnectionID       uint       `json:"connection_id" validate:"required"`
	ContactIDs         []int64    `json:"contact_ids" validate:"required,min=1,dive,min=1"`
	MinIntervalSeconds int        `json:"min_interval_seconds" validate:"omitempty,min=0"`
	MaxIntervalSeconds int        `json:"max_interval_seconds" validate:"omitempty,min=0"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
}

// CreateCampaignResponse represents the response to create a campaign
type CreateCampaignResponse struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

// CampaignResponse represents one campaign in responses
type CampaignResponse struct {
	ID                 uint       `json:"id"`
	Name               string     `json:"name"`
	TemplateID         uint       `json:"template_id"`
	ConnectionID       uint       `json:"connection_id"`
	Status             string     `json:"status"`
	MinIntervalSeconds int        `json:"min_interval_seconds"`
	MaxIntervalSeconds int        `json:"max_interval_seconds"`
	TotalMessages      int        `json:"total_messages"`
	SentMessages       int        `json:"sent_messages"`
	DeliveredMessages  int        `json:"delivered_messages"`
	ReadMessages       int        `json:"read_messages"`
	FailedMessages     int        `json:"failed_messages"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ListCampaignsRequest represents the request to list campaigns
type ListCampaignsRequest struct {
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled in_progress completed canceled"`
	ConnectionID *uint   `json:"connection_id,omitempty"`
	Limit        int     `json:"limit" validate:"omitempty,min=1,max=200"`
	Offset       int     `json:"offset" validate:"omitempty,min=0"`
}

// ListCampaignsResponse represents the response to list campaigns
type ListCampaignsResponse struct {
	Campaigns []CampaignResponse `json:"campaigns"`
	Total     int64              `json:"total"`
}
