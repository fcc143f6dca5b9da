// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/revendapro/zap-dispatcher/app/dto"
	"github.com/revendapro/zap-dispatcher/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for logging and tracing
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToConnectionDTO converts a connection model to its response DTO
func ToConnectionDTO(connection *models.Connection) dto.ConnectionResponse {
	return dto.ConnectionResponse{
		ID:          connection.ID,
		Name:        connection.Name,
		PhoneNumber: connection.PhoneNumber,
		Status:      connection.Status.String(),
		QRCode:      connection.QRCode,
		DailyLimit:  connection.DailyLimit,
		SentToday:   connection.SentToday,
		CreatedAt:   connection.CreatedAt,
		UpdatedAt:   connection.UpdatedAt,
	}
}

// ToTemplateDTO converts a template model to its response DTO
func ToTemplateDTO(template *models.Template) dto.TemplateResponse {
	resp := dto.TemplateResponse{
		ID:        template.ID,
		Name:      template.Name,
		Content:   template.Content,
		MediaRef:  template.MediaRef,
		MediaMime: template.MediaMime,
		FileName:  template.FileName,
		CreatedAt: template.CreatedAt,
		UpdatedAt: template.UpdatedAt,
	}
	if template.MediaType != nil {
		mediaType := template.MediaType.String()
		resp.MediaType = &mediaType
	}
	return resp
}

// ToContactDTO converts a contact model to its response DTO
func ToContactDTO(contact *models.Contact) dto.ContactResponse {
	return dto.ContactResponse{
		ID:            contact.ID,
		Name:          contact.Name,
		PhoneNumber:   contact.PhoneNumber,
		Variables:     contact.Variables,
		LastMessageAt: contact.LastMessageAt,
		CreatedAt:     contact.CreatedAt,
	}
}

// ToCampaignDTO converts a campaign model to its response DTO
func ToCampaignDTO(campaign *models.Campaign) dto.CampaignResponse {
	return dto.CampaignResponse{
		ID:                 campaign.ID,
		Name:               campaign.Name,
		TemplateID:         campaign.TemplateID,
		ConnectionID:       campaign.ConnectionID,
		Status:             campaign.Status.String(),
		MinIntervalSeconds: campaign.MinIntervalSeconds,
		MaxIntervalSeconds: campaign.MaxIntervalSeconds,
		TotalMessages:      campaign.TotalMessages,
		SentMessages:       campaign.SentMessages,
		DeliveredMessages:  campaign.DeliveredMessages,
		ReadMessages:       campaign.ReadMessages,
		FailedMessages:     campaign.FailedMessages,
		ScheduledAt:        campaign.ScheduledAt,
		StartedAt:          campaign.StartedAt,
		CompletedAt:        campaign.CompletedAt,
		CreatedAt:          campaign.CreatedAt,
	}
}

// ToMessageDTO converts a sent message model to its response DTO
func ToMessageDTO(message *models.SentMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:           message.ID,
		ConnectionID: message.ConnectionID,
		CampaignID:   message.CampaignID,
		Recipient:    message.Recipient,
		Kind:         message.Kind.String(),
		Body:         message.Body,
		TrackingID:   message.TrackingID,
		Status:       message.Status.String(),
		FailReason:   message.FailReason,
		CreatedAt:    message.CreatedAt,
		UpdatedAt:    message.UpdatedAt,
	}
}
