package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/revendapro/zap-dispatcher/app/dto"
	businessflow "github.com/revendapro/zap-dispatcher/business_flow"
	"github.com/revendapro/zap-dispatcher/utils"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	CancelCampaign(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCampaign handles the campaign creation process
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignContactsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign needs at least one contact", "CAMPAIGN_CONTACTS_REQUIRED", nil)
		}
		if businessflow.IsCampaignIntervalInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign pacing interval is invalid", "CAMPAIGN_INTERVAL_INVALID", nil)
		}
		if businessflow.IsScheduleTimeInPast(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Schedule time is in the past", "CAMPAIGN_SCHEDULE_IN_PAST", nil)
		}
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Template not found", "TEMPLATE_NOT_FOUND", nil)
		}
		if businessflow.IsConnectionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Connection not found", "CONNECTION_NOT_FOUND", nil)
		}
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "One or more contacts do not exist", "CONTACT_NOT_FOUND", nil)
		}
		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// GetCampaign handles fetching one campaign with its counters
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign id", "INVALID_CAMPAIGN_ID", nil)
	}

	result, err := h.campaignFlow.GetCampaign(h.createRequestContext(c, "/api/v1/campaigns/:id"), id)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		log.Println("Campaign lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get campaign", "CAMPAIGN_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListCampaigns handles listing campaigns
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	var req dto.ListCampaignsRequest
	req.Limit, req.Offset = parsePagination(c)
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	if v, err := strconv.Atoi(c.Query("connection_id")); err == nil && v > 0 {
		connectionID := uint(v)
		req.ConnectionID = &connectionID
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.campaignFlow.ListCampaigns(h.createRequestContext(c, "/api/v1/campaigns"), &req)
	if err != nil {
		log.Println("Campaign listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "CAMPAIGN_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// CancelCampaign handles stopping a pending or running campaign
func (h *CampaignHandler) CancelCampaign(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign id", "INVALID_CAMPAIGN_ID", nil)
	}

	result, err := h.campaignFlow.CancelCampaign(h.createRequestContext(c, "/api/v1/campaigns/:id/cancel"), id)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignNotCancelable(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign cannot be canceled", "CAMPAIGN_NOT_CANCELABLE", nil)
		}
		log.Println("Campaign cancel failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign cancel failed", "CAMPAIGN_CANCEL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign canceled", result)
}

func (h *CampaignHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
