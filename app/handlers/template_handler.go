package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/revendapro/zap-dispatcher/app/dto"
	businessflow "github.com/revendapro/zap-dispatcher/business_flow"
	"github.com/revendapro/zap-dispatcher/utils"
)

// TemplateHandlerInterface defines the contract for template handlers
type TemplateHandlerInterface interface {
	CreateTemplate(c fiber.Ctx) error
	UpdateTemplate(c fiber.Ctx) error
	GetTemplate(c fiber.Ctx) error
	ListTemplates(c fiber.Ctx) error
	DeleteTemplate(c fiber.Ctx) error
}

// TemplateHandler handles template-related HTTP requests
type TemplateHandler struct {
	templateFlow businessflow.TemplateFlow
	validator    *validator.Validate
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateFlow businessflow.TemplateFlow) *TemplateHandler {
	return &TemplateHandler{
		templateFlow: templateFlow,
		validator:    validator.New(),
	}
}

func (h *TemplateHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TemplateHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateTemplate handles creating a message template
func (h *TemplateHandler) CreateTemplate(c fiber.Ctx) error {
	var req dto.CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.templateFlow.CreateTemplate(h.createRequestContext(c, "/api/v1/templates"), &req, metadata)
	if err != nil {
		if businessflow.IsTemplateContentRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template content is required", "TEMPLATE_CONTENT_REQUIRED", nil)
		}
		if businessflow.IsTemplateMediaRefMissing(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template media requires a media reference", "TEMPLATE_MEDIA_REF_MISSING", nil)
		}
		log.Println("Template creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Template creation failed", "TEMPLATE_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Template created successfully", result)
}

// UpdateTemplate handles updating a message template
func (h *TemplateHandler) UpdateTemplate(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid template id", "INVALID_TEMPLATE_ID", nil)
	}

	var req dto.UpdateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}
	req.ID = id

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.templateFlow.UpdateTemplate(h.createRequestContext(c, "/api/v1/templates/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Template not found", "TEMPLATE_NOT_FOUND", nil)
		}
		if businessflow.IsTemplateContentRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template content is required", "TEMPLATE_CONTENT_REQUIRED", nil)
		}
		if businessflow.IsTemplateMediaRefMissing(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template media requires a media reference", "TEMPLATE_MEDIA_REF_MISSING", nil)
		}
		log.Println("Template update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Template update failed", "TEMPLATE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Template updated successfully", result)
}

// GetTemplate handles fetching one template
func (h *TemplateHandler) GetTemplate(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid template id", "INVALID_TEMPLATE_ID", nil)
	}

	result, err := h.templateFlow.GetTemplate(h.createRequestContext(c, "/api/v1/templates/:id"), id)
	if err != nil {
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Template not found", "TEMPLATE_NOT_FOUND", nil)
		}
		log.Println("Template lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get template", "TEMPLATE_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Template retrieved successfully", result)
}

// ListTemplates handles listing templates
func (h *TemplateHandler) ListTemplates(c fiber.Ctx) error {
	var req dto.ListTemplatesRequest
	req.Limit, req.Offset = parsePagination(c)
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.templateFlow.ListTemplates(h.createRequestContext(c, "/api/v1/templates"), &req)
	if err != nil {
		log.Println("Template listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list templates", "TEMPLATE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Templates retrieved successfully", result)
}

// DeleteTemplate handles removing a template
func (h *TemplateHandler) DeleteTemplate(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid template id", "INVALID_TEMPLATE_ID", nil)
	}

	if err := h.templateFlow.DeleteTemplate(h.createRequestContext(c, "/api/v1/templates/:id"), id); err != nil {
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Template not found", "TEMPLATE_NOT_FOUND", nil)
		}
		log.Println("Template delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Template delete failed", "TEMPLATE_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Template deleted successfully", nil)
}

func (h *TemplateHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
