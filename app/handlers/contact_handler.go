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

// ContactHandlerInterface defines the contract for contact handlers
type ContactHandlerInterface interface {
	CreateContact(c fiber.Ctx) error
	UpdateContact(c fiber.Ctx) error
	GetContact(c fiber.Ctx) error
	ListContacts(c fiber.Ctx) error
	DeleteContact(c fiber.Ctx) error
}

// ContactHandler handles contact-related HTTP requests
type ContactHandler struct {
	contactFlow businessflow.ContactFlow
	validator   *validator.Validate
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactFlow businessflow.ContactFlow) *ContactHandler {
	return &ContactHandler{
		contactFlow: contactFlow,
		validator:   validator.New(),
	}
}

func (h *ContactHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ContactHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateContact handles creating a contact
func (h *ContactHandler) CreateContact(c fiber.Ctx) error {
	var req dto.CreateContactRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.contactFlow.CreateContact(h.createRequestContext(c, "/api/v1/contacts"), &req, metadata)
	if err != nil {
		if businessflow.IsContactAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Contact already exists", "CONTACT_ALREADY_EXISTS", nil)
		}
		log.Println("Contact creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact creation failed", "CONTACT_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Contact created successfully", result)
}

// UpdateContact handles updating a contact
func (h *ContactHandler) UpdateContact(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid contact id", "INVALID_CONTACT_ID", nil)
	}

	var req dto.UpdateContactRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}
	req.ID = id

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.contactFlow.UpdateContact(h.createRequestContext(c, "/api/v1/contacts/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", "CONTACT_NOT_FOUND", nil)
		}
		log.Println("Contact update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact update failed", "CONTACT_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contact updated successfully", result)
}

// GetContact handles fetching one contact
func (h *ContactHandler) GetContact(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid contact id", "INVALID_CONTACT_ID", nil)
	}

	result, err := h.contactFlow.GetContact(h.createRequestContext(c, "/api/v1/contacts/:id"), id)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", "CONTACT_NOT_FOUND", nil)
		}
		log.Println("Contact lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get contact", "CONTACT_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contact retrieved successfully", result)
}

// ListContacts handles listing contacts
func (h *ContactHandler) ListContacts(c fiber.Ctx) error {
	var req dto.ListContactsRequest
	req.Limit, req.Offset = parsePagination(c)
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.contactFlow.ListContacts(h.createRequestContext(c, "/api/v1/contacts"), &req)
	if err != nil {
		log.Println("Contact listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list contacts", "CONTACT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contacts retrieved successfully", result)
}

// DeleteContact handles removing a contact
func (h *ContactHandler) DeleteContact(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid contact id", "INVALID_CONTACT_ID", nil)
	}

	if err := h.contactFlow.DeleteContact(h.createRequestContext(c, "/api/v1/contacts/:id"), id); err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", "CONTACT_NOT_FOUND", nil)
		}
		log.Println("Contact delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact delete failed", "CONTACT_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contact deleted successfully", nil)
}

func (h *ContactHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
