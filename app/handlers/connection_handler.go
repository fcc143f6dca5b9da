// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/revendapro/zap-dispatcher/app/dispatcher"
	"github.com/revendapro/zap-dispatcher/app/dto"
	businessflow "github.com/revendapro/zap-dispatcher/business_flow"
	"github.com/revendapro/zap-dispatcher/utils"
)

// ConnectionHandlerInterface defines the contract for connection handlers
type ConnectionHandlerInterface interface {
	CreateConnection(c fiber.Ctx) error
	ListConnections(c fiber.Ctx) error
	GetConnection(c fiber.Ctx) error
	UpdateConnection(c fiber.Ctx) error
	DeleteConnection(c fiber.Ctx) error
	Connect(c fiber.Ctx) error
	Disconnect(c fiber.Ctx) error
	SendMessage(c fiber.Ctx) error
	CheckNumber(c fiber.Ctx) error
	ListMessages(c fiber.Ctx) error
}

// ConnectionHandler handles connection-related HTTP requests
type ConnectionHandler struct {
	connectionFlow businessflow.ConnectionFlow
	validator      *validator.Validate
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(connectionFlow businessflow.ConnectionFlow) *ConnectionHandler {
	return &ConnectionHandler{
		connectionFlow: connectionFlow,
		validator:      validator.New(),
	}
}

func (h *ConnectionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ConnectionHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateConnection handles registering a new WhatsApp connection
func (h *ConnectionHandler) CreateConnection(c fiber.Ctx) error {
	var req dto.CreateConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.connectionFlow.CreateConnection(h.createRequestContext(c, "/api/v1/connections"), &req, metadata)
	if err != nil {
		if businessflow.IsConnectionAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Connection already exists", "CONNECTION_ALREADY_EXISTS", nil)
		}
		log.Println("Connection creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Connection creation failed", "CONNECTION_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Connection created successfully", result)
}

// ListConnections handles listing registered connections
func (h *ConnectionHandler) ListConnections(c fiber.Ctx) error {
	var req dto.ListConnectionsRequest
	req.Limit, req.Offset = parsePagination(c)
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.connectionFlow.ListConnections(h.createRequestContext(c, "/api/v1/connections"), &req)
	if err != nil {
		log.Println("Connection listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list connections", "CONNECTION_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Connections retrieved successfully", result)
}

// GetConnection handles fetching one connection with live state
func (h *ConnectionHandler) GetConnection(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid connection id", "INVALID_CONNECTION_ID", nil)
	}

	result, err := h.connectionFlow.GetConnection(h.createRequestContext(c, "/api/v1/connections/:id"), id)
	if err != nil {
		if businessflow.IsConnectionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Connection not found", "CONNECTION_NOT_FOUND", nil)
		}
		log.Println("Connection lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get connection", "CONNECTION_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Connection retrieved successfully", result)
}

// UpdateConnection handles changing connection settings
func (h *ConnectionHandler) UpdateConnection(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid connection id", "INVALID_CONNECTION_ID", nil)
	}

	var req dto.UpdateConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}
	req.ID = id

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.connectionFlow.UpdateConnection(h.createRequestContext(c, "/api/v1/connections/:id"), &req, metadata)
	if err != nil {
		if businessflow.IsConnectionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Connection not found", "CONNECTION_NOT_FOUND", nil)
		}
		log.Println("Connection update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Connection update failed", "CONNECTION_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Connection updated successfully", result)
}

// DeleteConnection handles removing a connection and its live handle
func (h *ConnectionHandler) DeleteConnection(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid connection id", "INVALID_CONNECTION_ID", nil)
	}

	if err := h.connectionFlow.DeleteConnection(h.createRequestContext(c, "/api/v1/connections/:id"), id); err != nil {
		if businessflow.IsConnectionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Connection not found", "CONNECTION_NOT_FOUND", nil)
		}
		log.Println("Connection delete failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Connection delete failed", "CONNECTION_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Connection deleted successfully", nil)
}

// Connect handles establishing the WhatsApp session
func (h *ConnectionHandler) Connect(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid connection id", "INVALID_CONNECTION_ID", nil)
	}

	// Pairing can involve QR scans; give it a generous window.
	result, err := h.connectionFlow.Connect(h.createRequestContextWithTimeout(c, "/api/v1/connections/:id/connect", 2*time.Minute), id)
	if err != nil {
		if businessflow.IsConnectionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Connection not found", "CONNECTION_NOT_FOUND", nil)
		}
		if errors.Is(err, dispatcher.ErrConnecting) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Connection attempt already in progress", "CONNECT_IN_PROGRESS", nil)
		}
		if errors.Is(err, dispatcher.ErrPairingTimeout) {
			return h.ErrorResponse(c, fiber.StatusGatewayTimeout, "Pairing timed out", "PAIRING_TIMEOUT", nil)
		}
		log.Println("Connect failed", err)
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Failed to establish connection", "CONNECT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Connection established", result)
}

// Disconnect handles tearing the WhatsApp session down
func (h *ConnectionHandler) Disconnect(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid connection id", "INVALID_CONNECTION_ID", nil)
	}

	result, err := h.connectionFlow.Disconnect(h.createRequestContext(c, "/api/v1/connections/:id/disconnect"), id)
	if err != nil {
		if businessflow.IsConnectionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Connection not found", "CONNECTION_NOT_FOUND", nil)
		}
		if businessflow.IsConnectionNotRegistered(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Connection has no live handle", "CONNECTION_NOT_REGISTERED", nil)
		}
		log.Println("Disconnect failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to disconnect", "DISCONNECT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Connection disconnected", result)
}

// SendMessage handles sending one ad-hoc message through a connection
func (h *ConnectionHandler) SendMessage(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid connection id", "INVALID_CONNECTION_ID", nil)
	}

	var req dto.SendMessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}
	req.ConnectionID = id

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.connectionFlow.SendMessage(h.createRequestContext(c, "/api/v1/connections/:id/messages"), &req, metadata)
	if err != nil {
		if businessflow.IsConnectionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Connection not found", "CONNECTION_NOT_FOUND", nil)
		}
		if businessflow.IsConnectionNotRegistered(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Connection has no live handle", "CONNECTION_NOT_REGISTERED", nil)
		}
		if errors.Is(err, dispatcher.ErrQuotaExceeded) {
			return h.ErrorResponse(c, fiber.StatusTooManyRequests, "Daily send quota exceeded", "QUOTA_EXCEEDED", nil)
		}
		if errors.Is(err, dispatcher.ErrEmptyMessage) || errors.Is(err, dispatcher.ErrEmptyRecipient) || errors.Is(err, dispatcher.ErrMissingMedia) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message", "INVALID_MESSAGE", err.Error())
		}
		log.Println("Message send failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Message send failed", "MESSAGE_SEND_FAILED", nil)
	}

	status := fiber.StatusOK
	if result.Queued {
		status = fiber.StatusAccepted
	}
	return h.SuccessResponse(c, status, "Message dispatched", result)
}

// CheckNumber handles verifying a phone number has a WhatsApp account
func (h *ConnectionHandler) CheckNumber(c fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid connection id", "INVALID_CONNECTION_ID", nil)
	}

	var req dto.CheckNumberRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}
	req.ConnectionID = id

	result, err := h.connectionFlow.CheckNumber(h.createRequestContext(c, "/api/v1/connections/:id/check-number"), &req)
	if err != nil {
		if businessflow.IsConnectionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Connection not found", "CONNECTION_NOT_FOUND", nil)
		}
		if businessflow.IsConnectionNotRegistered(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Connection has no live handle", "CONNECTION_NOT_REGISTERED", nil)
		}
		log.Println("Number check failed", err)
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Number check failed", "NUMBER_CHECK_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Number checked successfully", result)
}

// ListMessages handles listing sent messages
func (h *ConnectionHandler) ListMessages(c fiber.Ctx) error {
	var req dto.ListMessagesRequest
	req.Limit, req.Offset = parsePagination(c)
	if id, err := parseIDParam(c); err == nil {
		req.ConnectionID = &id
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	if v, err := strconv.Atoi(c.Query("campaign_id")); err == nil && v > 0 {
		campaignID := uint(v)
		req.CampaignID = &campaignID
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.connectionFlow.ListMessages(h.createRequestContext(c, "/api/v1/connections/:id/messages"), &req)
	if err != nil {
		log.Println("Message listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list messages", "MESSAGE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Messages retrieved successfully", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *ConnectionHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *ConnectionHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}

func parseIDParam(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func parsePagination(c fiber.Ctx) (limit, offset int) {
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func validationMessages(err error) []string {
	var messages []string
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			messages = append(messages, getValidationErrorMessage(fieldErr))
		}
	}
	return messages
}
