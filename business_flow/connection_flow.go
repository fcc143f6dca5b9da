// Package businessflow contains the core business logic and use cases for connection workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/revendapro/zap-dispatcher/app/dispatcher"
	"github.com/revendapro/zap-dispatcher/app/dto"
	"github.com/revendapro/zap-dispatcher/app/services"
	"github.com/revendapro/zap-dispatcher/config"
	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
	"github.com/revendapro/zap-dispatcher/utils"
)

// ConnectionFlow handles the connection lifecycle business logic
type ConnectionFlow interface {
	CreateConnection(ctx context.Context, req *dto.CreateConnectionRequest, metadata *ClientMetadata) (*dto.ConnectionResponse, error)
	UpdateConnection(ctx context.Context, req *dto.UpdateConnectionRequest, metadata *ClientMetadata) (*dto.ConnectionResponse, error)
	GetConnection(ctx context.Context, id uint) (*dto.ConnectionResponse, error)
	ListConnections(ctx context.Context, req *dto.ListConnectionsRequest) (*dto.ListConnectionsResponse, error)
	DeleteConnection(ctx context.Context, id uint) error
	Connect(ctx context.Context, id uint) (*dto.ConnectionResponse, error)
	Disconnect(ctx context.Context, id uint) (*dto.ConnectionResponse, error)
	SendMessage(ctx context.Context, req *dto.SendMessageRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error)
	CheckNumber(ctx context.Context, req *dto.CheckNumberRequest) (*dto.CheckNumberResponse, error)
	ListMessages(ctx context.Context, req *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error)
	RestoreHandles(ctx context.Context) error
}

// ConnectionFlowImpl implements the connection business flow
type ConnectionFlowImpl struct {
	connRepo repository.ConnectionRepository
	sentRepo repository.SentMessageRepository
	registry *dispatcher.Registry
	events   dispatcher.EventSink
	cache    services.CacheService
	waCfg    config.WhatsAppConfig
	dispCfg  config.DispatcherConfig
	db       *gorm.DB
}

// NewConnectionFlow creates a new connection flow instance
func NewConnectionFlow(
	connRepo repository.ConnectionRepository,
	sentRepo repository.SentMessageRepository,
	registry *dispatcher.Registry,
	events dispatcher.EventSink,
	cache services.CacheService,
	waCfg config.WhatsAppConfig,
	dispCfg config.DispatcherConfig,
	db *gorm.DB,
) ConnectionFlow {
	if cache == nil {
		cache = services.NewNoopCacheService()
	}
	return &ConnectionFlowImpl{
		connRepo: connRepo,
		sentRepo: sentRepo,
		registry: registry,
		events:   events,
		cache:    cache,
		waCfg:    waCfg,
		dispCfg:  dispCfg,
		db:       db,
	}
}

// CreateConnection registers a new connection and builds its live handle.
func (f *ConnectionFlowImpl) CreateConnection(ctx context.Context, req *dto.CreateConnectionRequest, metadata *ClientMetadata) (*dto.ConnectionResponse, error) {
	phone := utils.CanonicalNumber(req.PhoneNumber, f.waCfg.DefaultCountryCode)
	existing, err := f.connRepo.ByPhoneNumber(ctx, phone)
	if err != nil {
		return nil, NewBusinessError("CONNECTION_LOOKUP_FAILED", "Failed to lookup connection", err)
	}
	if existing != nil {
		return nil, NewBusinessError("CONNECTION_ALREADY_EXISTS", "Connection already exists", ErrConnectionAlreadyExists)
	}

	connection := &models.Connection{
		Name:        req.Name,
		PhoneNumber: phone,
		Status:      models.ConnectionStatusDisconnected,
		DailyLimit:  req.DailyLimit,
	}
	if err := f.connRepo.Save(ctx, connection); err != nil {
		return nil, NewBusinessError("CONNECTION_CREATION_FAILED", "Connection creation failed", err)
	}

	f.buildHandle(connection)

	resp := f.toDTO(ctx, connection)
	return &resp, nil
}

// UpdateConnection changes mutable connection settings.
func (f *ConnectionFlowImpl) UpdateConnection(ctx context.Context, req *dto.UpdateConnectionRequest, metadata *ClientMetadata) (*dto.ConnectionResponse, error) {
	connection, err := f.loadConnection(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		connection.Name = *req.Name
	}
	if req.DailyLimit != nil {
		connection.DailyLimit = *req.DailyLimit
		if handle := f.registry.Get(connection.ID); handle != nil {
			handle.Gateway().SetDailyLimit(*req.DailyLimit)
		}
	}
	if err := f.connRepo.Update(ctx, connection); err != nil {
		return nil, NewBusinessError("CONNECTION_UPDATE_FAILED", "Connection update failed", err)
	}

	resp := f.toDTO(ctx, connection)
	return &resp, nil
}

// GetConnection returns one connection enriched with live handle state.
func (f *ConnectionFlowImpl) GetConnection(ctx context.Context, id uint) (*dto.ConnectionResponse, error) {
	connection, err := f.loadConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := f.toDTO(ctx, connection)
	return &resp, nil
}

// ListConnections returns connections matching the filter.
func (f *ConnectionFlowImpl) ListConnections(ctx context.Context, req *dto.ListConnectionsRequest) (*dto.ListConnectionsResponse, error) {
	filter := models.ConnectionFilter{}
	if req.Status != nil {
		status := models.ConnectionStatus(*req.Status)
		filter.Status = &status
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	connections, err := f.connRepo.ByFilter(ctx, filter, "id ASC", limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("CONNECTION_LIST_FAILED", "Failed to list connections", err)
	}
	total, err := f.connRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CONNECTION_COUNT_FAILED", "Failed to count connections", err)
	}

	resp := &dto.ListConnectionsResponse{
		Connections: make([]dto.ConnectionResponse, 0, len(connections)),
		Total:       total,
	}
	for i := range connections {
		resp.Connections = append(resp.Connections, f.toDTO(ctx, &connections[i]))
	}
	return resp, nil
}

// DeleteConnection removes the stored connection and closes its handle.
func (f *ConnectionFlowImpl) DeleteConnection(ctx context.Context, id uint) error {
	connection, err := f.loadConnection(ctx, id)
	if err != nil {
		return err
	}

	f.registry.Remove(connection.ID)

	if err := f.db.WithContext(ctx).Delete(connection).Error; err != nil {
		return NewBusinessError("CONNECTION_DELETE_FAILED", "Connection delete failed", err)
	}
	return nil
}

// Connect establishes the session, pairing if needed.
func (f *ConnectionFlowImpl) Connect(ctx context.Context, id uint) (*dto.ConnectionResponse, error) {
	connection, err := f.loadConnection(ctx, id)
	if err != nil {
		return nil, err
	}

	handle := f.registry.Get(connection.ID)
	if handle == nil {
		handle = f.buildHandle(connection)
	}

	if err := handle.Connect(ctx); err != nil {
		return nil, NewBusinessError("CONNECTION_CONNECT_FAILED", "Failed to establish connection", err)
	}

	resp := f.toDTO(ctx, connection)
	resp.Status = handle.Status().String()
	return &resp, nil
}

// Disconnect tears the session down.
func (f *ConnectionFlowImpl) Disconnect(ctx context.Context, id uint) (*dto.ConnectionResponse, error) {
	connection, err := f.loadConnection(ctx, id)
	if err != nil {
		return nil, err
	}

	handle := f.registry.Get(connection.ID)
	if handle == nil {
		return nil, NewBusinessError("CONNECTION_NOT_REGISTERED", "Connection has no live handle", ErrConnectionNotRegistered)
	}
	if err := handle.Disconnect(ctx); err != nil {
		return nil, NewBusinessError("CONNECTION_DISCONNECT_FAILED", "Failed to disconnect", err)
	}

	resp := f.toDTO(ctx, connection)
	resp.Status = handle.Status().String()
	return &resp, nil
}

// SendMessage queues or sends one ad-hoc message through the connection.
func (f *ConnectionFlowImpl) SendMessage(ctx context.Context, req *dto.SendMessageRequest, metadata *ClientMetadata) (*dto.SendMessageResponse, error) {
	connection, err := f.loadConnection(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}

	handle := f.registry.Get(connection.ID)
	if handle == nil {
		return nil, NewBusinessError("CONNECTION_NOT_REGISTERED", "Connection has no live handle", ErrConnectionNotRegistered)
	}

	kind := models.MediaTypeText
	if req.Kind != "" {
		kind = models.MediaType(req.Kind)
	}
	msg := dispatcher.OutboundMessage{
		To:       req.To,
		Kind:     kind,
		Body:     req.Body,
		MediaRef: req.MediaRef,
		MimeType: req.MimeType,
		FileName: req.FileName,
	}

	trackingID, sendErr := handle.Send(ctx, msg)
	if sendErr != nil && trackingID == "" {
		return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Message send failed", sendErr)
	}
	// A send error with a tracking id means the transport rejected the message
	// but the handle retained it for retry; report it as queued.

	queued := strings.HasPrefix(trackingID, dispatcher.QueuedIDPrefix)
	record := &models.SentMessage{
		ConnectionID: connection.ID,
		Recipient:    utils.CanonicalNumber(req.To, f.waCfg.DefaultCountryCode),
		Kind:         kind,
		Body:         req.Body,
		TrackingID:   trackingID,
		Status:       models.MessageStatusPending,
	}
	if !queued {
		record.Status = models.MessageStatusSent
	}
	if err := f.sentRepo.Save(ctx, record); err != nil {
		return nil, NewBusinessError("MESSAGE_PERSIST_FAILED", "Failed to persist message", err)
	}

	return &dto.SendMessageResponse{TrackingID: trackingID, Queued: queued}, nil
}

// CheckNumber verifies the number has a WhatsApp account.
func (f *ConnectionFlowImpl) CheckNumber(ctx context.Context, req *dto.CheckNumberRequest) (*dto.CheckNumberResponse, error) {
	connection, err := f.loadConnection(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}

	handle := f.registry.Get(connection.ID)
	if handle == nil {
		return nil, NewBusinessError("CONNECTION_NOT_REGISTERED", "Connection has no live handle", ErrConnectionNotRegistered)
	}

	phone := utils.CanonicalNumber(req.PhoneNumber, f.waCfg.DefaultCountryCode)
	if exists, found, err := f.cache.NumberStatus(ctx, phone); err == nil && found {
		return &dto.CheckNumberResponse{PhoneNumber: phone, Exists: exists}, nil
	}

	exists, err := handle.Gateway().CheckNumber(ctx, req.PhoneNumber)
	if err != nil {
		return nil, NewBusinessError("NUMBER_CHECK_FAILED", "Number check failed", err)
	}
	_ = f.cache.StoreNumberStatus(ctx, phone, exists)
	return &dto.CheckNumberResponse{PhoneNumber: phone, Exists: exists}, nil
}

// ListMessages returns sent messages matching the filter.
func (f *ConnectionFlowImpl) ListMessages(ctx context.Context, req *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error) {
	filter := models.SentMessageFilter{
		ConnectionID: req.ConnectionID,
		CampaignID:   req.CampaignID,
	}
	if req.Status != nil {
		status := models.MessageStatus(*req.Status)
		filter.Status = &status
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	messages, err := f.sentRepo.ByFilter(ctx, filter, "id DESC", limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
	}
	total, err := f.sentRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_COUNT_FAILED", "Failed to count messages", err)
	}

	resp := &dto.ListMessagesResponse{
		Messages: make([]dto.MessageResponse, 0, len(messages)),
		Total:    total,
	}
	for i := range messages {
		resp.Messages = append(resp.Messages, ToMessageDTO(&messages[i]))
	}
	return resp, nil
}

// RestoreHandles rebuilds handles for every stored connection at startup.
func (f *ConnectionFlowImpl) RestoreHandles(ctx context.Context) error {
	connections, err := f.connRepo.ByFilter(ctx, models.ConnectionFilter{}, "id ASC", 0, 0)
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}
	for i := range connections {
		f.buildHandle(&connections[i])
	}
	return nil
}

func (f *ConnectionFlowImpl) loadConnection(ctx context.Context, id uint) (*models.Connection, error) {
	connection, err := f.connRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CONNECTION_LOOKUP_FAILED", "Failed to lookup connection", err)
	}
	if connection == nil {
		return nil, NewBusinessError("CONNECTION_NOT_FOUND", "Connection not found", ErrConnectionNotFound)
	}
	return connection, nil
}

// buildHandle wires the transports, gateway and handle for one connection and
// registers the handle.
func (f *ConnectionFlowImpl) buildHandle(connection *models.Connection) *dispatcher.Handle {
	var handle *dispatcher.Handle
	onState := func(connected bool) {
		if handle != nil {
			handle.HandleTransportState(connected)
		}
	}

	mode := dispatcher.TransportMode(f.waCfg.Mode)
	if !mode.Valid() {
		mode = dispatcher.TransportModeAuto
	}

	var direct, server dispatcher.Transport
	if mode != dispatcher.TransportModeServer {
		direct = dispatcher.NewDirectTransport(dispatcher.DirectTransportConfig{
			ConnectionID: connection.ID,
			PhoneNumber:  connection.PhoneNumber,
			CountryCode:  f.waCfg.DefaultCountryCode,
			StoreDir:     f.waCfg.StoreDir,
			Events:       f.events,
			OnState:      onState,
		})
	}
	if mode != dispatcher.TransportModeDirect {
		server = dispatcher.NewServerTransport(dispatcher.ServerTransportConfig{
			ConnectionID:  connection.ID,
			SessionName:   fmt.Sprintf("conn-%d", connection.ID),
			PhoneNumber:   connection.PhoneNumber,
			CountryCode:   f.waCfg.DefaultCountryCode,
			NetworkSuffix: f.waCfg.NetworkSuffix,
			BaseURL:       f.waCfg.ServerURL,
			Token:         f.waCfg.ServerToken,
			Timeout:       f.waCfg.ServerTimeout,
			PollAttempts:  f.waCfg.PairPollAttempts,
			PollInterval:  f.waCfg.PairPollInterval,
			Events:        f.events,
			OnState:       onState,
		})
	}

	sentToday := 0
	if connection.LastQuotaReset != nil && utils.SameCalendarDay(*connection.LastQuotaReset, utils.UTCNow()) {
		sentToday = connection.SentToday
	}
	gateway := dispatcher.NewGateway(connection.ID, mode, direct, server, connection.DailyLimit, sentToday)

	handle = dispatcher.NewHandle(
		connection.ID,
		connection.Name,
		connection.PhoneNumber,
		gateway,
		dispatcher.ReconnectPolicy{
			BaseDelay:   f.dispCfg.ReconnectBaseDelay,
			MaxDelay:    f.dispCfg.ReconnectMaxDelay,
			MaxAttempts: f.dispCfg.ReconnectMaxAttempts,
		},
		f.dispCfg.QueueDrainInterval,
		f.events,
	)
	f.registry.Register(handle)
	return handle
}

func (f *ConnectionFlowImpl) toDTO(ctx context.Context, connection *models.Connection) dto.ConnectionResponse {
	resp := ToConnectionDTO(connection)
	if handle := f.registry.Get(connection.ID); handle != nil {
		resp.Status = handle.Status().String()
		resp.QueueLen = handle.QueueLen()
		resp.LastMode = string(handle.Gateway().LastMode())
		resp.SentToday = handle.Gateway().SentToday()
	}
	if resp.Status != models.ConnectionStatusConnected.String() {
		if qr, err := f.cache.QRCode(ctx, connection.ID); err == nil && qr != "" {
			resp.QRCode = &qr
		}
	}
	return resp
}
