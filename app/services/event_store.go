package services

import (
	"context"
	"log"
	"time"

	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
)

// EventStore persists dispatcher events: connection status, pairing results
// and message delivery progress. It also keeps QR codes available for the API
// through the cache.
type EventStore struct {
	connRepo     repository.ConnectionRepository
	sentRepo     repository.SentMessageRepository
	campaignRepo repository.CampaignRepository
	contactRepo  repository.ContactRepository
	cache        CacheService
	logger       *log.Logger
	timeout      time.Duration
}

// NewEventStore creates a new event store instance
func NewEventStore(
	connRepo repository.ConnectionRepository,
	sentRepo repository.SentMessageRepository,
	campaignRepo repository.CampaignRepository,
	contactRepo repository.ContactRepository,
	cache CacheService,
	logger *log.Logger,
) *EventStore {
	if cache == nil {
		cache = NewNoopCacheService()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EventStore{
		connRepo:     connRepo,
		sentRepo:     sentRepo,
		campaignRepo: campaignRepo,
		contactRepo:  contactRepo,
		cache:        cache,
		logger:       logger,
		timeout:      5 * time.Second,
	}
}

func (s *EventStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *EventStore) OnStatusChange(connectionID uint, from, to models.ConnectionStatus) {
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.connRepo.UpdateStatus(ctx, connectionID, to); err != nil {
		s.logger.Printf("event store: persist status conn=%d %s->%s: %v", connectionID, from, to, err)
	}
	if to == models.ConnectionStatusConnected {
		if err := s.cache.ClearQRCode(ctx, connectionID); err != nil {
			s.logger.Printf("event store: clear qr conn=%d: %v", connectionID, err)
		}
	}
}

func (s *EventStore) OnQRCode(connectionID uint, dataURL string) {
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.cache.StoreQRCode(ctx, connectionID, dataURL); err != nil {
		s.logger.Printf("event store: store qr conn=%d: %v", connectionID, err)
	}
}

func (s *EventStore) OnPaired(connectionID uint, phoneNumber string) {
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.connRepo.UpdatePhoneNumber(ctx, connectionID, phoneNumber); err != nil {
		s.logger.Printf("event store: persist paired number conn=%d: %v", connectionID, err)
	}
	if err := s.cache.ClearQRCode(ctx, connectionID); err != nil {
		s.logger.Printf("event store: clear qr conn=%d: %v", connectionID, err)
	}
}

func (s *EventStore) OnMessageQueued(connectionID uint, trackingID, recipient string) {
	s.logger.Printf("event store: queued conn=%d tracking=%s to=%s", connectionID, trackingID, recipient)
}

func (s *EventStore) OnMessageSent(connectionID uint, trackingID, providerID string) {
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.sentRepo.LinkProviderID(ctx, trackingID, providerID); err != nil {
		s.logger.Printf("event store: link provider id conn=%d tracking=%s: %v", connectionID, trackingID, err)
	}
}

func (s *EventStore) OnMessageStatus(connectionID uint, trackingID string, status models.MessageStatus, reason string) {
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.sentRepo.UpdateStatus(ctx, trackingID, status, reason); err != nil {
		s.logger.Printf("event store: update status conn=%d tracking=%s status=%s: %v", connectionID, trackingID, status, err)
	}

	if status == models.MessageStatusSent {
		if err := s.connRepo.RecordSent(ctx, connectionID, time.Now().UTC()); err != nil {
			s.logger.Printf("event store: record sent conn=%d: %v", connectionID, err)
		}
		return
	}

	column := ""
	switch status {
	case models.MessageStatusDelivered:
		column = "delivered_messages"
	case models.MessageStatusRead:
		column = "read_messages"
	}
	if column == "" {
		return
	}

	message, err := s.sentRepo.ByTrackingID(ctx, trackingID)
	if err != nil || message == nil || message.CampaignID == nil {
		return
	}
	if err := s.campaignRepo.IncrementCounter(ctx, *message.CampaignID, column, 1); err != nil {
		s.logger.Printf("event store: campaign counter campaign=%d column=%s: %v", *message.CampaignID, column, err)
	}
}

// OnMessageReceived stamps the sending contact with the inbound message time.
// Messages from unknown numbers are ignored.
func (s *EventStore) OnMessageReceived(connectionID uint, from string, at time.Time) {
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.contactRepo.TouchLastMessage(ctx, from, at); err != nil {
		s.logger.Printf("event store: touch contact conn=%d from=%s: %v", connectionID, from, err)
	}
}

func (s *EventStore) OnReconnectExhausted(connectionID uint, attempts int) {
	s.logger.Printf("event store: reconnect exhausted conn=%d attempts=%d", connectionID, attempts)
}
