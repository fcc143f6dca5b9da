package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/revendapro/zap-dispatcher/models"
	"github.com/revendapro/zap-dispatcher/repository"
)

// The stubs embed the repository interfaces so only the methods the event
// store actually calls need an implementation.

type stubConnRepo struct {
	repository.ConnectionRepository
	statuses map[uint]models.ConnectionStatus
	phones   map[uint]string
	sent     int
}

func newStubConnRepo() *stubConnRepo {
	return &stubConnRepo{
		statuses: make(map[uint]models.ConnectionStatus),
		phones:   make(map[uint]string),
	}
}

func (s *stubConnRepo) UpdateStatus(ctx context.Context, id uint, status models.ConnectionStatus) error {
	s.statuses[id] = status
	return nil
}

func (s *stubConnRepo) UpdatePhoneNumber(ctx context.Context, id uint, phoneNumber string) error {
	s.phones[id] = phoneNumber
	return nil
}

func (s *stubConnRepo) RecordSent(ctx context.Context, id uint, now time.Time) error {
	s.sent++
	return nil
}

type stubSentRepo struct {
	repository.SentMessageRepository
	byTracking map[string]*models.SentMessage
	statuses   map[string]models.MessageStatus
	linked     map[string]string
}

func newStubSentRepo() *stubSentRepo {
	return &stubSentRepo{
		byTracking: make(map[string]*models.SentMessage),
		statuses:   make(map[string]models.MessageStatus),
		linked:     make(map[string]string),
	}
}

func (s *stubSentRepo) ByTrackingID(ctx context.Context, trackingID string) (*models.SentMessage, error) {
	return s.byTracking[trackingID], nil
}

func (s *stubSentRepo) UpdateStatus(ctx context.Context, trackingID string, status models.MessageStatus, failReason string) error {
	s.statuses[trackingID] = status
	return nil
}

func (s *stubSentRepo) LinkProviderID(ctx context.Context, trackingID, providerID string) error {
	s.linked[trackingID] = providerID
	return nil
}

type stubContactRepo struct {
	repository.ContactRepository
	touched map[string]time.Time
}

func newStubContactRepo() *stubContactRepo {
	return &stubContactRepo{touched: make(map[string]time.Time)}
}

func (s *stubContactRepo) TouchLastMessage(ctx context.Context, phoneNumber string, at time.Time) error {
	s.touched[phoneNumber] = at
	return nil
}

type stubCampaignRepo struct {
	repository.CampaignRepository
	counters map[string]int
}

func newStubCampaignRepo() *stubCampaignRepo {
	return &stubCampaignRepo{counters: make(map[string]int)}
}

func (s *stubCampaignRepo) IncrementCounter(ctx context.Context, id uint, column string, delta int) error {
	s.counters[column] += delta
	return nil
}

type memoryCache struct {
	qr map[uint]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{qr: make(map[uint]string)}
}

func (c *memoryCache) StoreQRCode(ctx context.Context, connectionID uint, dataURL string) error {
	c.qr[connectionID] = dataURL
	return nil
}

func (c *memoryCache) QRCode(ctx context.Context, connectionID uint) (string, error) {
	return c.qr[connectionID], nil
}

func (c *memoryCache) ClearQRCode(ctx context.Context, connectionID uint) error {
	delete(c.qr, connectionID)
	return nil
}

func (c *memoryCache) StoreNumberStatus(ctx context.Context, phoneNumber string, exists bool) error {
	return nil
}

func (c *memoryCache) NumberStatus(ctx context.Context, phoneNumber string) (bool, bool, error) {
	return false, false, nil
}

func TestEventStoreStatusChangeClearsQR(t *testing.T) {
	conns := newStubConnRepo()
	cache := newMemoryCache()
	store := NewEventStore(conns, newStubSentRepo(), newStubCampaignRepo(), newStubContactRepo(), cache, nil)

	store.OnQRCode(7, "data:image/png;base64,abc")
	assert.Equal(t, "data:image/png;base64,abc", cache.qr[7])

	store.OnStatusChange(7, models.ConnectionStatusConnecting, models.ConnectionStatusConnected)
	assert.Equal(t, models.ConnectionStatusConnected, conns.statuses[7])
	assert.Empty(t, cache.qr)
}

func TestEventStorePairedPersistsNumber(t *testing.T) {
	conns := newStubConnRepo()
	store := NewEventStore(conns, newStubSentRepo(), newStubCampaignRepo(), newStubContactRepo(), newMemoryCache(), nil)

	store.OnPaired(3, "5511999990000")
	assert.Equal(t, "5511999990000", conns.phones[3])
}

func TestEventStoreMessageSentLinksProviderID(t *testing.T) {
	sent := newStubSentRepo()
	store := NewEventStore(newStubConnRepo(), sent, newStubCampaignRepo(), newStubContactRepo(), nil, nil)

	store.OnMessageSent(1, "queued-1-42", "3EB0C767D26A8B4A")
	assert.Equal(t, "3EB0C767D26A8B4A", sent.linked["queued-1-42"])
}

func TestEventStoreSentStatusRecordsQuota(t *testing.T) {
	conns := newStubConnRepo()
	sent := newStubSentRepo()
	store := NewEventStore(conns, sent, newStubCampaignRepo(), newStubContactRepo(), nil, nil)

	store.OnMessageStatus(1, "abc", models.MessageStatusSent, "")
	assert.Equal(t, models.MessageStatusSent, sent.statuses["abc"])
	assert.Equal(t, 1, conns.sent)
}

func TestEventStoreDeliveryBumpsCampaignCounter(t *testing.T) {
	sent := newStubSentRepo()
	campaigns := newStubCampaignRepo()
	campaignID := uint(9)
	sent.byTracking["abc"] = &models.SentMessage{TrackingID: "abc", CampaignID: &campaignID}
	store := NewEventStore(newStubConnRepo(), sent, campaigns, newStubContactRepo(), nil, nil)

	store.OnMessageStatus(1, "abc", models.MessageStatusDelivered, "")
	store.OnMessageStatus(1, "abc", models.MessageStatusRead, "")

	assert.Equal(t, 1, campaigns.counters["delivered_messages"])
	assert.Equal(t, 1, campaigns.counters["read_messages"])
}

func TestEventStoreMessageReceivedTouchesContact(t *testing.T) {
	contacts := newStubContactRepo()
	store := NewEventStore(newStubConnRepo(), newStubSentRepo(), newStubCampaignRepo(), contacts, nil, nil)

	at := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	store.OnMessageReceived(1, "5511988887777", at)

	assert.Equal(t, at, contacts.touched["5511988887777"])
}

func TestEventStoreDeliveryWithoutCampaignIsIgnored(t *testing.T) {
	sent := newStubSentRepo()
	campaigns := newStubCampaignRepo()
	sent.byTracking["abc"] = &models.SentMessage{TrackingID: "abc"}
	store := NewEventStore(newStubConnRepo(), sent, campaigns, newStubContactRepo(), nil, nil)

	store.OnMessageStatus(1, "abc", models.MessageStatusDelivered, "")
	assert.Empty(t, campaigns.counters)
}
