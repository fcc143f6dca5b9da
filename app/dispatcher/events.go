package dispatcher

import (
	"time"

	"github.com/revendapro/zap-dispatcher/models"
)

// EventSink receives connection lifecycle and delivery notifications.
// Implementations must not block; slow consumers should buffer internally.
type EventSink interface {
	OnStatusChange(connectionID uint, from, to models.ConnectionStatus)
	OnQRCode(connectionID uint, dataURL string)
	OnPaired(connectionID uint, phoneNumber string)
	OnMessageQueued(connectionID uint, trackingID string, to string)
	// OnMessageSent links a tracking id to the provider message id once the
	// message actually left through a transport.
	OnMessageSent(connectionID uint, trackingID string, providerID string)
	OnMessageStatus(connectionID uint, trackingID string, status models.MessageStatus, reason string)
	// OnMessageReceived reports an inbound message from the given phone
	// number; at is the provider timestamp.
	OnMessageReceived(connectionID uint, from string, at time.Time)
	OnReconnectExhausted(connectionID uint, attempts int)
}

// NopSink discards every event. Useful as a default and in tests.
type NopSink struct{}

func (NopSink) OnStatusChange(uint, models.ConnectionStatus, models.ConnectionStatus) {}
func (NopSink) OnQRCode(uint, string)                                                 {}
func (NopSink) OnPaired(uint, string)                                                 {}
func (NopSink) OnMessageQueued(uint, string, string)                                  {}
func (NopSink) OnMessageSent(uint, string, string)                                    {}
func (NopSink) OnMessageStatus(uint, string, models.MessageStatus, string)            {}
func (NopSink) OnMessageReceived(uint, string, time.Time)                             {}
func (NopSink) OnReconnectExhausted(uint, int)                                        {}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) OnStatusChange(id uint, from, to models.ConnectionStatus) {
	for _, s := range m {
		s.OnStatusChange(id, from, to)
	}
}

func (m MultiSink) OnQRCode(id uint, dataURL string) {
	for _, s := range m {
		s.OnQRCode(id, dataURL)
	}
}

func (m MultiSink) OnPaired(id uint, phoneNumber string) {
	for _, s := range m {
		s.OnPaired(id, phoneNumber)
	}
}

func (m MultiSink) OnMessageQueued(id uint, trackingID, to string) {
	for _, s := range m {
		s.OnMessageQueued(id, trackingID, to)
	}
}

func (m MultiSink) OnMessageSent(id uint, trackingID, providerID string) {
	for _, s := range m {
		s.OnMessageSent(id, trackingID, providerID)
	}
}

func (m MultiSink) OnMessageStatus(id uint, trackingID string, status models.MessageStatus, reason string) {
	for _, s := range m {
		s.OnMessageStatus(id, trackingID, status, reason)
	}
}

func (m MultiSink) OnMessageReceived(id uint, from string, at time.Time) {
	for _, s := range m {
		s.OnMessageReceived(id, from, at)
	}
}

func (m MultiSink) OnReconnectExhausted(id uint, attempts int) {
	for _, s := range m {
		s.OnReconnectExhausted(id, attempts)
	}
}
