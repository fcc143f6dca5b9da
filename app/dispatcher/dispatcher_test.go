package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/revendapro/zap-dispatcher/models"
)

type fakeTransport struct {
	mode TransportMode

	mu         sync.Mutex
	connected  bool
	connectErr error
	sendErr    error
	checkErr   error
	exists     bool
	sent       []OutboundMessage
	nextID     int
}

func newFakeTransport(mode TransportMode) *fakeTransport {
	return &fakeTransport{mode: mode, exists: true}
}

func (f *fakeTransport) Mode() TransportMode { return f.mode }

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) SendMessage(ctx context.Context, msg OutboundMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("%s-msg-%d", f.mode, f.nextID), nil
}

func (f *fakeTransport) CheckNumber(ctx context.Context, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.exists, nil
}

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) sentMessages() []OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]OutboundMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

type recordedStatus struct {
	From models.ConnectionStatus
	To   models.ConnectionStatus
}

type recordSink struct {
	mu        sync.Mutex
	statuses  []recordedStatus
	qrCodes   []string
	queued    []string
	paired    string
	received  []string
	sent      map[string]string
	messages  map[string]models.MessageStatus
	exhausted int
}

func newRecordSink() *recordSink {
	return &recordSink{
		sent:     make(map[string]string),
		messages: make(map[string]models.MessageStatus),
	}
}

func (r *recordSink) OnStatusChange(id uint, from, to models.ConnectionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, recordedStatus{From: from, To: to})
}

func (r *recordSink) OnQRCode(id uint, dataURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qrCodes = append(r.qrCodes, dataURL)
}

func (r *recordSink) OnPaired(id uint, phoneNumber string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paired = phoneNumber
}

func (r *recordSink) OnMessageQueued(id uint, trackingID, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, trackingID)
}

func (r *recordSink) OnMessageSent(id uint, trackingID, providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[trackingID] = providerID
}

func (r *recordSink) OnMessageStatus(id uint, trackingID string, status models.MessageStatus, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[trackingID] = status
}

func (r *recordSink) OnMessageReceived(id uint, from string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, from)
}

func (r *recordSink) OnReconnectExhausted(id uint, attempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted++
}

func (r *recordSink) lastStatus() (recordedStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return recordedStatus{}, false
	}
	return r.statuses[len(r.statuses)-1], true
}

func (r *recordSink) sentFor(trackingID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sent[trackingID]
	return id, ok
}

func (r *recordSink) qrCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.qrCodes)
}

func (r *recordSink) pairedNumber() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paired
}

func (r *recordSink) exhaustedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exhausted
}

var errTransportDown = errors.New("transport down")
