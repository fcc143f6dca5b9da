package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/revendapro/zap-dispatcher/models"
)

// QueuedIDPrefix marks tracking ids handed out for messages that were
// accepted into the queue instead of being sent immediately.
const QueuedIDPrefix = "queued-"

// ReconnectPolicy bounds the automatic reconnect loop after a dropped
// session. Delays double from BaseDelay up to MaxDelay; after MaxAttempts
// failures the handle stays disconnected until Connect is called again.
type ReconnectPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Delay returns the backoff delay for the given zero-based attempt.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

type queuedMessage struct {
	trackingID string
	msg        OutboundMessage
}

// Handle owns the lifecycle of a single WhatsApp connection: its status,
// the outbound queue and the reconnect loop. All sends go through the
// gateway so transport selection and quota stay in one place.
type Handle struct {
	connectionID uint
	name         string
	phoneNumber  string
	gateway      *Gateway
	events       EventSink
	policy       ReconnectPolicy

	mu                sync.Mutex
	status            models.ConnectionStatus
	queue             []queuedMessage
	reconnectAttempts int
	reconnectTimer    *time.Timer
	draining          bool
	closed            bool

	limiter *rate.Limiter

	lifeCtx    context.Context
	lifeCancel context.CancelFunc
}

func NewHandle(connectionID uint, name, phoneNumber string, gateway *Gateway, policy ReconnectPolicy, drainInterval time.Duration, events EventSink) *Handle {
	if events == nil {
		events = NopSink{}
	}
	if drainInterval <= 0 {
		drainInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handle{
		connectionID: connectionID,
		name:         name,
		phoneNumber:  phoneNumber,
		gateway:      gateway,
		events:       events,
		policy:       policy,
		status:       models.ConnectionStatusDisconnected,
		limiter:      rate.NewLimiter(rate.Every(drainInterval), 1),
		lifeCtx:      ctx,
		lifeCancel:   cancel,
	}
}

func (h *Handle) ConnectionID() uint  { return h.connectionID }
func (h *Handle) Name() string        { return h.name }
func (h *Handle) PhoneNumber() string { return h.phoneNumber }
func (h *Handle) Gateway() *Gateway   { return h.gateway }

func (h *Handle) Status() models.ConnectionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Handle) QueueLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// setStatus applies a transition if the state machine allows it and emits
// the change. Returns the previous status.
func (h *Handle) setStatus(to models.ConnectionStatus) (models.ConnectionStatus, bool) {
	h.mu.Lock()
	from := h.status
	if from == to || !from.CanTransitionTo(to) {
		h.mu.Unlock()
		return from, false
	}
	h.status = to
	h.mu.Unlock()
	h.events.OnStatusChange(h.connectionID, from, to)
	return from, true
}

// Connect drives the handle through connecting to connected. Connecting an
// already connected handle is a no-op. A manual connect resets the reconnect
// budget.
func (h *Handle) Connect(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHandleClosed
	}
	switch h.status {
	case models.ConnectionStatusConnected:
		h.mu.Unlock()
		return nil
	case models.ConnectionStatusConnecting:
		h.mu.Unlock()
		return ErrConnecting
	}
	h.reconnectAttempts = 0
	h.cancelReconnectLocked()
	h.mu.Unlock()

	h.setStatus(models.ConnectionStatusConnecting)
	if err := h.gateway.Connect(ctx); err != nil {
		h.setStatus(models.ConnectionStatusDisconnected)
		return err
	}
	h.setStatus(models.ConnectionStatusConnected)
	h.startDrain()
	return nil
}

// Disconnect tears the session down and stops any pending reconnect.
func (h *Handle) Disconnect(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHandleClosed
	}
	h.cancelReconnectLocked()
	h.reconnectAttempts = 0
	h.mu.Unlock()

	err := h.gateway.Disconnect(ctx)
	h.setStatus(models.ConnectionStatusDisconnected)
	return err
}

// Close releases the handle. Queued messages are dropped.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.cancelReconnectLocked()
	queuedMessages.Sub(float64(len(h.queue)))
	h.queue = nil
	h.mu.Unlock()

	h.lifeCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := h.gateway.Disconnect(ctx)
	h.setStatus(models.ConnectionStatusDisconnected)
	return err
}

// Send delivers the message immediately when the session is up, otherwise
// it queues the message and returns a synthetic tracking id. Quota and
// validation failures are returned to the caller without queueing. A
// transport failure re-enqueues the message for retry AND returns the error
// together with the queued tracking id, so callers see both the failure and
// the retained message.
func (h *Handle) Send(ctx context.Context, msg OutboundMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return "", ErrHandleClosed
	}
	connected := h.status == models.ConnectionStatusConnected
	busy := len(h.queue) > 0
	h.mu.Unlock()

	if !connected || busy {
		id := h.enqueue(msg)
		if connected {
			h.startDrain()
		}
		return id, nil
	}

	providerID, err := h.gateway.Send(ctx, msg)
	if err != nil {
		if err == ErrQuotaExceeded || ctx.Err() != nil {
			return "", err
		}
		id := h.enqueue(msg)
		h.startDrain()
		return id, err
	}
	h.events.OnMessageStatus(h.connectionID, providerID, models.MessageStatusSent, "")
	return providerID, nil
}

func (h *Handle) enqueue(msg OutboundMessage) string {
	id := QueuedIDPrefix + uuid.NewString()
	h.mu.Lock()
	h.queue = append(h.queue, queuedMessage{trackingID: id, msg: msg})
	h.mu.Unlock()
	queuedMessages.Inc()
	h.events.OnMessageQueued(h.connectionID, id, msg.To)
	return id
}

// startDrain launches the queue pump if one is not already running.
func (h *Handle) startDrain() {
	h.mu.Lock()
	if h.draining || h.closed || h.status != models.ConnectionStatusConnected || len(h.queue) == 0 {
		h.mu.Unlock()
		return
	}
	h.draining = true
	h.mu.Unlock()
	go h.drain()
}

func (h *Handle) drain() {
	defer func() {
		h.mu.Lock()
		h.draining = false
		h.mu.Unlock()
	}()

	for {
		if err := h.limiter.Wait(h.lifeCtx); err != nil {
			return
		}

		h.mu.Lock()
		if h.closed || h.status != models.ConnectionStatusConnected || len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		item := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()

		providerID, err := h.gateway.Send(h.lifeCtx, item.msg)
		if err != nil {
			// Put the message back at the head so ordering survives the retry.
			h.mu.Lock()
			h.queue = append([]queuedMessage{item}, h.queue...)
			h.mu.Unlock()
			if err == ErrQuotaExceeded {
				return
			}
			continue
		}
		queuedMessages.Dec()
		h.events.OnMessageSent(h.connectionID, item.trackingID, providerID)
		h.events.OnMessageStatus(h.connectionID, item.trackingID, models.MessageStatusSent, "")
	}
}

// HandleTransportState is called by transports when the underlying session
// comes up or drops. A drop arms the reconnect backoff; a recovery resets it
// and resumes the queue.
func (h *Handle) HandleTransportState(connected bool) {
	if connected {
		h.mu.Lock()
		h.reconnectAttempts = 0
		h.cancelReconnectLocked()
		h.mu.Unlock()
		// The transport can recover on its own while the handle still thinks
		// it is disconnected; walk through connecting in that case.
		if h.Status() == models.ConnectionStatusDisconnected {
			h.setStatus(models.ConnectionStatusConnecting)
		}
		h.setStatus(models.ConnectionStatusConnected)
		h.startDrain()
		return
	}

	h.setStatus(models.ConnectionStatusDisconnected)
	h.scheduleReconnect()
}

func (h *Handle) scheduleReconnect() {
	h.mu.Lock()
	if h.closed || h.reconnectTimer != nil {
		h.mu.Unlock()
		return
	}
	if h.policy.MaxAttempts > 0 && h.reconnectAttempts >= h.policy.MaxAttempts {
		attempts := h.reconnectAttempts
		h.mu.Unlock()
		reconnectAttemptsTotal.WithLabelValues("exhausted").Inc()
		h.events.OnReconnectExhausted(h.connectionID, attempts)
		return
	}
	delay := h.policy.Delay(h.reconnectAttempts)
	h.reconnectAttempts++
	h.reconnectTimer = time.AfterFunc(delay, h.reconnect)
	h.mu.Unlock()
}

func (h *Handle) reconnect() {
	h.mu.Lock()
	h.reconnectTimer = nil
	if h.closed || h.status == models.ConnectionStatusConnected {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	h.setStatus(models.ConnectionStatusConnecting)
	ctx, cancel := context.WithTimeout(h.lifeCtx, 2*time.Minute)
	defer cancel()
	if err := h.gateway.Connect(ctx); err != nil {
		reconnectAttemptsTotal.WithLabelValues("error").Inc()
		h.setStatus(models.ConnectionStatusDisconnected)
		h.scheduleReconnect()
		return
	}
	reconnectAttemptsTotal.WithLabelValues("ok").Inc()
	h.mu.Lock()
	h.reconnectAttempts = 0
	h.mu.Unlock()
	h.setStatus(models.ConnectionStatusConnected)
	h.startDrain()
}

func (h *Handle) cancelReconnectLocked() {
	if h.reconnectTimer != nil {
		h.reconnectTimer.Stop()
		h.reconnectTimer = nil
	}
}
