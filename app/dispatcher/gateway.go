package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/revendapro/zap-dispatcher/utils"
)

// Gateway routes messages for one connection through the configured
// transports and enforces the daily send quota.
type Gateway struct {
	connectionID uint
	mode         TransportMode
	direct       Transport
	server       Transport

	mu         sync.Mutex
	lastMode   TransportMode
	dailyLimit int
	sentToday  int
	quotaDay   time.Time
}

// NewGateway builds a gateway for the given mode. Direct and server may be
// nil when the mode never selects them; auto requires both.
func NewGateway(connectionID uint, mode TransportMode, direct, server Transport, dailyLimit, sentToday int) *Gateway {
	return &Gateway{
		connectionID: connectionID,
		mode:         mode,
		direct:       direct,
		server:       server,
		dailyLimit:   dailyLimit,
		sentToday:    sentToday,
		quotaDay:     time.Now().UTC(),
	}
}

// LastMode reports the transport that carried the most recent successful
// operation. Empty until the first success.
func (g *Gateway) LastMode() TransportMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastMode
}

func (g *Gateway) setLastMode(mode TransportMode) {
	g.mu.Lock()
	g.lastMode = mode
	g.mu.Unlock()
}

// SentToday returns the current quota usage.
func (g *Gateway) SentToday() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetQuotaLocked(time.Now().UTC())
	return g.sentToday
}

// SetDailyLimit updates the quota ceiling. Zero disables the quota.
func (g *Gateway) SetDailyLimit(limit int) {
	g.mu.Lock()
	g.dailyLimit = limit
	g.mu.Unlock()
}

func (g *Gateway) resetQuotaLocked(now time.Time) {
	if !utils.SameCalendarDay(g.quotaDay, now) {
		g.sentToday = 0
		g.quotaDay = now
	}
}

// checkQuota fails fast when today's allowance is used up. It does not
// reserve a slot; the counter only moves on successful sends.
func (g *Gateway) checkQuota() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetQuotaLocked(time.Now().UTC())
	if g.dailyLimit > 0 && g.sentToday >= g.dailyLimit {
		return ErrQuotaExceeded
	}
	return nil
}

func (g *Gateway) recordSent() {
	g.mu.Lock()
	g.resetQuotaLocked(time.Now().UTC())
	g.sentToday++
	g.mu.Unlock()
}

// Send validates the message, enforces the quota and delivers through the
// selected transport. In auto mode the last live transport is tried first
// and the other one is the fallback.
func (g *Gateway) Send(ctx context.Context, msg OutboundMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if err := g.checkQuota(); err != nil {
		quotaRejectedTotal.Inc()
		return "", err
	}

	transport, fallback, err := g.pick()
	if err != nil {
		return "", err
	}

	id, err := transport.SendMessage(ctx, msg)
	if err != nil && fallback != nil {
		messagesSentTotal.WithLabelValues(string(transport.Mode()), "error").Inc()
		transport = fallback
		id, err = transport.SendMessage(ctx, msg)
	}
	if err != nil {
		messagesSentTotal.WithLabelValues(string(transport.Mode()), "error").Inc()
		return "", fmt.Errorf("send via %s transport: %w", transport.Mode(), err)
	}

	g.setLastMode(transport.Mode())
	g.recordSent()
	messagesSentTotal.WithLabelValues(string(transport.Mode()), "ok").Inc()
	return id, nil
}

// CheckNumber verifies the recipient exists on WhatsApp, using the same
// transport selection as Send.
func (g *Gateway) CheckNumber(ctx context.Context, phone string) (bool, error) {
	transport, fallback, err := g.pick()
	if err != nil {
		return false, err
	}
	ok, err := transport.CheckNumber(ctx, phone)
	if err != nil && fallback != nil {
		transport = fallback
		ok, err = transport.CheckNumber(ctx, phone)
	}
	if err != nil {
		return false, err
	}
	g.setLastMode(transport.Mode())
	return ok, nil
}

// Connect brings up the transport for the configured mode. In auto mode a
// failed server connect falls back to the embedded client.
func (g *Gateway) Connect(ctx context.Context) error {
	transport, fallback, err := g.pick()
	if err != nil {
		return err
	}
	err = transport.Connect(ctx)
	if err != nil && fallback != nil {
		transport = fallback
		err = transport.Connect(ctx)
	}
	if err != nil {
		return err
	}
	g.setLastMode(transport.Mode())
	return nil
}

// Disconnect tears down every configured transport.
func (g *Gateway) Disconnect(ctx context.Context) error {
	var firstErr error
	for _, t := range []Transport{g.server, g.direct} {
		if t == nil {
			continue
		}
		if err := t.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Connected reports whether any configured transport holds a live session.
func (g *Gateway) Connected() bool {
	for _, t := range []Transport{g.server, g.direct} {
		if t != nil && t.Connected() {
			return true
		}
	}
	return false
}

// pick resolves the primary transport and, for auto mode, the fallback.
// Auto mode routes back to whichever transport carried the last successful
// operation; before any success the server transport is tried first.
func (g *Gateway) pick() (primary, fallback Transport, err error) {
	switch g.mode {
	case TransportModeDirect:
		if g.direct == nil {
			return nil, nil, ErrUnknownTransport
		}
		return g.direct, nil, nil
	case TransportModeServer:
		if g.server == nil {
			return nil, nil, ErrUnknownTransport
		}
		return g.server, nil, nil
	case TransportModeAuto:
		if g.server == nil && g.direct == nil {
			return nil, nil, ErrUnknownTransport
		}
		if g.server == nil {
			return g.direct, nil, nil
		}
		if g.LastMode() == TransportModeDirect {
			return g.direct, g.server, nil
		}
		return g.server, g.direct, nil
	default:
		return nil, nil, ErrUnknownTransport
	}
}
