package dispatcher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revendapro/zap-dispatcher/models"
)

func testPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:   time.Millisecond,
		MaxDelay:    8 * time.Millisecond,
		MaxAttempts: 3,
	}
}

func newTestHandle(t *testing.T, direct *fakeTransport, sink EventSink, limit int) *Handle {
	t.Helper()
	gw := NewGateway(1, TransportModeDirect, direct, nil, limit, 0)
	h := NewHandle(1, "sales", "5511999990000", gw, testPolicy(), time.Millisecond, sink)
	t.Cleanup(func() { h.Close() })
	return h
}

func textMessage(body string) OutboundMessage {
	return OutboundMessage{To: "11999990000", Kind: models.MediaTypeText, Body: body}
}

func TestReconnectPolicyDelayDoublesAndCaps(t *testing.T) {
	policy := ReconnectPolicy{
		BaseDelay:   5 * time.Second,
		MaxDelay:    5 * time.Minute,
		MaxAttempts: 10,
	}

	assert.Equal(t, 5*time.Second, policy.Delay(0))
	assert.Equal(t, 10*time.Second, policy.Delay(1))
	assert.Equal(t, 20*time.Second, policy.Delay(2))
	assert.Equal(t, 40*time.Second, policy.Delay(3))
	assert.Equal(t, 5*time.Minute, policy.Delay(7))
	assert.Equal(t, 5*time.Minute, policy.Delay(20))
}

func TestHandleConnectWalksStatusMachine(t *testing.T) {
	sink := newRecordSink()
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, sink, 0)

	require.Equal(t, models.ConnectionStatusDisconnected, h.Status())

	err := h.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusConnected, h.Status())

	sink.mu.Lock()
	statuses := append([]recordedStatus(nil), sink.statuses...)
	sink.mu.Unlock()
	require.Len(t, statuses, 2)
	assert.Equal(t, models.ConnectionStatusConnecting, statuses[0].To)
	assert.Equal(t, models.ConnectionStatusConnected, statuses[1].To)
}

func TestHandleConnectWhenConnectedIsNoOp(t *testing.T) {
	sink := newRecordSink()
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, sink, 0)

	require.NoError(t, h.Connect(context.Background()))
	sink.mu.Lock()
	before := len(sink.statuses)
	sink.mu.Unlock()

	require.NoError(t, h.Connect(context.Background()))
	assert.Equal(t, models.ConnectionStatusConnected, h.Status())
	sink.mu.Lock()
	after := len(sink.statuses)
	sink.mu.Unlock()
	assert.Equal(t, before, after)
}

func TestHandleConnectFailureRollsBack(t *testing.T) {
	direct := newFakeTransport(TransportModeDirect)
	direct.connectErr = errTransportDown
	h := newTestHandle(t, direct, NopSink{}, 0)

	err := h.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.ConnectionStatusDisconnected, h.Status())
}

func TestHandleSendImmediateWhenConnected(t *testing.T) {
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, NopSink{}, 0)
	require.NoError(t, h.Connect(context.Background()))

	id, err := h.Send(context.Background(), textMessage("oi"))
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(id, QueuedIDPrefix))
	assert.Equal(t, 1, direct.sentCount())
	assert.Equal(t, 0, h.QueueLen())
}

func TestHandleSendQueuesWhenDisconnected(t *testing.T) {
	sink := newRecordSink()
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, sink, 0)

	id, err := h.Send(context.Background(), textMessage("oi"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, QueuedIDPrefix))
	assert.Equal(t, 1, h.QueueLen())
	assert.Equal(t, 0, direct.sentCount())
}

func TestHandleQueuePreservesOrderAndDrains(t *testing.T) {
	sink := newRecordSink()
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, sink, 0)

	var ids []string
	for _, body := range []string{"primeira", "segunda", "terceira"} {
		id, err := h.Send(context.Background(), textMessage(body))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.Equal(t, 3, h.QueueLen())

	require.NoError(t, h.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return h.QueueLen() == 0 && direct.sentCount() == 3
	}, 2*time.Second, 5*time.Millisecond)

	bodies := make([]string, 0, 3)
	for _, m := range direct.sentMessages() {
		bodies = append(bodies, m.Body)
	}
	assert.Equal(t, []string{"primeira", "segunda", "terceira"}, bodies)

	for _, id := range ids {
		_, ok := sink.sentFor(id)
		assert.True(t, ok, "queued message %s was never reported sent", id)
	}
}

func TestHandleRequeuesOnTransportFailure(t *testing.T) {
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, NopSink{}, 0)
	require.NoError(t, h.Connect(context.Background()))

	// The error surfaces to the caller and the message stays queued: neither
	// a silent success nor a dropped message.
	direct.setSendErr(errTransportDown)
	id, err := h.Send(context.Background(), textMessage("oi"))
	require.ErrorIs(t, err, errTransportDown)
	assert.True(t, strings.HasPrefix(id, QueuedIDPrefix))
	require.Equal(t, 1, h.QueueLen())

	direct.setSendErr(nil)

	require.Eventually(t, func() bool {
		return h.QueueLen() == 0 && direct.sentCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandleSendFailsFastOnQuota(t *testing.T) {
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, NopSink{}, 1)
	require.NoError(t, h.Connect(context.Background()))

	_, err := h.Send(context.Background(), textMessage("primeira"))
	require.NoError(t, err)

	_, err = h.Send(context.Background(), textMessage("segunda"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 0, h.QueueLen())
	assert.Equal(t, 1, direct.sentCount())
}

func TestHandleSendValidationError(t *testing.T) {
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, NopSink{}, 0)

	_, err := h.Send(context.Background(), OutboundMessage{To: "11999990000", Kind: models.MediaTypeText})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = h.Send(context.Background(), OutboundMessage{Kind: models.MediaTypeText, Body: "oi"})
	assert.ErrorIs(t, err, ErrEmptyRecipient)
}

func TestHandleReconnectsAfterDrop(t *testing.T) {
	sink := newRecordSink()
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, sink, 0)
	require.NoError(t, h.Connect(context.Background()))

	direct.Disconnect(context.Background())
	h.HandleTransportState(false)

	require.Eventually(t, func() bool {
		return h.Status() == models.ConnectionStatusConnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandleReconnectExhaustsBudget(t *testing.T) {
	sink := newRecordSink()
	direct := newFakeTransport(TransportModeDirect)
	h := newTestHandle(t, direct, sink, 0)
	require.NoError(t, h.Connect(context.Background()))

	direct.mu.Lock()
	direct.connected = false
	direct.connectErr = errTransportDown
	direct.mu.Unlock()

	h.HandleTransportState(false)

	require.Eventually(t, func() bool {
		return sink.exhaustedCount() > 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, models.ConnectionStatusDisconnected, h.Status())
}

func TestHandleCloseDropsQueue(t *testing.T) {
	direct := newFakeTransport(TransportModeDirect)
	gw := NewGateway(7, TransportModeDirect, direct, nil, 0, 0)
	h := NewHandle(7, "ops", "5511999990001", gw, testPolicy(), time.Millisecond, NopSink{})

	_, err := h.Send(context.Background(), textMessage("oi"))
	require.NoError(t, err)
	require.Equal(t, 1, h.QueueLen())

	require.NoError(t, h.Close())
	assert.Equal(t, 0, h.QueueLen())

	_, err = h.Send(context.Background(), textMessage("oi"))
	assert.ErrorIs(t, err, ErrHandleClosed)
}
