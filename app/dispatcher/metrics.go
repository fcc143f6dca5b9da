package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Messages handed to a transport, partitioned by transport mode and outcome
	messagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_messages_sent_total",
			Help: "Total number of messages handed to a transport",
		},
		[]string{"mode", "outcome"},
	)

	// Messages rejected before reaching a transport because of the daily quota
	quotaRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatcher_quota_rejected_total",
			Help: "Total number of messages rejected by the daily quota",
		},
	)

	// Reconnect attempts partitioned by outcome
	reconnectAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_reconnect_attempts_total",
			Help: "Total number of reconnect attempts",
		},
		[]string{"outcome"},
	)

	// Messages waiting in per-connection queues
	queuedMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatcher_queued_messages",
			Help: "Number of messages currently queued across all connections",
		},
	)

	// Registered connection handles
	registeredConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatcher_registered_connections",
			Help: "Number of connection handles currently registered",
		},
	)
)
