package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry metrics
var (
	// RegistryActiveRooms tracks the number of broadcast keys with at least one subscriber
	RegistryActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_active_rooms",
			Help: "Number of rooms with at least one live subscriber",
		},
	)

	// RegistryConnectedClients tracks total connected WebSocket clients across all rooms
	RegistryConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_connected_clients_total",
			Help: "Total number of connected WebSocket clients across all rooms",
		},
	)

	// RegistryBroadcastsTotal tracks broadcasts by event kind
	RegistryBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_broadcasts_total",
			Help: "Total broadcasts processed by event kind",
		},
		[]string{"kind"},
	)

	// RegistryDroppedDeliveriesTotal tracks per-handle deliveries skipped because the send buffer was full
	RegistryDroppedDeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_dropped_deliveries_total",
			Help: "Total deliveries dropped because a subscriber's send buffer was full",
		},
	)

	// RegistrySlowClientsEvicted tracks slow clients evicted after dropped deliveries
	RegistrySlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_slow_clients_evicted_total",
			Help: "Total slow WebSocket clients evicted due to full send buffers",
		},
	)

	// RegistryCommandChannelDepth tracks current command channel depth
	RegistryCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_command_channel_depth",
			Help: "Current depth of the registry command channel",
		},
	)

	// RegistryPanicsTotal tracks registry panic recoveries
	RegistryPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_panics_total",
			Help: "Total registry panic recoveries",
		},
	)

	// RegistryStopTimeoutsTotal tracks forced registry shutdowns
	RegistryStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_stop_timeouts_total",
			Help: "Total registry stops that exceeded the graceful timeout",
		},
	)
)

// Gateway / WebSocket metrics
var (
	// GatewayConnectsTotal tracks connection attempts by outcome
	GatewayConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_connects_total",
			Help: "WebSocket connect attempts by outcome (accepted, rejected_request, rejected_auth, rejected_room, rejected_limit, rejected_capacity)",
		},
		[]string{"outcome"},
	)

	// WebSocketMessageSendDuration tracks frame write latency
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket frame write duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WebSocketPingFailures tracks keepalive ping failures
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket keepalive ping failures",
		},
	)
)

// Dispatcher metrics
var (
	// NotificationsTotal tracks notifications pushed by the request layer
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total notifications dispatched by kind",
		},
		[]string{"kind"},
	)
)

// Rate limiting metrics
var (
	// MessageRateLimited tracks messages rejected by the Redis rate limiter
	MessageRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_rate_limited_total",
			Help: "Total message posts rejected by the rate limiter",
		},
	)

	// MessageRateLimiterErrors tracks rate limiter failures (limiter fails open)
	MessageRateLimiterErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "message_rate_limiter_errors_total",
			Help: "Total rate limiter errors; posting is allowed when the limiter fails",
		},
	)
)
