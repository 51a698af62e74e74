package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolveflow_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolveflow_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Real-time metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resolveflow_ws_active_connections",
			Help: "Currently registered WebSocket connections",
		},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolveflow_events_delivered_total",
			Help: "Events enqueued to client connections",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolveflow_events_dropped_total",
			Help: "Events dropped because a client buffer was full",
		},
		[]string{"type"},
	)

	HandshakeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolveflow_ws_handshake_failures_total",
			Help: "Rejected WebSocket handshakes",
		},
		[]string{"reason"},
	)

	// Business metrics
	ComplaintsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolveflow_complaints_registered_total",
			Help: "Total complaints registered",
		},
	)

	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolveflow_lifecycle_transitions_total",
			Help: "Complaint status transitions by target status",
		},
		[]string{"status"},
	)

	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolveflow_chat_messages_total",
			Help: "Chat messages appended",
		},
		[]string{"assigned"}, // "true" or "false"
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolveflow_notifications_failed_total",
			Help: "Outbound notifications that failed",
		},
		[]string{"channel"}, // "email" or "telegram"
	)
)
