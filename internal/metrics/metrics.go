package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crewchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crewchat_ws_connections_active",
			Help: "Currently open WebSocket connections",
		},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewchat_messages_sent_total",
			Help: "Total accepted chat messages",
		},
		[]string{"kind"}, // "broadcast" or "direct"
	)

	DirectDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewchat_direct_delivered_total",
			Help: "Direct messages delivered to a recipient",
		},
		[]string{"path"}, // "live" or "reconciled"
	)

	SendsDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewchat_sends_denied_total",
			Help: "Commands rejected before any side effect",
		},
		[]string{"reason"}, // "authorization", "unknown_user"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewchat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
