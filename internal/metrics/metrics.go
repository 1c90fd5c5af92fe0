package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atrium_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Routing metrics
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_messages_received_total",
			Help: "Hub messages seen by a router",
		},
		[]string{"agent"},
	)

	MessagesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_messages_filtered_total",
			Help: "Messages dropped before ingestion",
		},
		[]string{"agent", "reason"}, // "not_participant", "self", "participants_unavailable"
	)

	DuplicateMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_duplicate_messages_total",
			Help: "Messages skipped because the memory already existed",
		},
		[]string{"agent"},
	)

	MemoriesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_memories_created_total",
			Help: "Memories written from hub messages",
		},
		[]string{"agent"},
	)

	RepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_replies_sent_total",
			Help: "Agent replies relayed back to the hub",
		},
		[]string{"agent"},
	)

	RepliesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_replies_suppressed_total",
			Help: "Agent replies dropped as empty or ignored",
		},
		[]string{"agent"},
	)

	// Hub client metrics
	HubErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_hub_errors_total",
			Help: "Failed hub API calls",
		},
		[]string{"op"}, // "submit", "servers", "participants"
	)

	// Bus metrics
	BusEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atrium_bus_events_published_total",
			Help: "Events published on the bus",
		},
		[]string{"kind"},
	)

	BusDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "atrium_bus_decode_errors_total",
			Help: "Bus payloads that failed to decode",
		},
	)
)
