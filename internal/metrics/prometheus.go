package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings admitted",
		},
		[]string{"tenant"},
	)

	BookingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_rejected_total",
			Help: "Total number of booking requests rejected, by reason",
		},
		[]string{"tenant", "reason"},
	)

	MessagesPolled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_messages_admitted_total",
			Help: "Total number of inbound provider messages admitted into conversations",
		},
		[]string{"tenant"},
	)

	PollCursor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inbound_poll_cursor",
			Help: "Last provider update id processed per tenant",
		},
		[]string{"tenant"},
	)

	PollSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_poll_skipped_total",
			Help: "Polls that returned nothing because of a missing token or a provider failure",
		},
		[]string{"tenant", "reason"},
	)

	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_messages_total",
			Help: "Outbound messages by final delivery status",
		},
		[]string{"tenant", "status"},
	)

	WorkerProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_events_processed_total",
			Help: "Total number of tenant events processed by workers",
		},
		[]string{"tenant"},
	)

	WorkerActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Number of active worker goroutines per tenant",
		},
		[]string{"tenant"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current RabbitMQ event queue depth per tenant",
		},
		[]string{"tenant"},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(
		BookingsCreated,
		BookingsRejected,
		MessagesPolled,
		PollCursor,
		PollSkipped,
		MessagesSent,
		WorkerProcessed,
		WorkerActive,
		QueueDepth,
	)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
