package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatclient_ws_active_connections",
			Help: "Number of active websocket connections held by the client.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"kind", "event"},
	)
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_messages_total",
			Help: "Total number of chat messages by direction.",
		},
		[]string{"direction"},
	)
	duplicatesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatclient_duplicates_dropped_total",
			Help: "Total number of inbound messages dropped as duplicates.",
		},
	)
	sendsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatclient_sends_dropped_total",
			Help: "Total number of sends dropped because no session was open.",
		},
	)
	staleResultsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_stale_results_dropped_total",
			Help: "Total number of async results discarded after a room switch.",
		},
		[]string{"source"},
	)
	historyFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatclient_history_fetch_duration_seconds",
			Help:    "History load latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatclient_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		wsActiveConnections,
		wsEventsTotal,
		messagesTotal,
		duplicatesDroppedTotal,
		sendsDroppedTotal,
		staleResultsDroppedTotal,
		historyFetchDuration,
		amqpPublishErrorsTotal,
	)
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncMessageSent() {
	messagesTotal.WithLabelValues("sent").Inc()
}

func IncMessageReceived() {
	messagesTotal.WithLabelValues("received").Inc()
}

func IncDuplicateDropped() {
	duplicatesDroppedTotal.Inc()
}

func IncSendDropped() {
	sendsDroppedTotal.Inc()
}

func IncStaleResultDropped(source string) {
	staleResultsDroppedTotal.WithLabelValues(source).Inc()
}

func ObserveHistoryFetch(d time.Duration) {
	historyFetchDuration.Observe(d.Seconds())
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
