// Package metrics exposes the relay's Prometheus instruments.
//
// Each Metrics value owns a private registry; nothing is registered on
// the global default. Components receive the Metrics value through small
// observer interfaces declared in their own packages.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Metrics holds every relay instrument.
type Metrics struct {
	registry *prometheus.Registry

	messagesReceived *prometheus.CounterVec
	subscriberPanics *prometheus.CounterVec

	brokerConnected       prometheus.Gauge
	brokerConnectAttempts prometheus.Counter

	readingsFiltered prometheus.Counter
	readingsStored   prometheus.Counter
	storeFailures    prometheus.Counter
	queueDropped     prometheus.Counter
	queueLength      prometheus.Gauge
	storeLatency     prometheus.Histogram

	dashboardClients prometheus.Gauge
	framesSent       prometheus.Counter
	clientsEvicted   prometheus.Counter

	commandsPublished *prometheus.CounterVec
}

// New creates the instruments and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Broker messages received, by classified kind (unknown when unmatched).",
		}, []string{"kind"}),
		subscriberPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_panics_total",
			Help:      "Event subscriber panics recovered by the router.",
		}, []string{"subscriber"}),
		brokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broker_connected",
			Help:      "1 while the broker connection is up.",
		}),
		brokerConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_connect_attempts_total",
			Help:      "Broker connect attempts, initial and reconnect.",
		}),
		readingsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_filtered_total",
			Help:      "Readings not storage-worthy.",
		}),
		readingsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_stored_total",
			Help:      "Readings written to the store.",
		}),
		storeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Reading writes that failed.",
		}),
		queueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_queue_dropped_total",
			Help:      "Readings dropped because the store queue was full.",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_queue_length",
			Help:      "Readings waiting for the store worker.",
		}),
		storeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_seconds",
			Help:      "Latency of a single reading write.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		dashboardClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_clients",
			Help:      "Connected dashboard WebSocket clients.",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames queued to dashboard clients.",
		}),
		clientsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_evicted_total",
			Help:      "Dashboard clients removed after a failed send.",
		}),
		commandsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dashboard commands by name and result (sent, invalid, failed).",
		}, []string{"command", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messagesReceived,
		m.subscriberPanics,
		m.brokerConnected,
		m.brokerConnectAttempts,
		m.readingsFiltered,
		m.readingsStored,
		m.storeFailures,
		m.queueDropped,
		m.queueLength,
		m.storeLatency,
		m.dashboardClients,
		m.framesSent,
		m.clientsEvicted,
		m.commandsPublished,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ConnectAttempt counts a broker connect attempt.
func (m *Metrics) ConnectAttempt() {
	m.brokerConnectAttempts.Inc()
}

// ConnectionState records whether the broker link is up.
func (m *Metrics) ConnectionState(connected bool) {
	if connected {
		m.brokerConnected.Set(1)
		return
	}
	m.brokerConnected.Set(0)
}

// MessageReceived counts an inbound message by kind.
func (m *Metrics) MessageReceived(kind string) {
	m.messagesReceived.WithLabelValues(kind).Inc()
}

// SubscriberPanic counts a recovered subscriber panic.
func (m *Metrics) SubscriberPanic(subscriber string) {
	m.subscriberPanics.WithLabelValues(subscriber).Inc()
}

// ReadingFiltered counts a reading the filter rejected.
func (m *Metrics) ReadingFiltered() {
	m.readingsFiltered.Inc()
}

// ReadingDropped counts a reading lost to a full queue.
func (m *Metrics) ReadingDropped() {
	m.queueDropped.Inc()
}

// QueueLength records the store queue depth.
func (m *Metrics) QueueLength(n int) {
	m.queueLength.Set(float64(n))
}

// ReadingStored records a successful write and its latency.
func (m *Metrics) ReadingStored(d time.Duration) {
	m.readingsStored.Inc()
	m.storeLatency.Observe(d.Seconds())
}

// StoreFailed counts a failed write.
func (m *Metrics) StoreFailed() {
	m.storeFailures.Inc()
}

// ClientsConnected records the number of connected dashboards.
func (m *Metrics) ClientsConnected(n int) {
	m.dashboardClients.Set(float64(n))
}

// FramesSent counts frames queued to dashboards.
func (m *Metrics) FramesSent(n int) {
	m.framesSent.Add(float64(n))
}

// ClientEvicted counts a dashboard dropped after a failed send.
func (m *Metrics) ClientEvicted() {
	m.clientsEvicted.Inc()
}

// CommandPublished counts a command outcome.
func (m *Metrics) CommandPublished(name, result string) {
	m.commandsPublished.WithLabelValues(name, result).Inc()
}
