package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Import and ledger metrics
	ImportsTotal        *prometheus.CounterVec
	ImportDuration      prometheus.Histogram
	OrdersMerged        *prometheus.CounterVec
	MergeBatches        *prometheus.CounterVec
	SnapshotsDelivered  prometheus.Counter
	SnapshotSize        prometheus.Gauge
	LedgerSyncConnected prometheus.Gauge
	RealtimeClients     prometheus.Gauge
	UserEdits           *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "texflow",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}
	ns := config.Namespace
	serviceLabel := prometheus.Labels{"service": config.ServiceName}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total", Help: "Total number of HTTP requests"},
		[]string{"service", "method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "path"},
	)
	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "http_requests_in_flight", Help: "Number of HTTP requests currently being processed",
		ConstLabels: serviceLabel,
	})

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "kafka_events_published_total", Help: "Total number of Kafka events published"},
		[]string{"service", "topic", "event_type", "status"},
	)
	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns, Name: "kafka_publish_duration_seconds", Help: "Kafka publish duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	m.MongoDBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "mongodb_operations_total", Help: "Total number of MongoDB operations"},
		[]string{"service", "collection", "operation", "status"},
	)
	m.MongoDBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns, Name: "mongodb_operation_duration_seconds", Help: "MongoDB operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "collection", "operation"},
	)

	m.ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "imports_total", Help: "Spreadsheet imports by outcome"},
		[]string{"service", "result"},
	)
	m.ImportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "import_duration_seconds", Help: "End to end import duration in seconds",
		Buckets:     []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: serviceLabel,
	})
	m.OrdersMerged = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "orders_merged_total", Help: "Orders written by imports, by kind (added, updated)"},
		[]string{"service", "kind"},
	)
	m.MergeBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "merge_batches_total", Help: "Ledger write batches by outcome"},
		[]string{"service", "result"},
	)
	m.SnapshotsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "snapshots_delivered_total", Help: "Ledger snapshots received from the subscription",
		ConstLabels: serviceLabel,
	})
	m.SnapshotSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "snapshot_orders", Help: "Number of orders in the latest ledger snapshot",
		ConstLabels: serviceLabel,
	})
	m.LedgerSyncConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "ledger_sync_connected", Help: "1 when the ledger subscription is healthy",
		ConstLabels: serviceLabel,
	})
	m.RealtimeClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "sse_clients", Help: "Connected server-sent-event clients",
		ConstLabels: serviceLabel,
	})
	m.UserEdits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "user_edits_total", Help: "User edits applied to the ledger by kind"},
		[]string{"service", "kind"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: ns, Name: "circuit_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)"},
		[]string{"service", "name"},
	)
	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "circuit_breaker_trips_total", Help: "Total number of circuit breaker trips"},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPRequestsInFlight,
		m.KafkaEventsPublished, m.KafkaPublishDuration,
		m.MongoDBOperations, m.MongoDBOperationDuration,
		m.ImportsTotal, m.ImportDuration, m.OrdersMerged, m.MergeBatches,
		m.SnapshotsDelivered, m.SnapshotSize, m.LedgerSyncConnected, m.RealtimeClients, m.UserEdits,
		m.CircuitBreakerState, m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordImport records the outcome of one spreadsheet import
func (m *Metrics) RecordImport(result string, added, updated int, duration time.Duration) {
	m.ImportsTotal.WithLabelValues(m.serviceName, result).Inc()
	m.ImportDuration.Observe(duration.Seconds())
	if added > 0 {
		m.OrdersMerged.WithLabelValues(m.serviceName, "added").Add(float64(added))
	}
	if updated > 0 {
		m.OrdersMerged.WithLabelValues(m.serviceName, "updated").Add(float64(updated))
	}
}

// RecordMergeBatch records one ledger batch write
func (m *Metrics) RecordMergeBatch(success bool) {
	m.MergeBatches.WithLabelValues(m.serviceName, statusLabel(success)).Inc()
}

// RecordSnapshot records a snapshot delivery and its size
func (m *Metrics) RecordSnapshot(size int) {
	m.SnapshotsDelivered.Inc()
	m.SnapshotSize.Set(float64(size))
}

// SetLedgerSyncConnected flips the subscription health gauge
func (m *Metrics) SetLedgerSyncConnected(connected bool) {
	if connected {
		m.LedgerSyncConnected.Set(1)
		return
	}
	m.LedgerSyncConnected.Set(0)
}

// SetRealtimeClients sets the connected SSE client gauge
func (m *Metrics) SetRealtimeClients(n int) {
	m.RealtimeClients.Set(float64(n))
}

// RecordUserEdit records a user edit of the given kind (priority, observation, ...)
func (m *Metrics) RecordUserEdit(kind string) {
	m.UserEdits.WithLabelValues(m.serviceName, kind).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state gauge
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
