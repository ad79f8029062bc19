package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects driver-wide counters. The atomic fields are always
// live; the Prometheus collectors exist only after Init.
type Metrics struct {
	Attachments        atomic.Int64
	ActiveAttachments  atomic.Int64
	Transactions       atomic.Int64
	ActiveTransactions atomic.Int64
	StatementsPrepared atomic.Int64
	RowsFetched        atomic.Int64
	EventsDelivered    atomic.Int64

	startTime time.Time
}

var global = &Metrics{startTime: time.Now()}

// Global returns the driver-wide metrics instance.
func Global() *Metrics {
	return global
}

// StartTime returns when the driver process initialized metrics.
func StartTime() time.Time {
	return global.startTime
}

// PrometheusMetrics wraps prometheus collectors for driver metrics.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	attachmentsTotal   *prometheus.CounterVec
	transactionsTotal  *prometheus.CounterVec
	statementsTotal    *prometheus.CounterVec
	rowsFetchedTotal   prometheus.Counter
	blobsTotal         *prometheus.CounterVec
	eventsTotal        prometheus.Counter
	serviceTasksTotal  *prometheus.CounterVec
	infoRequestsTotal  *prometheus.CounterVec
	statementDuration  *prometheus.HistogramVec
	attachDuration     prometheus.Histogram
	activeAttachments  prometheus.Gauge
	activeTransactions prometheus.Gauge
	uptime             prometheus.GaugeFunc
}

// Default histogram buckets for statement execution (in milliseconds)
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

var promMetrics *PrometheusMetrics

// InitPrometheus initializes the Prometheus metrics subsystem.
func InitPrometheus(namespace string, buckets []float64) {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		attachmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attachments_total",
				Help:      "Total database attachments by outcome",
			},
			[]string{"status"},
		),

		transactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total transactions finished by outcome",
			},
			[]string{"outcome"},
		),

		statementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statements_total",
				Help:      "Total statement executions by type and status",
			},
			[]string{"type", "status"},
		),

		rowsFetchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_fetched_total",
				Help:      "Total rows fetched from cursors",
			},
		),

		blobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blobs_total",
				Help:      "Total blob sessions by mode",
			},
			[]string{"mode"},
		),

		eventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_delivered_total",
				Help:      "Total database event deliveries",
			},
		),

		serviceTasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_tasks_total",
				Help:      "Total service manager tasks started by action",
			},
			[]string{"action"},
		),

		infoRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "info_requests_total",
				Help:      "Total info requests by subject",
			},
			[]string{"subject"},
		),

		statementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "statement_duration_milliseconds",
				Help:      "Duration of statement executions in milliseconds",
				Buckets:   buckets,
			},
			[]string{"type"},
		),

		attachDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attach_duration_milliseconds",
				Help:      "Duration of database attach in milliseconds",
				Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
			},
		),

		activeAttachments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_attachments",
				Help:      "Number of currently open attachments",
			},
		),

		activeTransactions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_transactions",
				Help:      "Number of currently active transactions",
			},
		),
	}

	pm.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since driver metrics initialized",
		},
		func() float64 {
			return time.Since(StartTime()).Seconds()
		},
	)

	registry.MustRegister(
		pm.attachmentsTotal,
		pm.transactionsTotal,
		pm.statementsTotal,
		pm.rowsFetchedTotal,
		pm.blobsTotal,
		pm.eventsTotal,
		pm.serviceTasksTotal,
		pm.infoRequestsTotal,
		pm.statementDuration,
		pm.attachDuration,
		pm.activeAttachments,
		pm.activeTransactions,
		pm.uptime,
	)

	promMetrics = pm
}

// RecordAttach records an attach attempt and its duration.
func RecordAttach(success bool, durationMs int64) {
	global.Attachments.Add(1)
	if success {
		global.ActiveAttachments.Add(1)
	}
	if promMetrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	promMetrics.attachmentsTotal.WithLabelValues(status).Inc()
	if success {
		promMetrics.attachDuration.Observe(float64(durationMs))
		promMetrics.activeAttachments.Inc()
	}
}

// RecordDetach records an attachment closing.
func RecordDetach() {
	global.ActiveAttachments.Add(-1)
	if promMetrics == nil {
		return
	}
	promMetrics.activeAttachments.Dec()
}

// RecordTransactionStart records a transaction becoming active.
func RecordTransactionStart() {
	global.Transactions.Add(1)
	global.ActiveTransactions.Add(1)
	if promMetrics == nil {
		return
	}
	promMetrics.activeTransactions.Inc()
}

// RecordTransactionEnd records a transaction leaving the active state.
// outcome: commit, rollback, commit_retaining, rollback_retaining.
// The retaining variants keep the transaction active.
func RecordTransactionEnd(outcome string) {
	retaining := outcome == "commit_retaining" || outcome == "rollback_retaining"
	if !retaining {
		global.ActiveTransactions.Add(-1)
	}
	if promMetrics == nil {
		return
	}
	promMetrics.transactionsTotal.WithLabelValues(outcome).Inc()
	if !retaining {
		promMetrics.activeTransactions.Dec()
	}
}

// RecordStatement records one statement execution.
func RecordStatement(stmtType string, durationMs int64, success bool) {
	global.StatementsPrepared.Add(1)
	if promMetrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	promMetrics.statementsTotal.WithLabelValues(stmtType, status).Inc()
	if success {
		promMetrics.statementDuration.WithLabelValues(stmtType).Observe(float64(durationMs))
	}
}

// RecordRowsFetched adds fetched rows to the counter.
func RecordRowsFetched(n int) {
	global.RowsFetched.Add(int64(n))
	if promMetrics == nil {
		return
	}
	promMetrics.rowsFetchedTotal.Add(float64(n))
}

// RecordBlob records a blob session. mode: read or write.
func RecordBlob(mode string) {
	if promMetrics == nil {
		return
	}
	promMetrics.blobsTotal.WithLabelValues(mode).Inc()
}

// RecordEventDelivery records one database event delivery.
func RecordEventDelivery() {
	global.EventsDelivered.Add(1)
	if promMetrics == nil {
		return
	}
	promMetrics.eventsTotal.Inc()
}

// RecordServiceTask records a service manager task start.
func RecordServiceTask(action string) {
	if promMetrics == nil {
		return
	}
	promMetrics.serviceTasksTotal.WithLabelValues(action).Inc()
}

// RecordInfoRequest records an info request. subject: database,
// transaction, statement, blob, server.
func RecordInfoRequest(subject string) {
	if promMetrics == nil {
		return
	}
	promMetrics.infoRequestsTotal.WithLabelValues(subject).Inc()
}

// PrometheusHandler returns an HTTP handler for metrics scraping.
func PrometheusHandler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("prometheus metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}

// PrometheusRegistry returns the prometheus registry (for custom collectors).
func PrometheusRegistry() *prometheus.Registry {
	if promMetrics == nil {
		return nil
	}
	return promMetrics.registry
}
