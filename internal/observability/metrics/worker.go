package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IngestMetrics instruments ingestion runs and satisfies ports.IngestRecorder.
type IngestMetrics struct {
	registry *prometheus.Registry
	service  string

	runTotal       *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runInFlight    prometheus.Gauge
	documentsTotal *prometheus.CounterVec
	chunksTotal    *prometheus.CounterVec
	queueLag       *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
}

func NewIngestMetrics(service string) *IngestMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Total ingestion runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Ingestion run duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"service", "status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "runs_in_flight",
			Help:        "Number of ingestion runs in progress.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Source files handled by outcome.",
		},
		[]string{"service", "status"},
	)
	chunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunks handled by outcome.",
		},
		[]string{"service", "status"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "queue_lag_seconds",
			Help:      "Delay between an ingestion request and its run start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, documentsTotal, chunksTotal, queueLag)

	return &IngestMetrics{
		registry:       registry,
		service:        service,
		runTotal:       runTotal,
		runDuration:    runDuration,
		runInFlight:    runInFlight,
		documentsTotal: documentsTotal,
		chunksTotal:    chunksTotal,
		queueLag:       queueLag,
		breakerState:   registerBreakerState(registry),
	}
}

func (m *IngestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IngestMetrics) StartRun() {
	m.runInFlight.Inc()
}

func (m *IngestMetrics) FinishRun(duration time.Duration, err error) {
	m.runInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.runTotal.WithLabelValues(m.service, status).Inc()
	m.runDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *IngestMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *IngestMetrics) RecordDocument(status string) {
	m.documentsTotal.WithLabelValues(m.service, status).Inc()
}

func (m *IngestMetrics) RecordChunk(status string) {
	m.chunksTotal.WithLabelValues(m.service, status).Inc()
}

func (m *IngestMetrics) SetBreakerState(operation, state string) {
	setBreakerState(m.breakerState, m.service, operation, state)
}
